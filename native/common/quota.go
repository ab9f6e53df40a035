package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded   = errors.New("quota requests exceeded")
	ErrQuotaLamportCapExceeded = errors.New("quota lamport cap exceeded")
	ErrQuotaCounterOverflow    = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for a key.
type QuotaNow struct {
	ReqCount     uint32
	LamportsUsed uint64
	EpochID      uint64
}

// Quota defines the limits enforced per key within one epoch. Zero disables a
// limit.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxLamportsPerEpoch uint64
	EpochSeconds        uint32
}

// EpochAt maps a unix timestamp onto the quota epoch.
func (q Quota) EpochAt(unix int64) uint64 {
	if q.EpochSeconds == 0 || unix <= 0 {
		return 0
	}
	return uint64(unix) / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether the additional request and lamport usage fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addLamports uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addLamports > 0 {
		if next.LamportsUsed > math.MaxUint64-addLamports {
			return prev, ErrQuotaCounterOverflow
		}
		next.LamportsUsed += addLamports
	}
	if q.MaxLamportsPerEpoch > 0 && next.LamportsUsed > q.MaxLamportsPerEpoch {
		return prev, ErrQuotaLamportCapExceeded
	}

	return next, nil
}
