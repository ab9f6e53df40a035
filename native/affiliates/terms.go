package affiliates

import (
	"fmt"
	"math"
)

// validate checks the bounds shared by RegisterProject and UpdateProject and
// returns the validated title.
func (t ProjectTerms) validate() (Title, error) {
	title, err := NewTitle(t.Title)
	if err != nil {
		return Title{}, err
	}
	if t.MaxAffiliateCount == 0 {
		return Title{}, ErrInvalidMaxAffiliateCount
	}
	fee := t.AffiliateFeePercentage
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 || fee > MaxAffiliateFeePercentage {
		return Title{}, fmt.Errorf("%w: %v", ErrInvalidAffiliateFeePercentage, fee)
	}
	return title, nil
}

func projectInitialized(data []byte) (bool, error) {
	rec, err := DecodeProject(data)
	if err != nil {
		return false, err
	}
	return rec.Initialized, nil
}

func affiliateInitialized(data []byte) (bool, error) {
	rec, err := DecodeAffiliate(data)
	if err != nil {
		return false, err
	}
	return rec.Initialized, nil
}

func incrementCount(count uint8) (uint8, error) {
	if count == math.MaxUint8 {
		return 0, ErrArithmeticOverflow
	}
	return count + 1, nil
}

func decrementCount(count uint8) (uint8, error) {
	if count == 0 {
		return 0, ErrArithmeticUnderflow
	}
	return count - 1, nil
}
