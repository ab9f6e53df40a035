package crypto

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seed parts, domain tag and bump included.
	MaxSeeds = 16
	// MaxSeedLength bounds each individual seed part.
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds   = errors.New("crypto: too many derivation seeds")
	ErrSeedTooLong    = errors.New("crypto: derivation seed exceeds max length")
	ErrAddressOnCurve = errors.New("crypto: derived address lands on the ed25519 curve")
	ErrNoViableBump   = errors.New("crypto: unable to find a viable bump")
)

var derivedAddressMarker = []byte("ProgramDerivedAddress")

// IsOnCurve reports whether key decodes to a valid ed25519 point, i.e. whether
// a private key could exist for it.
func IsOnCurve(key PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}

// CreateDerivedAddress hashes the seeds together with the owning program. Each
// seed is length-prefixed so distinct seed tuples never share a preimage.
// Addresses that land on the curve are rejected so no signer can ever control
// a derived address.
func CreateDerivedAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrTooManySeeds
	}
	size := len(program) + len(derivedAddressMarker)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
		size += 1 + len(seed)
	}
	buf := make([]byte, 0, size)
	for _, seed := range seeds {
		buf = append(buf, byte(len(seed)))
		buf = append(buf, seed...)
	}
	buf = append(buf, program[:]...)
	buf = append(buf, derivedAddressMarker...)

	var addr PublicKey
	copy(addr[:], ethcrypto.Keccak256(buf))
	if IsOnCurve(addr) {
		return PublicKey{}, ErrAddressOnCurve
	}
	return addr, nil
}

// Derive finds the canonical address for a domain tag and seed parts. The
// bump is searched downward from 255 and the first off-curve candidate wins,
// so the result is deterministic for a given input.
func Derive(tag string, parts [][]byte, program PublicKey) (PublicKey, uint8, error) {
	seeds := make([][]byte, 0, len(parts)+2)
	seeds = append(seeds, []byte(tag))
	seeds = append(seeds, parts...)
	seeds = append(seeds, nil)
	for bump := 255; bump >= 0; bump-- {
		seeds[len(seeds)-1] = []byte{byte(bump)}
		addr, err := CreateDerivedAddress(seeds, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// ValidateDerived re-derives the canonical address and compares it with the
// caller-supplied candidate.
func ValidateDerived(candidate PublicKey, tag string, parts [][]byte, program PublicKey) (bool, uint8) {
	addr, bump, err := Derive(tag, parts, program)
	if err != nil {
		return false, 0
	}
	return addr == candidate, bump
}
