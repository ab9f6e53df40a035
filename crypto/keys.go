package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size in bytes of every account key and record address.
const PublicKeyLength = 32

// Bech32Prefix is the human-readable part used when keys are rendered in
// bech32 form. Base58 remains the canonical text encoding.
const Bech32Prefix = "solpay"

var (
	ErrInvalidKeyLength = errors.New("crypto: key must be 32 bytes")
	ErrInvalidKeyText   = errors.New("crypto: invalid key encoding")
)

// PublicKey identifies an account on the ledger. Signer identities are ed25519
// public keys; derived record addresses share the same 32-byte space but never
// decode to a curve point.
type PublicKey [PublicKeyLength]byte

// SystemProgramID owns every account that has not been assigned to a program.
var SystemProgramID = PublicKey{}

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var key PublicKey
	if len(b) != PublicKeyLength {
		return key, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// ParsePublicKey decodes a base58 or bech32 ("solpay1...") key.
func ParsePublicKey(text string) (PublicKey, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidKeyText)
	}
	if strings.HasPrefix(strings.ToLower(trimmed), Bech32Prefix+"1") {
		prefix, decoded, err := bech32.Decode(trimmed)
		if err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKeyText, err)
		}
		if prefix != Bech32Prefix {
			return PublicKey{}, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidKeyText, prefix)
		}
		conv, err := bech32.ConvertBits(decoded, 5, 8, false)
		if err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKeyText, err)
		}
		return PublicKeyFromBytes(conv)
	}
	raw, err := base58.Decode(trimmed)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKeyText, err)
	}
	return PublicKeyFromBytes(raw)
}

// MustParsePublicKey is ParsePublicKey for package-level constants and tests.
func MustParsePublicKey(text string) PublicKey {
	key, err := ParsePublicKey(text)
	if err != nil {
		panic(err)
	}
	return key
}

// String renders the key in base58.
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Bech32 renders the key with the solpay human-readable prefix.
func (k PublicKey) Bech32() string {
	conv, err := bech32.ConvertBits(k[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(Bech32Prefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw key bytes.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeyLength)
	copy(out, k[:])
	return out
}

// IsZero reports whether the key is the all-zero system program key.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// --- Key Management ---

type PrivateKey struct {
	key ed25519.PrivateKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromSeed derives a key from a 32-byte ed25519 seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes", ed25519.SeedSize)
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PrivateKeyFromBytes accepts the 64-byte seed||public encoding.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: private key must be %d bytes", ed25519.PrivateKeySize)
	}
	key := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !bytes.Equal(key[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
		return nil, errors.New("crypto: private key public half mismatch")
	}
	return &PrivateKey{key: key}, nil
}

// Bytes returns the 64-byte seed||public encoding.
func (k *PrivateKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

func (k *PrivateKey) PublicKey() PublicKey {
	var pub PublicKey
	copy(pub[:], k.key.Public().(ed25519.PublicKey))
	return pub
}

func (k *PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// Verify checks an ed25519 signature produced by the holder of pub.
func Verify(pub PublicKey, message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature)
}
