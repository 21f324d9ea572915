package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

type Hash [HashSize]byte

// HashData hashes the input data using blake2b-256
func HashData(data []byte) Hash {
	hash := blake2b.Sum256(data)
	return hash
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 32-byte hex string, with or without the 0x prefix.
func ParseHash(s string) (Hash, error) {
	b, err := decodeHex(s, HashSize)
	if err != nil {
		return Hash{}, fmt.Errorf("parse hash: %w", err)
	}
	return Hash(b), nil
}

func decodeHex(s string, size int) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), size)
	}
	return b, nil
}
