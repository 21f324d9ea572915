package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// AccountID identifies a ledger account. Accounts are 32-byte ed25519 public
// keys, the same keys relayers present in their transport certificates.
type AccountID [AccountIDSize]byte

// AccountIDFromPublicKey converts an ed25519 public key into an AccountID.
func AccountIDFromPublicKey(pub ed25519.PublicKey) (AccountID, error) {
	if len(pub) != Ed25519PublicSize {
		return AccountID{}, fmt.Errorf("%w: public key has %d bytes", ErrInvalidLength, len(pub))
	}
	return AccountID(pub), nil
}

// ParseAccountID decodes a 32-byte hex string, with or without the 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
	b, err := decodeHex(s, AccountIDSize)
	if err != nil {
		return AccountID{}, fmt.Errorf("parse account id: %w", err)
	}
	return AccountID(b), nil
}

func (a AccountID) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(a[:])
}

func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
