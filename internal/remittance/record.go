package remittance

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
)

// ID is the content-addressed identifier of a remittance.
type ID = crypto.Hash

type (
	AssetID      []byte
	Amount       []byte
	Corridor     []byte
	DisputeType  []byte
	EvidenceHash []byte
)

// Record is a remittance intent as stored. Records are written once by a
// successful submission and never changed afterwards.
type Record struct {
	Sender    crypto.AccountID
	Recipient crypto.AccountID
	AssetID   AssetID
	Amount    Amount
	Corridor  Corridor
	Nonce     uint64
	Deadline  chaintime.BlockNumber
	ChainID   uint64
}

// ID derives the record's identifier from its canonical fields.
func (r Record) ID() ID {
	return DeriveID(r)
}

// Byte fields are opaque and need not be valid UTF-8, so their text form is
// 0x-prefixed hex.
func marshalHex(b []byte) ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(b)), nil
}

func unmarshalHex(field string, text []byte) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}

func (a AssetID) MarshalText() ([]byte, error) { return marshalHex(a) }

func (a *AssetID) UnmarshalText(text []byte) error {
	b, err := unmarshalHex("asset id", text)
	*a = b
	return err
}

func (a Amount) MarshalText() ([]byte, error) { return marshalHex(a) }

func (a *Amount) UnmarshalText(text []byte) error {
	b, err := unmarshalHex("amount", text)
	*a = b
	return err
}

func (c Corridor) MarshalText() ([]byte, error) { return marshalHex(c) }

func (c *Corridor) UnmarshalText(text []byte) error {
	b, err := unmarshalHex("corridor", text)
	*c = b
	return err
}

func (d DisputeType) MarshalText() ([]byte, error) { return marshalHex(d) }

func (d *DisputeType) UnmarshalText(text []byte) error {
	b, err := unmarshalHex("dispute type", text)
	*d = b
	return err
}

func (e EvidenceHash) MarshalText() ([]byte, error) { return marshalHex(e) }

func (e *EvidenceHash) UnmarshalText(text []byte) error {
	b, err := unmarshalHex("evidence hash", text)
	*e = b
	return err
}
