package remittance

import (
	"fmt"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

// idPreimage fixes the field order hashed into an identifier.
type idPreimage struct {
	Sender    crypto.AccountID
	Recipient crypto.AccountID
	Amount    Amount
	AssetID   AssetID
	Corridor  Corridor
	Nonce     uint64
	Deadline  chaintime.BlockNumber
	ChainID   uint64
}

// DeriveID hashes the canonical encoding of
// (sender, recipient, amount, assetId, corridor, nonce, deadline, chainId)
// with blake2b-256.
func DeriveID(r Record) ID {
	b, err := jam.Marshal(idPreimage{
		Sender:    r.Sender,
		Recipient: r.Recipient,
		Amount:    r.Amount,
		AssetID:   r.AssetID,
		Corridor:  r.Corridor,
		Nonce:     r.Nonce,
		Deadline:  r.Deadline,
		ChainID:   r.ChainID,
	})
	if err != nil {
		// all preimage fields have a fixed encodable shape
		panic(fmt.Sprintf("encode remittance preimage: %v", err))
	}
	return crypto.HashData(b)
}
