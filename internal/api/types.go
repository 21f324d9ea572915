package api

import (
	"math"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
)

type remittanceResponse struct {
	ID        remittance.ID         `json:"id"`
	Sender    crypto.AccountID      `json:"sender"`
	Recipient crypto.AccountID      `json:"recipient"`
	AssetID   remittance.AssetID    `json:"assetId"`
	Amount    remittance.Amount     `json:"amount"`
	Corridor  remittance.Corridor   `json:"corridor"`
	Nonce     uint64                `json:"nonce"`
	Deadline  chaintime.BlockNumber `json:"deadline"`
	ChainID   uint64                `json:"chainId"`
}

func newRemittanceResponse(id remittance.ID, r remittance.Record) remittanceResponse {
	return remittanceResponse{
		ID:        id,
		Sender:    r.Sender,
		Recipient: r.Recipient,
		AssetID:   r.AssetID,
		Amount:    r.Amount,
		Corridor:  r.Corridor,
		Nonce:     r.Nonce,
		Deadline:  r.Deadline,
		ChainID:   r.ChainID,
	}
}

// nonceResponse carries the next valid nonce, or null once the sender has
// used the largest one.
type nonceResponse struct {
	Account crypto.AccountID `json:"account"`
	Nonce   uint64           `json:"nonce"`
	Next    *uint64          `json:"next"`
}

func newNonceResponse(account crypto.AccountID, nonce uint64) nonceResponse {
	resp := nonceResponse{Account: account, Nonce: nonce}
	if nonce < math.MaxUint64 {
		next := nonce + 1
		resp.Next = &next
	}
	return resp
}

type entryResponse struct {
	Seq   uint64                `json:"seq"`
	Block chaintime.BlockNumber `json:"block"`
	Event remittance.Event      `json:"event"`
}

type journalResponse struct {
	Head    uint64          `json:"head"`
	Entries []entryResponse `json:"entries"`
}

func newJournalResponse(head uint64, entries []remittance.Entry) journalResponse {
	out := journalResponse{Head: head, Entries: make([]entryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, entryResponse{Seq: e.Seq, Block: e.Block, Event: e.Event})
	}
	return out
}
