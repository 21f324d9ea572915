package remittance

import (
	"fmt"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

// Submit records a new remittance forwarded by a relayer on behalf of Sender.
// ForwardedAuthorization is carried as is; it is neither verified nor stored.
type Submit struct {
	Sender                 crypto.AccountID
	Recipient              crypto.AccountID
	AssetID                AssetID
	Amount                 Amount
	Corridor               Corridor
	Nonce                  uint64
	Deadline               chaintime.BlockNumber
	ChainID                uint64
	ForwardedAuthorization []byte
}

// Record returns the record a successful submission stores.
func (s Submit) Record() Record {
	return Record{
		Sender:    s.Sender,
		Recipient: s.Recipient,
		AssetID:   s.AssetID,
		Amount:    s.Amount,
		Corridor:  s.Corridor,
		Nonce:     s.Nonce,
		Deadline:  s.Deadline,
		ChainID:   s.ChainID,
	}
}

func (s Submit) Validate(l Limits) error {
	if err := checkLen("asset id", s.AssetID, l.AssetID); err != nil {
		return err
	}
	if err := checkLen("amount", s.Amount, l.Amount); err != nil {
		return err
	}
	return checkLen("corridor", s.Corridor, l.Corridor)
}

type RequestCashOut struct {
	ID        ID
	Agent     crypto.AccountID
	TimeoutAt chaintime.BlockNumber
}

func (RequestCashOut) Validate(Limits) error { return nil }

type CompleteCashOut struct {
	ID    ID
	Agent crypto.AccountID
}

func (CompleteCashOut) Validate(Limits) error { return nil }

type OpenDispute struct {
	ID           ID
	OpenedBy     crypto.AccountID
	DisputeType  DisputeType
	EvidenceHash EvidenceHash
}

func (o OpenDispute) Validate(l Limits) error {
	if err := checkLen("dispute type", o.DisputeType, l.DisputeType); err != nil {
		return err
	}
	return checkLen("evidence hash", o.EvidenceHash, l.EvidenceHash)
}

type CommandKind uint8

const (
	KindSubmit CommandKind = iota
	KindRequestCashOut
	KindCompleteCashOut
	KindOpenDispute
)

func (k CommandKind) String() string {
	switch k {
	case KindSubmit:
		return "submit_remittance"
	case KindRequestCashOut:
		return "request_cash_out"
	case KindCompleteCashOut:
		return "complete_cash_out"
	case KindOpenDispute:
		return "open_dispute"
	default:
		return "unknown"
	}
}

// Command is the tagged union of the four ledger commands.
type Command struct {
	value any
}

func NewCommand[T Submit | RequestCashOut | CompleteCashOut | OpenDispute](v T) Command {
	return Command{value: v}
}

func (c Command) Value() any {
	return c.value
}

func (c Command) Kind() CommandKind {
	index, _, _ := c.IndexValue()
	return CommandKind(index)
}

func (c Command) IndexValue() (uint, any, error) {
	switch v := c.value.(type) {
	case Submit:
		return uint(KindSubmit), v, nil
	case RequestCashOut:
		return uint(KindRequestCashOut), v, nil
	case CompleteCashOut:
		return uint(KindCompleteCashOut), v, nil
	case OpenDispute:
		return uint(KindOpenDispute), v, nil
	}
	return 0, nil, fmt.Errorf(jam.ErrUnsupportedType, c.value)
}

func (c *Command) ValueAt(index uint) (any, error) {
	switch CommandKind(index) {
	case KindSubmit:
		return Submit{}, nil
	case KindRequestCashOut:
		return RequestCashOut{}, nil
	case KindCompleteCashOut:
		return CompleteCashOut{}, nil
	case KindOpenDispute:
		return OpenDispute{}, nil
	}
	return nil, fmt.Errorf(jam.ErrUnknownEnumIndex, index)
}

func (c *Command) SetValue(value any) error {
	switch value.(type) {
	case Submit, RequestCashOut, CompleteCashOut, OpenDispute:
		c.value = value
		return nil
	}
	return fmt.Errorf(jam.ErrUnsupportedType, value)
}
