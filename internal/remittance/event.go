package remittance

import (
	"encoding/json"
	"fmt"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

type RemittanceSent struct {
	ID        ID
	Sender    crypto.AccountID
	Recipient crypto.AccountID
	Amount    Amount
	AssetID   AssetID
	Corridor  Corridor
}

type CashOutRequested struct {
	ID        ID
	Agent     crypto.AccountID
	TimeoutAt chaintime.BlockNumber
}

type CashOutCompleted struct {
	ID    ID
	Agent crypto.AccountID
}

type DisputeOpened struct {
	ID           ID
	OpenedBy     crypto.AccountID
	DisputeType  DisputeType
	EvidenceHash EvidenceHash
}

type EventKind uint8

const (
	KindRemittanceSent EventKind = iota
	KindCashOutRequested
	KindCashOutCompleted
	KindDisputeOpened
)

func (k EventKind) String() string {
	switch k {
	case KindRemittanceSent:
		return "remittance_sent"
	case KindCashOutRequested:
		return "cash_out_requested"
	case KindCashOutCompleted:
		return "cash_out_completed"
	case KindDisputeOpened:
		return "dispute_opened"
	default:
		return "unknown"
	}
}

// Event is the tagged union of notifications, one per successful command.
type Event struct {
	value any
}

func NewEvent[T RemittanceSent | CashOutRequested | CashOutCompleted | DisputeOpened](v T) Event {
	return Event{value: v}
}

// Value returns the concrete event.
func (e Event) Value() any {
	return e.value
}

func (e Event) Kind() EventKind {
	index, _, _ := e.IndexValue()
	return EventKind(index)
}

// RemittanceID returns the identifier the event refers to.
func (e Event) RemittanceID() ID {
	switch v := e.value.(type) {
	case RemittanceSent:
		return v.ID
	case CashOutRequested:
		return v.ID
	case CashOutCompleted:
		return v.ID
	case DisputeOpened:
		return v.ID
	}
	return ID{}
}

func (e Event) IndexValue() (uint, any, error) {
	switch v := e.value.(type) {
	case RemittanceSent:
		return uint(KindRemittanceSent), v, nil
	case CashOutRequested:
		return uint(KindCashOutRequested), v, nil
	case CashOutCompleted:
		return uint(KindCashOutCompleted), v, nil
	case DisputeOpened:
		return uint(KindDisputeOpened), v, nil
	}
	return 0, nil, fmt.Errorf(jam.ErrUnsupportedType, e.value)
}

func (e *Event) ValueAt(index uint) (any, error) {
	switch EventKind(index) {
	case KindRemittanceSent:
		return RemittanceSent{}, nil
	case KindCashOutRequested:
		return CashOutRequested{}, nil
	case KindCashOutCompleted:
		return CashOutCompleted{}, nil
	case KindDisputeOpened:
		return DisputeOpened{}, nil
	}
	return nil, fmt.Errorf(jam.ErrUnknownEnumIndex, index)
}

func (e *Event) SetValue(value any) error {
	switch value.(type) {
	case RemittanceSent, CashOutRequested, CashOutCompleted, DisputeOpened:
		e.value = value
		return nil
	}
	return fmt.Errorf(jam.ErrUnsupportedType, value)
}

type eventJSON struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.value == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(e.value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventJSON{Kind: e.Kind().String(), Data: data})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case KindRemittanceSent.String():
		return unmarshalEventData[RemittanceSent](e, raw.Data)
	case KindCashOutRequested.String():
		return unmarshalEventData[CashOutRequested](e, raw.Data)
	case KindCashOutCompleted.String():
		return unmarshalEventData[CashOutCompleted](e, raw.Data)
	case KindDisputeOpened.String():
		return unmarshalEventData[DisputeOpened](e, raw.Data)
	}
	return fmt.Errorf("unknown event kind %q", raw.Kind)
}

func unmarshalEventData[T RemittanceSent | CashOutRequested | CashOutCompleted | DisputeOpened](e *Event, data json.RawMessage) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	e.value = v
	return nil
}

// Entry is a journaled event: its position in the total order of successful
// commands and the block it was applied at.
type Entry struct {
	Seq   uint64
	Block chaintime.BlockNumber
	Event Event
}
