package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
)

// StreamKind is the first byte of every stream. Each ledger command has its
// own kind so a node can reject unsupported commands before reading a body.
type StreamKind byte

const (
	StreamKindSubmit          = StreamKind(remittance.KindSubmit)
	StreamKindRequestCashOut  = StreamKind(remittance.KindRequestCashOut)
	StreamKindCompleteCashOut = StreamKind(remittance.KindCompleteCashOut)
	StreamKindOpenDispute     = StreamKind(remittance.KindOpenDispute)
)

// StreamKindOf returns the stream kind a command travels on.
func StreamKindOf(cmd remittance.Command) StreamKind {
	return StreamKind(cmd.Kind())
}

func (k StreamKind) String() string {
	return remittance.CommandKind(k).String()
}

// StreamHandler processes one inbound stream. peer is the account the remote
// side authenticated as during the handshake.
type StreamHandler interface {
	HandleStream(ctx context.Context, stream quic.Stream, peer crypto.AccountID) error
}

// StreamHandlerFunc adapts a function to StreamHandler.
type StreamHandlerFunc func(ctx context.Context, stream quic.Stream, peer crypto.AccountID) error

func (f StreamHandlerFunc) HandleStream(ctx context.Context, stream quic.Stream, peer crypto.AccountID) error {
	return f(ctx, stream, peer)
}

// Registry manages stream handlers for the supported stream kinds
type Registry struct {
	mu       sync.RWMutex
	handlers map[StreamKind]StreamHandler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[StreamKind]StreamHandler),
	}
}

// ValidateKind checks if a given byte represents a known stream kind
func (r *Registry) ValidateKind(kindByte byte) error {
	kind := StreamKind(kindByte)
	if kind > StreamKindOpenDispute {
		return fmt.Errorf("invalid stream kind: %d", kind)
	}
	return nil
}

// RegisterHandler associates a stream handler with a specific stream kind,
// replacing any previous handler of that kind.
func (r *Registry) RegisterHandler(kind StreamKind, handler StreamHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// GetHandler retrieves the handler associated with a given stream kind
func (r *Registry) GetHandler(kind StreamKind) (StreamHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler for kind %d", kind)
	}
	return handler, nil
}
