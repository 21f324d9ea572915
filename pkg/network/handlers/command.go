package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/statetransition"
	"github.com/eigerco/remitchain/pkg/network/protocol"
	"github.com/eigerco/remitchain/pkg/network/transport"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

var ErrKindMismatch = errors.New("command does not match stream kind")

// Request is the single message a relayer writes on a command stream.
type Request struct {
	RequestID [16]byte
	Command   remittance.Command
}

// Response is the single message a node answers with. ID is zero unless
// Code is CodeOK.
type Response struct {
	Code remittance.ErrorCode
	ID   remittance.ID
}

// Applier is the ledger entry point the handler dispatches to.
type Applier interface {
	Apply(origin statetransition.Origin, cmd remittance.Command) statetransition.Result
}

// CommandHandler serves command streams. The authenticated peer account is
// the origin of every command it applies.
type CommandHandler struct {
	ledger Applier
	log    zerolog.Logger
}

func NewCommandHandler(ledger Applier, log zerolog.Logger) *CommandHandler {
	return &CommandHandler{ledger: ledger, log: log}
}

// Register installs the handler for every command stream kind.
func (h *CommandHandler) Register(r *protocol.Registry) {
	for _, kind := range []protocol.StreamKind{
		protocol.StreamKindSubmit,
		protocol.StreamKindRequestCashOut,
		protocol.StreamKindCompleteCashOut,
		protocol.StreamKindOpenDispute,
	} {
		r.RegisterHandler(kind, h.forKind(kind))
	}
}

func (h *CommandHandler) forKind(kind protocol.StreamKind) protocol.StreamHandler {
	return protocol.StreamHandlerFunc(func(ctx context.Context, stream quic.Stream, peer crypto.AccountID) error {
		return h.handle(ctx, stream, peer, kind)
	})
}

func (h *CommandHandler) handle(ctx context.Context, stream quic.Stream, peer crypto.AccountID, kind protocol.StreamKind) error {
	msg, err := ReadMessageWithContext(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	var req Request
	if err := jam.Unmarshal(msg.Content, &req); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	if protocol.StreamKindOf(req.Command) != kind {
		return fmt.Errorf("%w: %s on %s stream", ErrKindMismatch, req.Command.Kind(), kind)
	}

	requestID := uuid.UUID(req.RequestID)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("remitchain.request_id", requestID.String()),
		attribute.String("remitchain.command", req.Command.Kind().String()),
	)

	res := h.ledger.Apply(statetransition.Signed(peer), req.Command)
	span.SetAttributes(attribute.String("remitchain.code", res.Code().String()))

	h.log.Debug().
		Stringer("request_id", requestID).
		Stringer("peer", peer).
		Str("command", req.Command.Kind().String()).
		Str("code", res.Code().String()).
		Msg("command handled")

	out, err := jam.Marshal(Response{Code: res.Code(), ID: res.ID})
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := WriteMessageWithContext(ctx, stream, out); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// CommandSubmitter sends commands to one node over a lazily dialled
// connection that is re-established after it closes.
type CommandSubmitter struct {
	transport *transport.Transport
	addr      string

	mu   sync.Mutex
	conn *transport.Conn
}

func NewCommandSubmitter(t *transport.Transport, addr string) *CommandSubmitter {
	return &CommandSubmitter{transport: t, addr: addr}
}

func (s *CommandSubmitter) connection(ctx context.Context) (*transport.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && s.conn.Context().Err() == nil {
		return s.conn, nil
	}
	conn, err := s.transport.Connect(ctx, s.addr)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// Send applies cmd on the node and returns the identifier of the affected
// remittance. Ledger rejections come back as the matching remittance sentinel.
func (s *CommandSubmitter) Send(ctx context.Context, requestID uuid.UUID, cmd remittance.Command) (remittance.ID, error) {
	body, err := jam.Marshal(Request{RequestID: requestID, Command: cmd})
	if err != nil {
		return remittance.ID{}, fmt.Errorf("failed to encode request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, transport.StreamTimeout)
		defer cancel()
	}

	conn, err := s.connection(ctx)
	if err != nil {
		return remittance.ID{}, err
	}
	stream, err := protocol.OpenStream(ctx, conn, protocol.StreamKindOf(cmd))
	if err != nil {
		return remittance.ID{}, err
	}
	defer stream.CancelRead(0)

	if err := WriteMessageWithContext(ctx, stream, body); err != nil {
		return remittance.ID{}, err
	}
	if err := stream.Close(); err != nil {
		return remittance.ID{}, fmt.Errorf("failed to close send side: %w", err)
	}

	msg, err := ReadMessageWithContext(ctx, stream)
	if err != nil {
		return remittance.ID{}, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := jam.Unmarshal(msg.Content, &resp); err != nil {
		return remittance.ID{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Code != remittance.CodeOK {
		return remittance.ID{}, fmt.Errorf("%s rejected: %w", cmd.Kind(), remittance.ErrorFromCode(resp.Code))
	}
	return resp.ID, nil
}

// Close drops the current connection, if any.
func (s *CommandSubmitter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
