package protocol

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/pkg/network/transport"
)

const tracerName = "github.com/eigerco/remitchain/pkg/network/protocol"

// Config represents the configuration for a protocol Manager
type Config struct {
	ChainID uint64
	// StreamTimeout bounds the handling of one stream, kind byte included.
	StreamTimeout time.Duration
}

// Manager handles protocol-level connection management and implements
// transport.ConnectionHandler. Each accepted stream is dispatched by its
// kind byte to the registered handler inside its own span.
type Manager struct {
	Registry *Registry
	config   Config
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	log      zerolog.Logger
}

func NewManager(config Config, log zerolog.Logger, m *metrics.Metrics) *Manager {
	if config.StreamTimeout == 0 {
		config.StreamTimeout = transport.StreamTimeout
	}
	return &Manager{
		Registry: NewRegistry(),
		config:   config,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
		log:      log,
	}
}

// OnConnection starts serving inbound streams of conn until it closes.
func (m *Manager) OnConnection(conn *transport.Conn) error {
	go m.serve(conn)
	return nil
}

func (m *Manager) serve(conn *transport.Conn) {
	defer conn.Close() //nolint:errcheck

	log := m.log.With().Stringer("peer", conn.PeerAccount()).Logger()
	for {
		stream, err := conn.AcceptStream()
		if err != nil {
			if conn.Context().Err() == nil {
				log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		go m.handleStream(conn, stream, log)
	}
}

func (m *Manager) handleStream(conn *transport.Conn, stream quic.Stream, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(conn.Context(), m.config.StreamTimeout)
	defer cancel()

	if err := stream.SetDeadline(time.Now().Add(m.config.StreamTimeout)); err != nil {
		log.Debug().Err(err).Msg("failed to set stream deadline")
	}

	var kind [1]byte
	if _, err := io.ReadFull(stream, kind[:]); err != nil {
		log.Debug().Err(err).Msg("failed to read stream kind")
		stream.CancelRead(0)
		_ = stream.Close()
		return
	}
	if err := m.Registry.ValidateKind(kind[0]); err != nil {
		log.Info().Err(err).Msg("rejecting stream")
		stream.CancelRead(0)
		_ = stream.Close()
		return
	}
	streamKind := StreamKind(kind[0])
	handler, err := m.Registry.GetHandler(streamKind)
	if err != nil {
		log.Info().Err(err).Msg("rejecting stream")
		stream.CancelRead(0)
		_ = stream.Close()
		return
	}
	m.metrics.IncrementStreams(streamKind.String())

	ctx, span := m.tracer.Start(ctx, "stream "+streamKind.String(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("remitchain.stream.kind", streamKind.String()),
			attribute.String("remitchain.peer", conn.PeerAccount().String()),
		),
	)
	defer span.End()

	if err := handler.HandleStream(ctx, stream, conn.PeerAccount()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("kind", streamKind.String()).Msg("stream handler failed")
		stream.CancelRead(0)
	}
	_ = stream.Close()
}

// Protocols returns the single ALPN protocol of the configured chain.
func (m *Manager) Protocols() []string {
	return []string{NewProtocolID(m.config.ChainID).String()}
}

// ValidateConnection checks the negotiated protocol belongs to our chain.
func (m *Manager) ValidateConnection(tlsState tls.ConnectionState) error {
	if tlsState.NegotiatedProtocol == "" {
		return fmt.Errorf("no protocol negotiated")
	}
	id, err := ParseProtocolID(tlsState.NegotiatedProtocol)
	if err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	if id.ChainID != m.config.ChainID {
		return fmt.Errorf("chain id mismatch: got %d, want %d", id.ChainID, m.config.ChainID)
	}
	return nil
}

// OpenStream opens a stream on conn and writes its kind byte.
func OpenStream(ctx context.Context, conn *transport.Conn, kind StreamKind) (quic.Stream, error) {
	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}
	if _, err := stream.Write([]byte{byte(kind)}); err != nil {
		stream.CancelRead(0)
		_ = stream.Close()
		return nil, fmt.Errorf("failed to write stream kind: %w", err)
	}
	return stream, nil
}
