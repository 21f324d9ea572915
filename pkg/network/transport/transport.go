package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/pkg/network/cert"
)

const (
	// MaxIdleTimeout defines the maximum duration a connection can be idle before timing out
	MaxIdleTimeout = 5 * time.Minute

	DefaultCertValidity = 24 * time.Hour
)

// ConnectionHandler processes new connections and validates their protocols
type ConnectionHandler interface {
	// OnConnection is called once the handshake completed and the peer
	// account is known. Returning an error closes the connection.
	OnConnection(conn *Conn) error
	// Protocols returns the supported ALPN protocol strings
	Protocols() []string
	// ValidateConnection verifies the negotiated TLS parameters
	ValidateConnection(tlsState tls.ConnectionState) error
}

// Config contains all configuration parameters for a Transport
type Config struct {
	PrivateKey   ed25519.PrivateKey
	CertValidity time.Duration
	// ListenAddr is only used by Start; a dial-only transport leaves it empty
	ListenAddr string
	Handler    ConnectionHandler
	Logger     zerolog.Logger
}

// Transport manages QUIC connections and their lifecycles. Every connection
// is mutually authenticated: both sides present a self-signed ed25519
// certificate and the peer's account id is recovered from it.
type Transport struct {
	config    Config
	tlsCert   *tls.Certificate
	validator *cert.Validator
	log       zerolog.Logger

	listener *quic.Listener
	mu       sync.RWMutex
	conns    map[crypto.AccountID]*Conn
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTransport creates and configures a new transport instance.
func NewTransport(config Config) (*Transport, error) {
	if len(config.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("connection handler required")
	}
	if config.CertValidity == 0 {
		config.CertValidity = DefaultCertValidity
	}

	tlsCert, err := cert.New(config.PrivateKey, config.CertValidity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}
	validator := cert.NewValidator()
	if _, err := validator.Validate(tlsCert.Leaf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config:    config,
		tlsCert:   tlsCert,
		validator: validator,
		log:       config.Logger,
		conns:     make(map[crypto.AccountID]*Conn),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{*t.tlsCert},
		NextProtos:         t.config.Handler.Protocols(),
		ClientAuth:         tls.RequireAnyClientCert,
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if _, err := t.validator.PeerAccount(cs); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
			}
			if err := t.config.Handler.ValidateConnection(cs); err != nil {
				return fmt.Errorf("connection validation failed: %w", err)
			}
			return nil
		},
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}

// Start initializes the transport listener and begins accepting connections.
func (t *Transport) Start() error {
	listener, err := quic.ListenAddr(t.config.ListenAddr, t.tlsConfig(), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	t.listener = listener
	t.done = make(chan struct{})
	go func() {
		t.acceptLoop()
		close(t.done)
	}()
	t.log.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound listen address, which differs from the configured
// one when an ephemeral port was requested.
func (t *Transport) Addr() (net.Addr, error) {
	if t.listener == nil {
		return nil, ErrNotStarted
	}
	return t.listener.Addr(), nil
}

// LocalAccount is the account this transport authenticates as.
func (t *Transport) LocalAccount() crypto.AccountID {
	acc, _ := t.validator.Validate(t.tlsCert.Leaf)
	return acc
}

// Stop shuts down the transport and all active connections.
// Waits for the accept loop to finish before returning.
func (t *Transport) Stop() error {
	t.cancel()

	t.mu.Lock()
	for _, conn := range t.conns {
		if err := conn.Close(); err != nil {
			t.log.Debug().Err(err).Stringer("peer", conn.PeerAccount()).Msg("failed to close connection")
		}
	}
	t.conns = make(map[crypto.AccountID]*Conn)
	t.mu.Unlock()

	if t.listener == nil {
		return nil
	}
	if err := t.listener.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	<-t.done
	return nil
}

// Connect initiates a connection to a remote peer.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	qConn, err := quic.DialAddr(ctx, addr, t.tlsConfig(), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}

	conn, err := t.handleConnection(qConn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnFailed, err)
	}
	return conn, nil
}

// GetConnection retrieves an active connection by peer account.
func (t *Transport) GetConnection(peer crypto.AccountID) (*Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, ok := t.conns[peer]
	return conn, ok
}

// ListConnections returns a slice of all active connections.
func (t *Transport) ListConnections() []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	conns := make([]*Conn, 0, len(t.conns))
	for _, conn := range t.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (t *Transport) acceptLoop() {
	for {
		qConn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			t.log.Warn().Err(err).Msg("failed to accept connection")
			continue
		}

		go func() {
			if _, err := t.handleConnection(qConn); err != nil {
				t.log.Info().Err(err).Str("remote", qConn.RemoteAddr().String()).Msg("connection rejected")
			}
		}()
	}
}

func (t *Transport) handleConnection(qConn quic.Connection) (*Conn, error) {
	peer, err := t.validator.PeerAccount(qConn.ConnectionState().TLS)
	if err != nil {
		_ = qConn.CloseWithError(0, ErrInvalidCertificate.Error())
		return nil, err
	}

	conn := t.manageConnection(peer, qConn)
	if err := t.config.Handler.OnConnection(conn); err != nil {
		t.remove(conn)
		_ = qConn.CloseWithError(0, err.Error())
		return nil, err
	}

	t.log.Debug().Stringer("peer", peer).Str("remote", qConn.RemoteAddr().String()).Msg("connection established")
	return conn, nil
}

// manageConnection stores conn, replacing any previous connection of the
// same peer.
func (t *Transport) manageConnection(peer crypto.AccountID, qConn quic.Connection) *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.conns[peer]; ok {
		t.log.Debug().Stringer("peer", peer).Msg("replacing existing connection")
		if err := existing.Close(); err != nil {
			t.log.Debug().Err(err).Msg("failed to close existing connection")
		}
	}

	conn := newConn(qConn, t, peer)
	t.conns[peer] = conn
	go func() {
		<-conn.Context().Done()
		t.remove(conn)
	}()
	return conn
}

func (t *Transport) remove(conn *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conns[conn.peer] == conn {
		delete(t.conns, conn.peer)
	}
}
