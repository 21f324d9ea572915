package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/remitchain/internal/crypto"
)

// StreamTimeout bounds a single request/response exchange on a stream.
const StreamTimeout = 5 * time.Second

// Conn represents a QUIC connection with an authenticated peer.
// Its context is cancelled when either side closes the connection.
type Conn struct {
	QConn     quic.Connection
	transport *Transport
	peer      crypto.AccountID
	ctx       context.Context
	cancel    context.CancelFunc
}

func newConn(qConn quic.Connection, transport *Transport, peer crypto.AccountID) *Conn {
	ctx, cancel := context.WithCancel(transport.ctx)
	go func() {
		select {
		case <-qConn.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	return &Conn{
		QConn:     qConn,
		transport: transport,
		peer:      peer,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OpenStream opens a new bidirectional QUIC stream.
func (c *Conn) OpenStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.QConn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	return stream, nil
}

// AcceptStream blocks until the peer opens a stream or the connection closes.
func (c *Conn) AcceptStream() (quic.Stream, error) {
	stream, err := c.QConn.AcceptStream(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept QUIC stream: %w", err)
	}
	return stream, nil
}

// PeerAccount returns the account id the peer authenticated as.
func (c *Conn) PeerAccount() crypto.AccountID {
	return c.peer
}

func (c *Conn) Close() error {
	c.cancel()
	return c.QConn.CloseWithError(0, "")
}

func (c *Conn) Context() context.Context {
	return c.ctx
}
