package node

import (
	"crypto/ed25519"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/pkg/network/handlers"
	"github.com/eigerco/remitchain/pkg/network/protocol"
	"github.com/eigerco/remitchain/pkg/network/transport"
)

type Config struct {
	ChainID    uint64
	ListenAddr string
	PrivateKey ed25519.PrivateKey
}

// Node is the relayer-facing ingress of a ledger node. It accepts
// authenticated QUIC connections and applies the commands relayers send.
type Node struct {
	ProtocolManager *protocol.Manager
	transport       *transport.Transport
	log             zerolog.Logger
}

// NewNode registers the command handlers for ledger and prepares the
// transport. Nothing is bound until Start.
func NewNode(cfg Config, ledger handlers.Applier, m *metrics.Metrics, log zerolog.Logger) (*Node, error) {
	mgr := protocol.NewManager(protocol.Config{ChainID: cfg.ChainID}, log, m)
	handlers.NewCommandHandler(ledger, log).Register(mgr.Registry)

	tr, err := transport.NewTransport(transport.Config{
		PrivateKey: cfg.PrivateKey,
		ListenAddr: cfg.ListenAddr,
		Handler:    mgr,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Node{
		ProtocolManager: mgr,
		transport:       tr,
		log:             log,
	}, nil
}

func (n *Node) Start() error {
	if err := n.transport.Start(); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	n.log.Info().Stringer("account", n.Account()).Msg("node started")
	return nil
}

func (n *Node) Stop() error {
	return n.transport.Stop()
}

func (n *Node) Addr() (net.Addr, error) {
	return n.transport.Addr()
}

// Account is the identity the node presents to relayers.
func (n *Node) Account() crypto.AccountID {
	return n.transport.LocalAccount()
}

// ConnectedRelayers lists the accounts of the currently connected relayers.
func (n *Node) ConnectedRelayers() []crypto.AccountID {
	conns := n.transport.ListConnections()
	out := make([]crypto.AccountID, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.PeerAccount())
	}
	return out
}
