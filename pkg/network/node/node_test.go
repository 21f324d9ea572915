package node

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/statetransition"
	"github.com/eigerco/remitchain/internal/testutils"
	"github.com/eigerco/remitchain/pkg/db/pebble"
	"github.com/eigerco/remitchain/pkg/network/handlers"
	"github.com/eigerco/remitchain/pkg/network/protocol"
	"github.com/eigerco/remitchain/pkg/network/transport"
)

func TestNodeAcceptsRelayerCommands(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck

	ledger := statetransition.NewHandler(kv, chaintime.NewManualClock(5), statetransition.Config{
		ChainID: 42,
		Limits:  remittance.DefaultLimits(),
	})

	nodePub, nodeKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	n, err := NewNode(Config{ChainID: 42, ListenAddr: "127.0.0.1:0", PrivateKey: nodeKey}, ledger, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	defer n.Stop() //nolint:errcheck

	nodeAcc, err := crypto.AccountIDFromPublicKey(nodePub)
	require.NoError(t, err)
	assert.Equal(t, nodeAcc, n.Account())

	relayerPub, relayerKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	relayerAcc, err := crypto.AccountIDFromPublicKey(relayerPub)
	require.NoError(t, err)
	client, err := transport.NewTransport(transport.Config{
		PrivateKey: relayerKey,
		Handler:    protocol.NewManager(protocol.Config{ChainID: 42}, zerolog.Nop(), nil),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	defer client.Stop() //nolint:errcheck

	addr, err := n.Addr()
	require.NoError(t, err)
	submitter := handlers.NewCommandSubmitter(client, addr.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	submit := remittance.Submit{
		Sender:    testutils.RandomAccountID(t),
		Recipient: testutils.RandomAccountID(t),
		AssetID:   remittance.AssetID("EURC"),
		Amount:    remittance.Amount("5"),
		Corridor:  remittance.Corridor("DE-TR"),
		Nonce:     3,
		Deadline:  5,
		ChainID:   42,
	}
	id, err := submitter.Send(ctx, uuid.New(), remittance.NewCommand(submit))
	require.NoError(t, err)
	assert.Equal(t, submit.Record().ID(), id)

	require.Eventually(t, func() bool {
		relayers := n.ConnectedRelayers()
		return len(relayers) == 1 && relayers[0] == relayerAcc
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNodeRejectsOtherChain(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck

	ledger := statetransition.NewHandler(kv, chaintime.NewManualClock(0), statetransition.DefaultConfig())
	_, nodeKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	n, err := NewNode(Config{ChainID: 1, ListenAddr: "127.0.0.1:0", PrivateKey: nodeKey}, ledger, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	defer n.Stop() //nolint:errcheck

	_, relayerKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	client, err := transport.NewTransport(transport.Config{
		PrivateKey: relayerKey,
		Handler:    protocol.NewManager(protocol.Config{ChainID: 2}, zerolog.Nop(), nil),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	defer client.Stop() //nolint:errcheck

	addr, err := n.Addr()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Connect(ctx, addr.String())
	assert.Error(t, err)
}
