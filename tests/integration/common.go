//go:build integration

package integration

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/api"
	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/indexer"
	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/internal/relayer"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/statetransition"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/db/badger"
	"github.com/eigerco/remitchain/pkg/db/pebble"
	"github.com/eigerco/remitchain/pkg/network/handlers"
	"github.com/eigerco/remitchain/pkg/network/node"
	"github.com/eigerco/remitchain/pkg/network/protocol"
	"github.com/eigerco/remitchain/pkg/network/transport"
)

const chainID = 7

// stack is a node with its indexer, query API and one connected relayer.
type stack struct {
	ledgerDB  db.KVStore
	indexer   *indexer.Indexer
	clock     *chaintime.ManualClock
	api       *httptest.Server
	node      *node.Node
	submitter *handlers.CommandSubmitter
	relayer   *relayer.Relayer
}

func newStack(t *testing.T, dataDir string) *stack {
	t.Helper()

	ledgerDB, err := pebble.Open(dataDir)
	require.NoError(t, err)
	viewDB, err := badger.NewKVStore(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { viewDB.Close() }) //nolint:errcheck

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	idx := indexer.New(viewDB, zerolog.Nop(), indexer.WithJournal(store.NewJournal(ledgerDB)))
	require.NoError(t, idx.CatchUp(store.NewJournal(ledgerDB)))
	clock := chaintime.NewManualClock(100)
	ledger := statetransition.NewHandler(ledgerDB, clock, statetransition.Config{
		ChainID: chainID,
		Limits:  remittance.DefaultLimits(),
	}, statetransition.WithSink(idx), statetransition.WithMetrics(m))

	_, nodeKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n, err := node.NewNode(node.Config{ChainID: chainID, ListenAddr: "127.0.0.1:0", PrivateKey: nodeKey}, ledger, m, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	addr, err := n.Addr()
	require.NoError(t, err)

	_, relayerKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	client, err := transport.NewTransport(transport.Config{
		PrivateKey: relayerKey,
		Handler:    protocol.NewManager(protocol.Config{ChainID: chainID}, zerolog.Nop(), nil),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	submitter := handlers.NewCommandSubmitter(client, addr.String())

	srv := httptest.NewServer(api.NewRouter(api.New(ledgerDB, idx, zerolog.Nop()), reg))

	s := &stack{
		ledgerDB:  ledgerDB,
		indexer:   idx,
		clock:     clock,
		api:       srv,
		node:      n,
		submitter: submitter,
		relayer:   relayer.New(relayer.Config{RequireAuthorization: true}, relayer.NewMemoryNonceCache(), submitter, zerolog.Nop()),
	}
	t.Cleanup(func() {
		srv.Close()
		submitter.Close() //nolint:errcheck
		client.Stop()     //nolint:errcheck
		n.Stop()          //nolint:errcheck
		ledgerDB.Close()  //nolint:errcheck
	})
	return s
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
