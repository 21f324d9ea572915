package statetransition

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/internal/testutils"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/db/pebble"
)

const testChainID = 1337

type recordingSink struct {
	mu      sync.Mutex
	entries []remittance.Entry
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Notify(entry remittance.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) events() []remittance.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]remittance.Event, 0, len(s.entries))
	for _, e := range s.entries {
		events = append(events, e.Event)
	}
	return events
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Notify(entry remittance.Entry) error {
	args := m.Called(entry)
	return args.Error(0)
}

type fixture struct {
	kv      db.KVStore
	clock   *chaintime.ManualClock
	sink    *recordingSink
	handler *Handler
	relayer Origin
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		kv.Close() //nolint:errcheck
	})

	f := &fixture{
		kv:      kv,
		clock:   chaintime.NewManualClock(100),
		sink:    &recordingSink{},
		relayer: Signed(testutils.RandomAccountID(t)),
	}
	cfg := Config{
		ChainID: testChainID,
		Limits:  remittance.Limits{AssetID: 8, Amount: 8, Corridor: 8, DisputeType: 8, EvidenceHash: 32},
	}
	f.handler = NewHandler(kv, f.clock, cfg, append([]Option{WithSink(f.sink)}, opts...)...)
	return f
}

func (f *fixture) submit(sender crypto.AccountID, nonce uint64) remittance.Submit {
	return remittance.Submit{
		Sender:                 sender,
		Recipient:              crypto.AccountID{0xbb},
		AssetID:                remittance.AssetID("USDC"),
		Amount:                 remittance.Amount("100"),
		Corridor:               remittance.Corridor("US-MX"),
		Nonce:                  nonce,
		Deadline:               f.clock.CurrentBlock().Add(10),
		ChainID:                testChainID,
		ForwardedAuthorization: []byte("signed-by-sender"),
	}
}

func (f *fixture) nonce(t *testing.T, sender crypto.AccountID) uint64 {
	n, err := store.NewNonces(f.kv).CurrentNonce(sender)
	require.NoError(t, err)
	return n
}

func (f *fixture) journalHead(t *testing.T) uint64 {
	head, err := store.NewJournal(f.kv).Head()
	require.NoError(t, err)
	return head
}

func TestSubmitRemittance(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)
	cmd := f.submit(sender, 1)

	id, err := f.handler.SubmitRemittance(f.relayer, cmd)
	require.NoError(t, err)
	assert.Equal(t, remittance.DeriveID(cmd.Record()), id)
	assert.Equal(t, uint64(1), f.nonce(t, sender))

	record, err := store.NewRemittances(f.kv).Get(id)
	require.NoError(t, err)
	assert.Equal(t, cmd.Record(), record)

	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, remittance.Entry{
		Seq:   0,
		Block: 100,
		Event: remittance.NewEvent(remittance.RemittanceSent{
			ID:        id,
			Sender:    sender,
			Recipient: cmd.Recipient,
			Amount:    cmd.Amount,
			AssetID:   cmd.AssetID,
			Corridor:  cmd.Corridor,
		}),
	}, f.sink.entries[0])

	journaled, err := store.NewJournal(f.kv).Get(0)
	require.NoError(t, err)
	assert.Equal(t, f.sink.entries[0], journaled)
}

func TestSubmitRemittanceRejections(t *testing.T) {
	tests := []struct {
		name    string
		origin  func(f *fixture) Origin
		mutate  func(f *fixture, cmd *remittance.Submit)
		wantErr error
	}{
		{
			name:    "wrong chain",
			mutate:  func(_ *fixture, cmd *remittance.Submit) { cmd.ChainID = testChainID + 1 },
			wantErr: remittance.ErrInvalidChainID,
		},
		{
			name: "wrong chain wins over every other failure",
			mutate: func(f *fixture, cmd *remittance.Submit) {
				cmd.ChainID = 0
				cmd.Deadline = 0
				cmd.Nonce = 0
			},
			wantErr: remittance.ErrInvalidChainID,
		},
		{
			name:    "deadline one block in the past",
			mutate:  func(f *fixture, cmd *remittance.Submit) { cmd.Deadline = f.clock.CurrentBlock() - 1 },
			wantErr: remittance.ErrDeadlineExpired,
		},
		{
			name:    "zero nonce",
			mutate:  func(_ *fixture, cmd *remittance.Submit) { cmd.Nonce = 0 },
			wantErr: remittance.ErrInvalidNonce,
		},
		{
			name:    "unsigned origin",
			origin:  func(*fixture) Origin { return None() },
			mutate:  func(*fixture, *remittance.Submit) {},
			wantErr: remittance.ErrBadOrigin,
		},
		{
			name:    "oversized asset",
			mutate:  func(_ *fixture, cmd *remittance.Submit) { cmd.AssetID = remittance.AssetID("ABCDEFGHI") },
			wantErr: remittance.ErrValueTooLong,
		},
		{
			name: "oversized corridor checked before origin",
			origin: func(*fixture) Origin {
				return None()
			},
			mutate:  func(_ *fixture, cmd *remittance.Submit) { cmd.Corridor = remittance.Corridor("US-MX-CA-BR") },
			wantErr: remittance.ErrValueTooLong,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			sender := testutils.RandomAccountID(t)
			cmd := f.submit(sender, 1)
			tc.mutate(f, &cmd)
			origin := f.relayer
			if tc.origin != nil {
				origin = tc.origin(f)
			}

			_, err := f.handler.SubmitRemittance(origin, cmd)
			require.ErrorIs(t, err, tc.wantErr)

			assert.Zero(t, f.nonce(t, sender))
			assert.Zero(t, f.journalHead(t))
			assert.Empty(t, f.sink.entries)
			ok, err := store.NewRemittances(f.kv).Contains(cmd.Record().ID())
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestDeadlineBoundary(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)

	cmd := f.submit(sender, 1)
	cmd.Deadline = f.clock.CurrentBlock()
	_, err := f.handler.SubmitRemittance(f.relayer, cmd)
	require.NoError(t, err)

	f.clock.Advance(1)
	cmd = f.submit(sender, 2)
	cmd.Deadline = f.clock.CurrentBlock() - 1
	_, err = f.handler.SubmitRemittance(f.relayer, cmd)
	assert.ErrorIs(t, err, remittance.ErrDeadlineExpired)
	assert.Equal(t, uint64(1), f.nonce(t, sender))
}

func TestNonceStrictlyIncreases(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)

	for _, n := range []uint64{1, 2, 7, 100} {
		_, err := f.handler.SubmitRemittance(f.relayer, f.submit(sender, n))
		require.NoError(t, err)
		assert.Equal(t, n, f.nonce(t, sender))
	}

	for _, n := range []uint64{0, 1, 99, 100} {
		cmd := f.submit(sender, n)
		// other fields do not matter
		cmd.Recipient = testutils.RandomAccountID(t)
		cmd.Amount = remittance.Amount("999")
		_, err := f.handler.SubmitRemittance(f.relayer, cmd)
		assert.ErrorIs(t, err, remittance.ErrInvalidNonce)
		assert.Equal(t, uint64(100), f.nonce(t, sender))
	}

	// gaps are allowed and nonces are per sender
	_, err := f.handler.SubmitRemittance(f.relayer, f.submit(testutils.RandomAccountID(t), 1))
	require.NoError(t, err)
}

func TestIdentifierCollisionRejected(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)
	cmd := f.submit(sender, 1)

	// a record already sits at the identifier this submission derives
	existing := cmd.Record()
	existing.Amount = remittance.Amount("1")
	require.NoError(t, store.NewRemittances(f.kv).Insert(f.kv, cmd.Record().ID(), existing))

	_, err := f.handler.SubmitRemittance(f.relayer, cmd)
	require.ErrorIs(t, err, remittance.ErrRemittanceExists)

	assert.Zero(t, f.nonce(t, sender))
	assert.Empty(t, f.sink.entries)
	record, err := store.NewRemittances(f.kv).Get(cmd.Record().ID())
	require.NoError(t, err)
	assert.Equal(t, existing, record)
}

func TestLifecycleCommandsRequireRecord(t *testing.T) {
	f := newFixture(t)
	unknown := testutils.RandomHash(t)
	agent := testutils.RandomAccountID(t)

	err := f.handler.RequestCashOut(f.relayer, remittance.RequestCashOut{ID: unknown, Agent: agent, TimeoutAt: 105})
	assert.ErrorIs(t, err, remittance.ErrRemittanceNotFound)
	err = f.handler.CompleteCashOut(f.relayer, remittance.CompleteCashOut{ID: unknown, Agent: agent})
	assert.ErrorIs(t, err, remittance.ErrRemittanceNotFound)
	err = f.handler.OpenDispute(f.relayer, remittance.OpenDispute{ID: unknown, OpenedBy: agent, DisputeType: remittance.DisputeType("fraud")})
	assert.ErrorIs(t, err, remittance.ErrRemittanceNotFound)

	err = f.handler.CompleteCashOut(None(), remittance.CompleteCashOut{ID: unknown, Agent: agent})
	assert.ErrorIs(t, err, remittance.ErrBadOrigin)

	err = f.handler.OpenDispute(f.relayer, remittance.OpenDispute{ID: unknown, DisputeType: remittance.DisputeType("much-too-long")})
	assert.ErrorIs(t, err, remittance.ErrValueTooLong)

	assert.Zero(t, f.journalHead(t))
	assert.Empty(t, f.sink.entries)
}

func TestLifecycleCommandsDoNotMutateState(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)
	id, err := f.handler.SubmitRemittance(f.relayer, f.submit(sender, 1))
	require.NoError(t, err)

	before, err := store.NewRemittances(f.kv).Get(id)
	require.NoError(t, err)

	agent := testutils.RandomAccountID(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.handler.RequestCashOut(f.relayer, remittance.RequestCashOut{ID: id, Agent: agent, TimeoutAt: 1}))
		require.NoError(t, f.handler.CompleteCashOut(f.relayer, remittance.CompleteCashOut{ID: id, Agent: agent}))
	}

	after, err := store.NewRemittances(f.kv).Get(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, uint64(1), f.nonce(t, sender))
	assert.Equal(t, uint64(7), f.journalHead(t))
}

// Submit twice, cash out the first remittance, dispute it after completion
// and reference an unknown identifier.
func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	clock := f.clock.CurrentBlock()
	sender := testutils.RandomAccountID(t)
	agentA := testutils.RandomAccountID(t)
	disputerD := testutils.RandomAccountID(t)
	hashH := remittance.EvidenceHash(testutils.RandomBytes(t, 32))

	first := f.submit(sender, 1)
	id1, err := f.handler.SubmitRemittance(f.relayer, first)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.nonce(t, sender))

	_, err = f.handler.SubmitRemittance(f.relayer, f.submit(sender, 1))
	require.ErrorIs(t, err, remittance.ErrInvalidNonce)

	second := f.submit(sender, 2)
	id2, err := f.handler.SubmitRemittance(f.relayer, second)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, uint64(2), f.nonce(t, sender))

	require.NoError(t, f.handler.RequestCashOut(f.relayer, remittance.RequestCashOut{ID: id1, Agent: agentA, TimeoutAt: clock + 5}))
	require.NoError(t, f.handler.CompleteCashOut(f.relayer, remittance.CompleteCashOut{ID: id1, Agent: agentA}))
	require.NoError(t, f.handler.OpenDispute(f.relayer, remittance.OpenDispute{
		ID:           id1,
		OpenedBy:     disputerD,
		DisputeType:  remittance.DisputeType("fraud"),
		EvidenceHash: hashH,
	}))

	err = f.handler.RequestCashOut(f.relayer, remittance.RequestCashOut{ID: testutils.RandomHash(t), Agent: agentA, TimeoutAt: clock + 5})
	require.ErrorIs(t, err, remittance.ErrRemittanceNotFound)

	expected := []remittance.Event{
		remittance.NewEvent(remittance.RemittanceSent{
			ID: id1, Sender: sender, Recipient: first.Recipient,
			Amount: first.Amount, AssetID: first.AssetID, Corridor: first.Corridor,
		}),
		remittance.NewEvent(remittance.RemittanceSent{
			ID: id2, Sender: sender, Recipient: second.Recipient,
			Amount: second.Amount, AssetID: second.AssetID, Corridor: second.Corridor,
		}),
		remittance.NewEvent(remittance.CashOutRequested{ID: id1, Agent: agentA, TimeoutAt: clock + 5}),
		remittance.NewEvent(remittance.CashOutCompleted{ID: id1, Agent: agentA}),
		remittance.NewEvent(remittance.DisputeOpened{ID: id1, OpenedBy: disputerD, DisputeType: remittance.DisputeType("fraud"), EvidenceHash: hashH}),
	}
	testutils.RequireNoDiff(t, expected, f.sink.events())

	journal, err := store.NewJournal(f.kv).Range(0, 0)
	require.NoError(t, err)
	require.Len(t, journal, len(expected))
	for i, entry := range journal {
		assert.Equal(t, uint64(i), entry.Seq)
		assert.Equal(t, expected[i], entry.Event)
	}
}

func TestApplyResultCodes(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)

	res := f.handler.Apply(f.relayer, remittance.NewCommand(f.submit(sender, 1)))
	require.NoError(t, res.Err)
	assert.Equal(t, remittance.CodeOK, res.Code())

	res = f.handler.Apply(f.relayer, remittance.NewCommand(f.submit(sender, 1)))
	assert.Equal(t, remittance.CodeInvalidNonce, res.Code())
	assert.Zero(t, res.ID)

	res = f.handler.Apply(f.relayer, remittance.Command{})
	assert.ErrorIs(t, res.Err, ErrUnknownCommand)
	assert.Equal(t, remittance.CodeInternal, res.Code())
}

func TestSinkFailureDoesNotRollBack(t *testing.T) {
	failing := &mockSink{}
	failing.On("Notify", mock.Anything).Return(errors.New("broker down")).Once()
	f := newFixture(t, WithSink(failing))
	sender := testutils.RandomAccountID(t)

	_, err := f.handler.SubmitRemittance(f.relayer, f.submit(sender, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.nonce(t, sender))
	assert.Len(t, f.sink.entries, 1)
	failing.AssertExpectations(t)
}

func TestConcurrentSubmissionsAreSerialized(t *testing.T) {
	f := newFixture(t)
	sender := testutils.RandomAccountID(t)

	var wg sync.WaitGroup
	results := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every goroutine races for the same nonce
			_, results[i] = f.handler.SubmitRemittance(f.relayer, f.submit(sender, 1))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, remittance.ErrInvalidNonce)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, uint64(1), f.journalHead(t))
}
