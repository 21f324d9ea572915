package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/internal/testutils"
	"github.com/eigerco/remitchain/pkg/db/pebble"
)

func newTestJournal(t *testing.T, blocks ...chaintime.BlockNumber) *store.Journal {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		kv.Close() //nolint:errcheck
	})
	journal := store.NewJournal(kv)
	for seq, b := range blocks {
		ev := remittance.NewEvent(remittance.CashOutCompleted{ID: testutils.RandomHash(t), Agent: testutils.RandomAccountID(t)})
		require.NoError(t, journal.Append(kv, remittance.Entry{Seq: uint64(seq), Block: b, Event: ev}))
	}
	return journal
}

func TestNewClockTicker(t *testing.T) {
	cfg := defaultConfig()
	cfg.Clock = clockTicker

	tests := []struct {
		name   string
		start  uint64
		blocks []chaintime.BlockNumber
		want   chaintime.BlockNumber
	}{
		{name: "empty journal", want: 0},
		{name: "configured start", start: 100, want: 100},
		{name: "resumes after last entry", start: 5, blocks: []chaintime.BlockNumber{3, 9, 40}, want: 40},
		{name: "start ahead of journal", start: 90, blocks: []chaintime.BlockNumber{12}, want: 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg.StartBlock = tc.start
			clock, manual, err := newClock(cfg, newTestJournal(t, tc.blocks...))
			require.NoError(t, err)
			require.NotNil(t, manual)
			assert.Equal(t, tc.want, clock.CurrentBlock())

			// ledger time only moves when the node advances it
			manual.Advance(2)
			assert.Equal(t, tc.want+2, clock.CurrentBlock())
		})
	}
}

func TestNewClockWall(t *testing.T) {
	cfg := defaultConfig()
	cfg.Clock = clockWall
	cfg.Genesis = time.Now().Add(-time.Minute)
	cfg.BlockDuration = time.Second

	clock, manual, err := newClock(cfg, newTestJournal(t))
	require.NoError(t, err)
	assert.Nil(t, manual)
	assert.GreaterOrEqual(t, clock.CurrentBlock(), chaintime.BlockNumber(59))
}
