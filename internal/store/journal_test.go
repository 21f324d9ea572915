package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/testutils"
)

func TestJournal(t *testing.T) {
	kv := newStore(t)
	journal := NewJournal(kv)

	head, err := journal.Head()
	require.NoError(t, err)
	assert.Zero(t, head)

	var appended []remittance.Entry
	// enough entries to cross a byte boundary in the sequence key
	for seq := uint64(0); seq < 300; seq++ {
		entry := remittance.Entry{
			Seq:   seq,
			Block: chaintime.BlockNumber(seq / 3),
			Event: remittance.NewEvent(remittance.CashOutCompleted{
				ID:    testutils.RandomHash(t),
				Agent: testutils.RandomAccountID(t),
			}),
		}
		batch := kv.NewBatch()
		require.NoError(t, journal.Append(batch, entry))
		require.NoError(t, batch.Commit())
		appended = append(appended, entry)
	}

	head, err = journal.Head()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), head)

	got, err := journal.Get(42)
	require.NoError(t, err)
	assert.Equal(t, appended[42], got)

	_, err = journal.Get(300)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	all, err := journal.Range(0, 0)
	require.NoError(t, err)
	testutils.RequireNoDiff(t, appended, all)

	page, err := journal.Range(250, 10)
	require.NoError(t, err)
	assert.Equal(t, appended[250:260], page)

	tail, err := journal.Range(295, 100)
	require.NoError(t, err)
	assert.Equal(t, appended[295:], tail)

	none, err := journal.Range(1000, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
