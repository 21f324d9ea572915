package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/testutils"
)

func randomRecord(t *testing.T) remittance.Record {
	return remittance.Record{
		Sender:    testutils.RandomAccountID(t),
		Recipient: testutils.RandomAccountID(t),
		AssetID:   remittance.AssetID("USDC"),
		Amount:    remittance.Amount("1500"),
		Corridor:  remittance.Corridor("US-MX"),
		Nonce:     1,
		Deadline:  100,
		ChainID:   1337,
	}
}

func TestRemittances(t *testing.T) {
	kv := newStore(t)
	remittances := NewRemittances(kv)
	record := randomRecord(t)
	id := record.ID()

	ok, err := remittances.Contains(id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = remittances.Get(id)
	assert.ErrorIs(t, err, remittance.ErrRemittanceNotFound)

	batch := kv.NewBatch()
	require.NoError(t, remittances.Insert(batch, id, record))
	require.NoError(t, batch.Commit())

	ok, err = remittances.Contains(id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := remittances.Get(id)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestRemittancesInsertReplaces(t *testing.T) {
	kv := newStore(t)
	remittances := NewRemittances(kv)
	first := randomRecord(t)
	second := randomRecord(t)
	id := first.ID()

	require.NoError(t, remittances.Insert(kv, id, first))
	require.NoError(t, remittances.Insert(kv, id, second))

	got, err := remittances.Get(id)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}
