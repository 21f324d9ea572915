package remittance

import (
	"slices"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/testutils"
)

func fakeRecord(t *testing.T, faker *gofakeit.Faker) Record {
	return Record{
		Sender:    testutils.RandomAccountID(t),
		Recipient: testutils.RandomAccountID(t),
		AssetID:   AssetID(faker.CurrencyShort()),
		Amount:    Amount(faker.DigitN(6)),
		Corridor:  Corridor(faker.CountryAbr() + "-" + faker.CountryAbr()),
		Nonce:     faker.Uint64(),
		Deadline:  chaintime.BlockNumber(faker.Uint32()),
		ChainID:   1337,
	}
}

func TestDeriveIDDeterministic(t *testing.T) {
	faker := gofakeit.New(7)
	r := fakeRecord(t, faker)

	assert.Equal(t, DeriveID(r), DeriveID(r))
	assert.Equal(t, DeriveID(r), r.ID())

	copied := r
	copied.AssetID = slices.Clone(r.AssetID)
	assert.Equal(t, DeriveID(r), DeriveID(copied))
}

func TestDeriveIDPreimageLayout(t *testing.T) {
	r := Record{
		Sender:    crypto.AccountID{1},
		Recipient: crypto.AccountID{2},
		AssetID:   AssetID("USDC"),
		Amount:    Amount("100"),
		Corridor:  Corridor("US-MX"),
		Nonce:     1,
		Deadline:  10,
		ChainID:   1337,
	}

	preimage := slices.Concat(
		r.Sender[:], r.Recipient[:],
		[]byte{3}, []byte("100"),
		[]byte{4}, []byte("USDC"),
		[]byte{5}, []byte("US-MX"),
		[]byte{1, 0, 0, 0, 0, 0, 0, 0},
		[]byte{10, 0, 0, 0, 0, 0, 0, 0},
		[]byte{0x39, 0x05, 0, 0, 0, 0, 0, 0},
	)
	assert.Equal(t, crypto.HashData(preimage), DeriveID(r))
}

func TestDeriveIDChangesWithEveryField(t *testing.T) {
	faker := gofakeit.New(11)

	mutations := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"sender", func(r *Record) { r.Sender = testutils.RandomAccountID(t) }},
		{"recipient", func(r *Record) { r.Recipient = testutils.RandomAccountID(t) }},
		{"asset", func(r *Record) { r.AssetID = append(slices.Clone(r.AssetID), 'X') }},
		{"amount", func(r *Record) { r.Amount = append(slices.Clone(r.Amount), '0') }},
		{"corridor", func(r *Record) { r.Corridor = append(slices.Clone(r.Corridor), 'Z') }},
		{"nonce", func(r *Record) { r.Nonce++ }},
		{"deadline", func(r *Record) { r.Deadline++ }},
		{"chain", func(r *Record) { r.ChainID++ }},
	}

	for i := 0; i < 20; i++ {
		base := fakeRecord(t, faker)
		baseID := DeriveID(base)
		for _, m := range mutations {
			t.Run(m.name, func(t *testing.T) {
				mutated := base
				m.mutate(&mutated)
				assert.NotEqual(t, baseID, DeriveID(mutated))
			})
		}
	}
}

func TestDeriveIDFieldBoundaries(t *testing.T) {
	// moving a byte across adjacent variable-length fields must not collide
	a := Record{AssetID: AssetID("AB"), Amount: Amount("1")}
	b := Record{AssetID: AssetID("B"), Amount: Amount("1A")}
	assert.NotEqual(t, DeriveID(a), DeriveID(b))
}

func TestDeriveIDUnique(t *testing.T) {
	faker := gofakeit.New(3)
	seen := make(map[ID]struct{})
	for i := 0; i < 500; i++ {
		id := DeriveID(fakeRecord(t, faker))
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
