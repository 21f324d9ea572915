package relayer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/testutils"
)

func newRedisReceipts(t *testing.T) (*RedisReceiptStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close() //nolint:errcheck
	})
	return NewRedisReceiptStore(client), mr
}

func TestReceiptStores(t *testing.T) {
	stores := map[string]func(t *testing.T) ReceiptStore{
		"memory": func(*testing.T) ReceiptStore { return NewMemoryReceiptStore() },
		"redis": func(t *testing.T) ReceiptStore {
			s, _ := newRedisReceipts(t)
			return s
		},
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, ok, err := s.Load(ctx, "k1")
			require.NoError(t, err)
			assert.False(t, ok)

			first := Receipt{Key: "k1", PayloadHash: testutils.RandomHash(t), ID: testutils.RandomHash(t), Nonce: 3, Attempts: 1}
			require.NoError(t, s.Store(ctx, first, time.Minute))

			second := first
			second.ID = testutils.RandomHash(t)
			require.NoError(t, s.Store(ctx, second, time.Minute))

			got, ok, err := s.Load(ctx, "k1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first.ID, got.ID)
			assert.Equal(t, first.PayloadHash, got.PayloadHash)
			assert.Equal(t, uint64(3), got.Nonce)
		})
	}
}

func TestReceiptsExpire(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		now := time.Unix(1000, 0)
		s := NewMemoryReceiptStore()
		s.now = func() time.Time { return now }
		require.NoError(t, s.Store(ctx, Receipt{Key: "k"}, time.Minute))

		now = now.Add(time.Minute)
		_, ok, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		s, mr := newRedisReceipts(t)
		require.NoError(t, s.Store(ctx, Receipt{Key: "k"}, time.Minute))
		assert.True(t, mr.Exists("relayer:idempotency:k"))

		mr.FastForward(time.Minute)
		_, ok, err := s.Load(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSubmitOnce(t *testing.T) {
	ctx := context.Background()
	client := &mockSubmitter{}
	receipts, _ := newRedisReceipts(t)
	r := New(Config{}, newRedisCache(t), client, zerolog.Nop(), WithReceipts(receipts))
	s, _ := newSubmit(t)
	want := testutils.RandomHash(t)

	client.On("Send", ctx, mock.Anything, remittance.NewCommand(s)).Return(want, nil).Once()

	first, err := r.SubmitOnce(ctx, "transfer-1", s)
	require.NoError(t, err)
	assert.Equal(t, want, first.ID)
	assert.Equal(t, 1, first.Attempts)

	replay, err := r.SubmitOnce(ctx, "transfer-1", s)
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, replay.RequestID)
	assert.Equal(t, want, replay.ID)

	changed := s
	changed.Amount = remittance.Amount("43")
	_, err = r.SubmitOnce(ctx, "transfer-1", changed)
	assert.ErrorIs(t, err, ErrIdempotencyConflict)

	got, err := r.Receipt(ctx, "transfer-1")
	require.NoError(t, err)
	assert.Equal(t, want, got.ID)

	_, err = r.Receipt(ctx, "unknown")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
	client.AssertExpectations(t)
}

func TestSubmitOnceKeepsNoReceiptForRejections(t *testing.T) {
	ctx := context.Background()
	client := &mockSubmitter{}
	r := New(Config{}, NewMemoryNonceCache(), client, zerolog.Nop())
	s, _ := newSubmit(t)

	client.On("Send", ctx, mock.Anything, mock.Anything).Return(remittance.ID{}, remittance.ErrInvalidChainID).Once()
	_, err := r.SubmitOnce(ctx, "transfer-2", s)
	assert.ErrorIs(t, err, remittance.ErrInvalidChainID)

	_, err = r.Receipt(ctx, "transfer-2")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
	client.AssertExpectations(t)
}

func TestRelayerRetriesTransportFailures(t *testing.T) {
	ctx := context.Background()
	s, _ := newSubmit(t)
	want := testutils.RandomHash(t)
	unreachable := errors.New("connection reset")

	t.Run("recovers within budget", func(t *testing.T) {
		client := &mockSubmitter{}
		r := New(Config{MaxRetries: 2}, NewMemoryNonceCache(), client, zerolog.Nop())
		client.On("Send", ctx, mock.Anything, mock.Anything).Return(remittance.ID{}, unreachable).Twice()
		client.On("Send", ctx, mock.Anything, mock.Anything).Return(want, nil).Once()

		receipt, err := r.SubmitOnce(ctx, "k", s)
		require.NoError(t, err)
		assert.Equal(t, want, receipt.ID)
		assert.Equal(t, 3, receipt.Attempts)
		client.AssertExpectations(t)
	})

	t.Run("gives up after budget", func(t *testing.T) {
		client := &mockSubmitter{}
		r := New(Config{MaxRetries: 1}, NewMemoryNonceCache(), client, zerolog.Nop())
		client.On("Send", ctx, mock.Anything, mock.Anything).Return(remittance.ID{}, unreachable).Twice()

		_, _, err := r.Submit(ctx, s)
		assert.ErrorIs(t, err, unreachable)
		client.AssertExpectations(t)
	})

	t.Run("ledger rejections are final", func(t *testing.T) {
		client := &mockSubmitter{}
		r := New(Config{MaxRetries: 3}, NewMemoryNonceCache(), client, zerolog.Nop())
		client.On("Send", ctx, mock.Anything, mock.Anything).Return(remittance.ID{}, remittance.ErrDeadlineExpired).Once()

		_, _, err := r.Submit(ctx, s)
		assert.ErrorIs(t, err, remittance.ErrDeadlineExpired)
		client.AssertExpectations(t)
	})

	t.Run("stops when context ends", func(t *testing.T) {
		client := &mockSubmitter{}
		r := New(Config{MaxRetries: 3, RetryBackoff: time.Hour}, NewMemoryNonceCache(), client, zerolog.Nop())
		cctx, cancel := context.WithCancel(ctx)
		client.On("Send", cctx, mock.Anything, mock.Anything).Return(remittance.ID{}, unreachable).Once().
			Run(func(mock.Arguments) { cancel() })

		_, _, err := r.Submit(cctx, s)
		assert.ErrorIs(t, err, unreachable)
		client.AssertExpectations(t)
	})
}

func TestNextNonceExhausted(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryNonceCache()
	r := New(Config{}, cache, &mockSubmitter{}, zerolog.Nop())
	sender := testutils.RandomAccountID(t)

	ok, err := cache.SetIfGreater(ctx, sender, math.MaxUint64)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.NextNonce(ctx, sender)
	assert.ErrorIs(t, err, ErrNonceExhausted)
}
