package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
)

// Receipt records the outcome of a submission made under an idempotency key.
// Only accepted submissions get a receipt; a rejected one can be retried
// under the same key.
type Receipt struct {
	Key         string        `json:"key"`
	PayloadHash crypto.Hash   `json:"payloadHash"`
	RequestID   uuid.UUID     `json:"requestId"`
	ID          remittance.ID `json:"id"`
	Nonce       uint64        `json:"nonce"`
	Attempts    int           `json:"attempts"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type ReceiptStore interface {
	Load(ctx context.Context, key string) (Receipt, bool, error)
	// Store keeps r for ttl. An existing receipt under the same key wins.
	Store(ctx context.Context, r Receipt, ttl time.Duration) error
}

type memoryReceipt struct {
	receipt Receipt
	expires time.Time
}

type MemoryReceiptStore struct {
	mu       sync.Mutex
	receipts map[string]memoryReceipt
	now      func() time.Time
}

func NewMemoryReceiptStore() *MemoryReceiptStore {
	return &MemoryReceiptStore{receipts: make(map[string]memoryReceipt), now: time.Now}
}

func (s *MemoryReceiptStore) Load(_ context.Context, key string) (Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[key]
	if !ok {
		return Receipt{}, false, nil
	}
	if !s.now().Before(r.expires) {
		delete(s.receipts, key)
		return Receipt{}, false, nil
	}
	return r.receipt, true, nil
}

func (s *MemoryReceiptStore) Store(_ context.Context, r Receipt, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.receipts[r.Key]; ok && s.now().Before(existing.expires) {
		return nil
	}
	s.receipts[r.Key] = memoryReceipt{receipt: r, expires: s.now().Add(ttl)}
	return nil
}

type RedisReceiptStore struct {
	client redis.UniversalClient
}

func NewRedisReceiptStore(client redis.UniversalClient) *RedisReceiptStore {
	return &RedisReceiptStore{client: client}
}

func receiptKey(key string) string {
	return "relayer:idempotency:" + key
}

func (s *RedisReceiptStore) Load(ctx context.Context, key string) (Receipt, bool, error) {
	raw, err := s.client.Get(ctx, receiptKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Receipt{}, false, nil
	}
	if err != nil {
		return Receipt{}, false, fmt.Errorf("get receipt: %w", err)
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return Receipt{}, false, fmt.Errorf("decode receipt: %w", err)
	}
	return r, true, nil
}

func (s *RedisReceiptStore) Store(ctx context.Context, r Receipt, ttl time.Duration) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := s.client.SetNX(ctx, receiptKey(r.Key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store receipt: %w", err)
	}
	return nil
}
