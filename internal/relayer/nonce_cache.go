package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/eigerco/remitchain/internal/crypto"
)

// NonceCache remembers the highest nonce forwarded per sender. It is a
// pre-flight filter only; the ledger's nonce registry stays authoritative.
type NonceCache interface {
	Current(ctx context.Context, sender crypto.AccountID) (uint64, error)
	// SetIfGreater stores nonce and returns true only if it is strictly
	// greater than the cached value.
	SetIfGreater(ctx context.Context, sender crypto.AccountID, nonce uint64) (bool, error)
}

type MemoryNonceCache struct {
	mu     sync.Mutex
	nonces map[crypto.AccountID]uint64
}

func NewMemoryNonceCache() *MemoryNonceCache {
	return &MemoryNonceCache{nonces: make(map[crypto.AccountID]uint64)}
}

func (c *MemoryNonceCache) Current(_ context.Context, sender crypto.AccountID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[sender], nil
}

func (c *MemoryNonceCache) SetIfGreater(_ context.Context, sender crypto.AccountID, nonce uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nonce <= c.nonces[sender] {
		return false, nil
	}
	c.nonces[sender] = nonce
	return true, nil
}

// setIfGreater runs atomically on the redis server so relayer replicas
// sharing one redis agree on the cached nonce.
var setIfGreater = redis.NewScript(`
local key = KEYS[1]
local incoming = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", key) or "0")
if incoming <= current then
  return 0
end
redis.call("SET", key, ARGV[1])
return 1
`)

type RedisNonceCache struct {
	client redis.UniversalClient
}

func NewRedisNonceCache(client redis.UniversalClient) *RedisNonceCache {
	return &RedisNonceCache{client: client}
}

func nonceKey(sender crypto.AccountID) string {
	return "relayer:nonce:" + sender.String()
}

func (c *RedisNonceCache) Current(ctx context.Context, sender crypto.AccountID) (uint64, error) {
	n, err := c.client.Get(ctx, nonceKey(sender)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cached nonce: %w", err)
	}
	return n, nil
}

func (c *RedisNonceCache) SetIfGreater(ctx context.Context, sender crypto.AccountID, nonce uint64) (bool, error) {
	res, err := setIfGreater.Run(ctx, c.client, []string{nonceKey(sender)}, nonce).Int()
	if err != nil {
		return false, fmt.Errorf("set cached nonce: %w", err)
	}
	return res == 1, nil
}
