package chaintime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies the current logical time. Implementations must be
// monotonically non-decreasing.
type Clock interface {
	CurrentBlock() BlockNumber
}

// ManualClock is driven explicitly by the host, typically once per imported
// block. The zero value starts at block 0.
type ManualClock struct {
	mu      sync.RWMutex
	current BlockNumber
}

func NewManualClock(start BlockNumber) *ManualClock {
	return &ManualClock{current: start}
}

func (c *ManualClock) CurrentBlock() BlockNumber {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set moves the clock to b. Moving backwards is rejected.
func (c *ManualClock) Set(b BlockNumber) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b < c.current {
		return ErrClockRegression
	}
	c.current = b
	return nil
}

// Advance moves the clock forward by n blocks and returns the new value.
func (c *ManualClock) Advance(n uint64) BlockNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(n)
	return c.current
}

// WallClock derives the block number from wall time: one block per period
// since genesis. Readings never go backwards even if the system time does.
type WallClock struct {
	genesis time.Time
	period  time.Duration
	now     func() time.Time
	last    atomic.Uint64
}

func NewWallClock(genesis time.Time, period time.Duration) (*WallClock, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &WallClock{genesis: genesis, period: period, now: time.Now}, nil
}

func (c *WallClock) CurrentBlock() BlockNumber {
	elapsed := c.now().Sub(c.genesis)
	var b uint64
	if elapsed > 0 {
		b = uint64(elapsed / c.period)
	}
	for {
		last := c.last.Load()
		if b <= last {
			return BlockNumber(last)
		}
		if c.last.CompareAndSwap(last, b) {
			return BlockNumber(b)
		}
	}
}

// Drive advances c by one block every period until ctx ends. It is how a
// standalone node stands in for block import.
func Drive(ctx context.Context, c *ManualClock, period time.Duration) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Advance(1)
		}
	}
}
