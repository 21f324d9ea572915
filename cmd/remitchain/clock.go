package main

import (
	"errors"
	"fmt"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/store"
)

// newClock builds the ledger clock. In ticker mode the node owns a manual
// clock that it advances itself, resuming at the block of the last journal
// entry so a restart never moves deadlines backwards. The returned manual
// clock is nil in wall mode.
func newClock(cfg Config, journal *store.Journal) (chaintime.Clock, *chaintime.ManualClock, error) {
	if cfg.Clock == clockWall {
		c, err := chaintime.NewWallClock(cfg.Genesis, cfg.BlockDuration)
		return c, nil, err
	}

	start, err := lastJournalBlock(journal)
	if err != nil {
		return nil, nil, err
	}
	if b := chaintime.BlockNumber(cfg.StartBlock); b > start {
		start = b
	}
	c := chaintime.NewManualClock(start)
	return c, c, nil
}

func lastJournalBlock(journal *store.Journal) (chaintime.BlockNumber, error) {
	head, err := journal.Head()
	if err != nil {
		return 0, err
	}
	if head == 0 {
		return 0, nil
	}
	entry, err := journal.Get(head - 1)
	if errors.Is(err, store.ErrEntryNotFound) {
		return 0, fmt.Errorf("journal head %d has no entry: %w", head, err)
	}
	if err != nil {
		return 0, err
	}
	return entry.Block, nil
}
