package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/internal/common"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, common.ChainID, cfg.ChainID)
	assert.Equal(t, "pebble", cfg.DBEngine)
	assert.Equal(t, 6*time.Second, cfg.BlockDuration)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Genesis.UTC())
	assert.True(t, cfg.Indexer)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, clockTicker, cfg.Clock)
	assert.Zero(t, cfg.StartBlock)
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("REMITCHAIN_CHAIN_ID", "7")
	t.Setenv("REMITCHAIN_DB_ENGINE", "badger")
	t.Setenv("REMITCHAIN_NATS_URL", "nats://env:4222")
	t.Setenv("REMITCHAIN_BLOCK_DURATION", "2s")
	t.Setenv("REMITCHAIN_CLOCK", "wall")

	cfg, err := parseConfig([]string{"-chain-id", "9", "-indexer=false", "-start-block", "12"})
	require.NoError(t, err)

	assert.Equal(t, uint64(9), cfg.ChainID)
	assert.Equal(t, "badger", cfg.DBEngine)
	assert.Equal(t, "nats://env:4222", cfg.NATSURL)
	assert.Equal(t, 2*time.Second, cfg.BlockDuration)
	assert.False(t, cfg.Indexer)
	assert.Equal(t, clockWall, cfg.Clock)
	assert.Equal(t, uint64(12), cfg.StartBlock)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "unknown engine", args: []string{"-db-engine", "leveldb"}},
		{name: "zero block duration", args: []string{"-block-duration", "0s"}},
		{name: "unknown clock", args: []string{"-clock", "sundial"}},
		{name: "bad env chain id", env: map[string]string{"REMITCHAIN_CHAIN_ID": "abc"}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := parseConfig(tc.args)
			assert.Error(t, err)
		})
	}
}
