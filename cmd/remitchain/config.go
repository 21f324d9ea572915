package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/eigerco/remitchain/internal/common"
)

const (
	clockTicker = "ticker"
	clockWall   = "wall"
)

// Config is read from REMITCHAIN_* environment variables first; command
// line flags override them.
type Config struct {
	ChainID       uint64        `env:"REMITCHAIN_CHAIN_ID"`
	DataDir       string        `env:"REMITCHAIN_DATA_DIR" envDefault:"./data"`
	DBEngine      string        `env:"REMITCHAIN_DB_ENGINE" envDefault:"pebble"`
	KeyFile       string        `env:"REMITCHAIN_KEY_FILE" envDefault:"./node-key.json"`
	ListenAddr    string        `env:"REMITCHAIN_LISTEN_ADDR" envDefault:"0.0.0.0:9400"`
	HTTPAddr      string        `env:"REMITCHAIN_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	// Clock selects how blocks advance: "ticker" steps a node-owned block
	// counter every BlockDuration, "wall" derives the block from Genesis and
	// the system time, which ties ledger outcomes to the host's wall clock.
	Clock         string        `env:"REMITCHAIN_CLOCK" envDefault:"ticker"`
	StartBlock    uint64        `env:"REMITCHAIN_START_BLOCK"`
	Genesis       time.Time     `env:"REMITCHAIN_GENESIS" envDefault:"2025-01-01T00:00:00Z"`
	BlockDuration time.Duration `env:"REMITCHAIN_BLOCK_DURATION"`
	Indexer       bool          `env:"REMITCHAIN_INDEXER" envDefault:"true"`
	NATSURL       string        `env:"REMITCHAIN_NATS_URL"`
	NATSSubject   string        `env:"REMITCHAIN_NATS_SUBJECT" envDefault:"remitchain.events"`
	LogLevel      string        `env:"REMITCHAIN_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"REMITCHAIN_LOG_FORMAT" envDefault:"console"`
}

func defaultConfig() Config {
	return Config{
		ChainID:       common.ChainID,
		BlockDuration: common.BlockPeriodInSeconds * time.Second,
	}
}

func parseConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("remitchain", flag.ContinueOnError)
	fs.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "chain identifier submissions must carry")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding ledger and indexer state")
	fs.StringVar(&cfg.DBEngine, "db-engine", cfg.DBEngine, "storage engine: pebble or badger")
	fs.StringVar(&cfg.KeyFile, "key-file", cfg.KeyFile, "node identity; generated if missing")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "QUIC address relayers connect to")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "query API and metrics address; empty disables it")
	fs.StringVar(&cfg.Clock, "clock", cfg.Clock, "block source: ticker or wall")
	fs.Uint64Var(&cfg.StartBlock, "start-block", cfg.StartBlock, "first block of the ticker clock on an empty journal")
	fs.DurationVar(&cfg.BlockDuration, "block-duration", cfg.BlockDuration, "logical block length")
	fs.BoolVar(&cfg.Indexer, "indexer", cfg.Indexer, "maintain the remittance status projection")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "publish events to this NATS server; empty disables it")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.DBEngine {
	case "pebble", "badger":
	default:
		return fmt.Errorf("unknown db engine %q", c.DBEngine)
	}
	switch c.Clock {
	case clockTicker, clockWall:
	default:
		return fmt.Errorf("unknown clock %q", c.Clock)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("block duration must be positive, got %s", c.BlockDuration)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir required")
	}
	return nil
}
