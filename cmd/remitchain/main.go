package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eigerco/remitchain/internal/api"
	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/indexer"
	"github.com/eigerco/remitchain/internal/keyfile"
	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/internal/notify"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/statetransition"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/pkg/db"
	"github.com/eigerco/remitchain/pkg/db/badger"
	"github.com/eigerco/remitchain/pkg/db/pebble"
	"github.com/eigerco/remitchain/pkg/log"
	"github.com/eigerco/remitchain/pkg/network/node"
)

// main starts a ledger node.
// go run ./cmd/remitchain -data-dir ./data -listen 127.0.0.1:9400
func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	format, err := log.ParseLoggerType(cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(log.Options{LogLevel: level, Type: format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Root.Fatal().Err(err).Msg("node stopped")
	}
}

func openStore(engine, path string) (db.KVStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	switch engine {
	case "badger":
		return badger.Open(path, log.Storage)
	default:
		return pebble.Open(path)
	}
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	key, err := keyfile.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Root.Info().Str("path", path).Msg("generating node key")
		return keyfile.Generate(path)
	}
	return key, err
}

func run(ctx context.Context, cfg Config) error {
	ledgerDB, err := openStore(cfg.DBEngine, filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer ledgerDB.Close() //nolint:errcheck

	clock, ticker, err := newClock(cfg, store.NewJournal(ledgerDB))
	if err != nil {
		return err
	}
	if ticker != nil {
		go func() {
			if err := chaintime.Drive(ctx, ticker, cfg.BlockDuration); err != nil && !errors.Is(err, context.Canceled) {
				log.Ledger.Error().Err(err).Msg("block ticker stopped")
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []statetransition.Option{
		statetransition.WithMetrics(m),
		statetransition.WithLogger(log.Ledger),
	}

	var idx *indexer.Indexer
	if cfg.Indexer {
		viewDB, err := openStore(cfg.DBEngine, filepath.Join(cfg.DataDir, "indexer"))
		if err != nil {
			return fmt.Errorf("open indexer store: %w", err)
		}
		defer viewDB.Close() //nolint:errcheck

		idx = indexer.New(viewDB, log.Indexer, indexer.WithJournal(store.NewJournal(ledgerDB)))
		if err := idx.CatchUp(store.NewJournal(ledgerDB)); err != nil {
			return fmt.Errorf("indexer catch up: %w", err)
		}
		opts = append(opts, statetransition.WithSink(idx))
	}

	if cfg.NATSURL != "" {
		natsCfg := notify.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		conn, err := notify.Connect(natsCfg, log.Root)
		if err != nil {
			return err
		}
		defer conn.Drain() //nolint:errcheck
		opts = append(opts, statetransition.WithSink(notify.NewNATSSink(conn, cfg.NATSSubject)))
	}

	ledger := statetransition.NewHandler(ledgerDB, clock, statetransition.Config{
		ChainID: cfg.ChainID,
		Limits:  remittance.DefaultLimits(),
	}, opts...)

	key, err := loadKey(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}
	n, err := node.NewNode(node.Config{
		ChainID:    cfg.ChainID,
		ListenAddr: cfg.ListenAddr,
		PrivateKey: key,
	}, ledger, m, log.Network)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Stop() //nolint:errcheck

	errc := make(chan error, 1)
	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(api.New(ledgerDB, idx, log.Root), reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Root.Info().Str("addr", cfg.HTTPAddr).Msg("query API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	log.Root.Info().
		Uint64("chain_id", cfg.ChainID).
		Uint64("block", uint64(clock.CurrentBlock())).
		Str("engine", cfg.DBEngine).
		Str("clock", cfg.Clock).
		Msg("remitchain node running")

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("query API: %w", err)
	}

	log.Root.Info().Msg("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Root.Warn().Err(err).Msg("query API shutdown")
		}
	}
	return nil
}
