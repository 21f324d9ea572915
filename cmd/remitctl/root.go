package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/eigerco/remitchain/internal/common"
	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/keyfile"
	"github.com/eigerco/remitchain/internal/relayer"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/log"
	"github.com/eigerco/remitchain/pkg/network/handlers"
	"github.com/eigerco/remitchain/pkg/network/protocol"
	"github.com/eigerco/remitchain/pkg/network/transport"
)

type globalOptions struct {
	node                 string
	chainID              uint64
	keyFile              string
	redisAddr            string
	timeout              time.Duration
	logLevel             string
	requireAuthorization bool
	retries              int
	retryBackoff         time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "remitctl",
		Short: "remitchain relayer CLI",
		Long: `remitctl forwards remittance commands to a remitchain node over QUIC.

It authenticates with the relayer key, keeps a per-sender nonce guard
(in memory or in redis) and prints every ledger answer as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLogLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.Init(log.Options{LogLevel: level, Output: cmd.ErrOrStderr()})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.node, "node", "127.0.0.1:9400", "QUIC address of the node")
	flags.Uint64Var(&opts.chainID, "chain-id", common.ChainID, "chain identifier of the node")
	flags.StringVar(&opts.keyFile, "key", "relayer-key.json", "relayer identity key file")
	flags.StringVar(&opts.redisAddr, "redis", "", "redis address of the shared nonce cache; empty keeps it in memory")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout of one command")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flags.BoolVar(&opts.requireAuthorization, "require-authorization", true, "refuse submissions without a valid sender signature")
	flags.IntVar(&opts.retries, "retries", 3, "times a submission is resent after a transport failure")
	flags.DurationVar(&opts.retryBackoff, "retry-backoff", 500*time.Millisecond, "pause before the first resend, growing with each attempt")

	root.AddCommand(
		newKeygenCmd(),
		newSubmitCmd(opts),
		newCashOutCmd(opts),
		newDisputeCmd(opts),
		newNonceCmd(opts),
		newReceiptCmd(opts),
		newWatchCmd(),
	)
	return root
}

// session is one relayer connected to one node.
type session struct {
	relayer   *relayer.Relayer
	submitter *handlers.CommandSubmitter
	transport *transport.Transport
	redis     *redis.Client
}

func (s *session) Close() {
	_ = s.submitter.Close()
	_ = s.transport.Stop()
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// newRelayer builds a relayer over client. With --redis the nonce guard and
// idempotency receipts are shared through redis, otherwise they live in memory.
func (o *globalOptions) newRelayer(client relayer.Submitter) (*relayer.Relayer, *redis.Client) {
	cfg := relayer.Config{
		RequireAuthorization: o.requireAuthorization,
		MaxRetries:           o.retries,
		RetryBackoff:         o.retryBackoff,
	}
	if o.redisAddr == "" {
		return relayer.New(cfg, relayer.NewMemoryNonceCache(), client, log.Relayer), nil
	}
	rc := redis.NewClient(&redis.Options{Addr: o.redisAddr})
	r := relayer.New(cfg, relayer.NewRedisNonceCache(rc), client, log.Relayer,
		relayer.WithReceipts(relayer.NewRedisReceiptStore(rc)))
	return r, rc
}

func (o *globalOptions) connect() (*session, error) {
	key, err := keyfile.Read(o.keyFile)
	if err != nil {
		return nil, fmt.Errorf("load relayer key: %w", err)
	}

	tr, err := transport.NewTransport(transport.Config{
		PrivateKey: key,
		Handler:    protocol.NewManager(protocol.Config{ChainID: o.chainID}, log.Network, nil),
		Logger:     log.Network,
	})
	if err != nil {
		return nil, err
	}

	submitter := handlers.NewCommandSubmitter(tr, o.node)
	r, redisClient := o.newRelayer(submitter)

	return &session{relayer: r, submitter: submitter, transport: tr, redis: redisClient}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAccountFlag(cmd *cobra.Command, name string) (crypto.AccountID, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return crypto.AccountID{}, fmt.Errorf("--%s is required", name)
	}
	acc, err := crypto.ParseAccountID(v)
	if err != nil {
		return crypto.AccountID{}, fmt.Errorf("--%s: %w", name, err)
	}
	return acc, nil
}

func parseIDFlag(cmd *cobra.Command) (remittance.ID, error) {
	v, _ := cmd.Flags().GetString("id")
	if v == "" {
		return remittance.ID{}, fmt.Errorf("--id is required")
	}
	id, err := crypto.ParseHash(v)
	if err != nil {
		return remittance.ID{}, fmt.Errorf("--id: %w", err)
	}
	return id, nil
}

// forward sends a non-submission command and prints the outcome.
func forward(cmd *cobra.Command, opts *globalOptions, c remittance.Command) error {
	s, err := opts.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	requestID, err := s.relayer.Forward(ctx, c)
	if err != nil {
		return fmt.Errorf("%s (request %s): %w", c.Kind(), requestID, err)
	}
	return printJSON(cmd, commandOutput{RequestID: requestID.String(), Command: c.Kind().String()})
}

type commandOutput struct {
	RequestID string `json:"request_id"`
	Command   string `json:"command"`
	ID        string `json:"id,omitempty"`
	Nonce     uint64 `json:"nonce,omitempty"`
}
