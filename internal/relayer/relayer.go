package relayer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/pkg/serialization/codec/jam"
)

// DefaultReceiptTTL is how long an idempotency receipt is kept.
const DefaultReceiptTTL = time.Hour

// Submitter delivers a command to the ledger and returns its result.
type Submitter interface {
	Send(ctx context.Context, requestID uuid.UUID, cmd remittance.Command) (remittance.ID, error)
}

type Config struct {
	// RequireAuthorization rejects submissions whose forwarded authorization
	// is not a valid sender signature before they reach the ledger.
	RequireAuthorization bool
	// MaxRetries bounds how many times a submission is resent after a
	// transport or node failure. Ledger rejections are never retried.
	MaxRetries   int
	RetryBackoff time.Duration
	ReceiptTTL   time.Duration
}

// Relayer forwards commands on behalf of senders. Every forwarded command
// gets a fresh request id that the node logs alongside the outcome.
type Relayer struct {
	cfg      Config
	cache    NonceCache
	receipts ReceiptStore
	client   Submitter
	log      zerolog.Logger
}

type Option func(*Relayer)

// WithReceipts sets where idempotency receipts are kept. Defaults to memory.
func WithReceipts(s ReceiptStore) Option {
	return func(r *Relayer) {
		r.receipts = s
	}
}

func New(cfg Config, cache NonceCache, client Submitter, log zerolog.Logger, opts ...Option) *Relayer {
	if cfg.ReceiptTTL <= 0 {
		cfg.ReceiptTTL = DefaultReceiptTTL
	}
	r := &Relayer{cfg: cfg, cache: cache, client: client, log: log}
	for _, opt := range opts {
		opt(r)
	}
	if r.receipts == nil {
		r.receipts = NewMemoryReceiptStore()
	}
	return r
}

// NextNonce returns the nonce the sender should use for its next submission.
func (r *Relayer) NextNonce(ctx context.Context, sender crypto.AccountID) (uint64, error) {
	current, err := r.cache.Current(ctx, sender)
	if err != nil {
		return 0, err
	}
	if current == math.MaxUint64 {
		return 0, ErrNonceExhausted
	}
	return current + 1, nil
}

// Submit forwards a remittance submission and returns the identifier the
// ledger derived for it.
func (r *Relayer) Submit(ctx context.Context, s remittance.Submit) (uuid.UUID, remittance.ID, error) {
	requestID, id, _, err := r.submit(ctx, s)
	return requestID, id, err
}

func (r *Relayer) submit(ctx context.Context, s remittance.Submit) (uuid.UUID, remittance.ID, int, error) {
	requestID := uuid.New()
	log := r.log.With().Stringer("request_id", requestID).Stringer("sender", s.Sender).Uint64("nonce", s.Nonce).Logger()

	if r.cfg.RequireAuthorization && !VerifyAuthorization(s) {
		log.Info().Msg("rejecting unauthorized submission")
		return requestID, remittance.ID{}, 0, ErrBadAuthorization
	}

	// The nonce is recorded before sending; a ledger rejection still uses it up.
	ok, err := r.cache.SetIfGreater(ctx, s.Sender, s.Nonce)
	if err != nil {
		return requestID, remittance.ID{}, 0, err
	}
	if !ok {
		log.Info().Msg("rejecting stale nonce")
		return requestID, remittance.ID{}, 0, fmt.Errorf("%w: %d", ErrStaleNonce, s.Nonce)
	}

	cmd := remittance.NewCommand(s)
	for attempt := 1; ; attempt++ {
		id, err := r.client.Send(ctx, requestID, cmd)
		if err == nil {
			log.Debug().Stringer("remittance_id", id).Int("attempts", attempt).Msg("remittance submitted")
			return requestID, id, attempt, nil
		}
		if !r.retryable(ctx, err, attempt) {
			log.Info().Err(err).Int("attempts", attempt).Msg("ledger rejected submission")
			return requestID, remittance.ID{}, attempt, err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("retrying submission")
		select {
		case <-ctx.Done():
			return requestID, remittance.ID{}, attempt, ctx.Err()
		case <-time.After(r.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
}

// A resent submission that already landed comes back as an invalid nonce
// rejection; its id is still derivable from the record.
func (r *Relayer) retryable(ctx context.Context, err error, attempt int) bool {
	if attempt > r.cfg.MaxRetries || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return remittance.CodeOf(err) == remittance.CodeInternal
}

// SubmitOnce submits s under an idempotency key. Repeating the same payload
// under the key returns the original receipt without touching the ledger; a
// different payload is a conflict.
func (r *Relayer) SubmitOnce(ctx context.Context, key string, s remittance.Submit) (Receipt, error) {
	payload, err := jam.Marshal(s)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode submission: %w", err)
	}
	hash := crypto.HashData(payload)

	existing, ok, err := r.receipts.Load(ctx, key)
	if err != nil {
		return Receipt{}, err
	}
	if ok {
		if existing.PayloadHash != hash {
			return Receipt{}, fmt.Errorf("%w: %s", ErrIdempotencyConflict, key)
		}
		r.log.Debug().Str("idempotency_key", key).Stringer("request_id", existing.RequestID).Msg("replaying receipt")
		return existing, nil
	}

	requestID, id, attempts, err := r.submit(ctx, s)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		Key:         key,
		PayloadHash: hash,
		RequestID:   requestID,
		ID:          id,
		Nonce:       s.Nonce,
		Attempts:    attempts,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.receipts.Store(ctx, receipt, r.cfg.ReceiptTTL); err != nil {
		r.log.Error().Err(err).Str("idempotency_key", key).Msg("failed to store receipt")
	}
	return receipt, nil
}

// Receipt looks up the outcome of an earlier SubmitOnce.
func (r *Relayer) Receipt(ctx context.Context, key string) (Receipt, error) {
	receipt, ok, err := r.receipts.Load(ctx, key)
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrReceiptNotFound, key)
	}
	return receipt, nil
}

// Forward relays a lifecycle command unchanged. It is never retried: a
// resent dispute would be recorded twice.
func (r *Relayer) Forward(ctx context.Context, cmd remittance.Command) (uuid.UUID, error) {
	requestID := uuid.New()
	_, err := r.client.Send(ctx, requestID, cmd)
	if err != nil {
		r.log.Info().Err(err).
			Stringer("request_id", requestID).
			Str("command", cmd.Kind().String()).
			Msg("ledger rejected command")
		return requestID, err
	}
	return requestID, nil
}
