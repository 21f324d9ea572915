package statetransition

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/chaintime"
	"github.com/eigerco/remitchain/internal/common"
	"github.com/eigerco/remitchain/internal/metrics"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/pkg/db"
)

// Config holds the deployment values the handler validates against.
type Config struct {
	ChainID uint64
	Limits  remittance.Limits
}

func DefaultConfig() Config {
	return Config{
		ChainID: common.ChainID,
		Limits:  remittance.DefaultLimits(),
	}
}

// Sink observes journaled events after they are committed, in journal order.
type Sink interface {
	Name() string
	Notify(entry remittance.Entry) error
}

// Result is the outcome of one command. ID is set for every successful
// command: the new identifier for submissions, the referenced one otherwise.
type Result struct {
	ID  remittance.ID
	Err error
}

func (r Result) Code() remittance.ErrorCode {
	return remittance.CodeOf(r.Err)
}

// Handler applies ledger commands one at a time. Each command reads the
// clock once, validates against committed state, and writes its mutations
// and journal entry in a single batch.
type Handler struct {
	mu          sync.Mutex
	cfg         Config
	clock       chaintime.Clock
	db          db.KVStore
	nonces      *store.Nonces
	remittances *store.Remittances
	journal     *store.Journal
	sinks       []Sink
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

type Option func(*Handler)

func WithSink(s Sink) Option {
	return func(h *Handler) {
		h.sinks = append(h.sinks, s)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

func NewHandler(kv db.KVStore, clock chaintime.Clock, cfg Config, opts ...Option) *Handler {
	h := &Handler{
		cfg:         cfg,
		clock:       clock,
		db:          kv,
		nonces:      store.NewNonces(kv),
		remittances: store.NewRemittances(kv),
		journal:     store.NewJournal(kv),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitRemittance records a new remittance and returns its identifier.
func (h *Handler) SubmitRemittance(origin Origin, cmd remittance.Submit) (remittance.ID, error) {
	res := h.Apply(origin, remittance.NewCommand(cmd))
	return res.ID, res.Err
}

// RequestCashOut announces that agent intends to pay out the remittance
// before timeoutAt. It can be repeated and changes no stored state.
func (h *Handler) RequestCashOut(origin Origin, cmd remittance.RequestCashOut) error {
	return h.Apply(origin, remittance.NewCommand(cmd)).Err
}

// CompleteCashOut announces a payout. It can be repeated and is not ordered
// against RequestCashOut.
func (h *Handler) CompleteCashOut(origin Origin, cmd remittance.CompleteCashOut) error {
	return h.Apply(origin, remittance.NewCommand(cmd)).Err
}

// OpenDispute files a dispute against a remittance at any point of its life.
func (h *Handler) OpenDispute(origin Origin, cmd remittance.OpenDispute) error {
	return h.Apply(origin, remittance.NewCommand(cmd)).Err
}

// Apply runs cmd as one atomic unit. On success the journal entry is handed
// to every sink before Apply returns.
func (h *Handler) Apply(origin Origin, cmd remittance.Command) Result {
	start := time.Now()
	kind := cmd.Kind().String()

	h.mu.Lock()
	defer h.mu.Unlock()

	id, entry, err := h.apply(origin, cmd)
	res := Result{ID: id, Err: err}

	h.metrics.ObserveApplyLatency(kind, time.Since(start))
	h.metrics.IncrementOutcome(kind, res.Code().String())

	if err != nil {
		h.log.Info().Err(err).
			Str("command", kind).
			Str("code", res.Code().String()).
			Msg("command rejected")
		return res
	}

	h.log.Debug().
		Str("command", kind).
		Stringer("remittance_id", id).
		Uint64("seq", entry.Seq).
		Uint64("block", uint64(entry.Block)).
		Msg("command applied")

	h.metrics.SetJournalHead(entry.Seq + 1)
	h.notify(entry)
	return res
}

func (h *Handler) apply(origin Origin, cmd remittance.Command) (remittance.ID, remittance.Entry, error) {
	validator, ok := cmd.Value().(interface{ Validate(remittance.Limits) error })
	if !ok {
		return remittance.ID{}, remittance.Entry{}, ErrUnknownCommand
	}
	if err := validator.Validate(h.cfg.Limits); err != nil {
		return remittance.ID{}, remittance.Entry{}, err
	}
	if _, signed := origin.Signer(); !signed {
		return remittance.ID{}, remittance.Entry{}, remittance.ErrBadOrigin
	}

	now := h.clock.CurrentBlock()

	batch := h.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	var (
		id    remittance.ID
		event remittance.Event
		err   error
	)
	switch c := cmd.Value().(type) {
	case remittance.Submit:
		id, event, err = h.submit(batch, now, c)
	case remittance.RequestCashOut:
		id, event, err = c.ID, remittance.NewEvent(remittance.CashOutRequested{
			ID:        c.ID,
			Agent:     c.Agent,
			TimeoutAt: c.TimeoutAt,
		}), h.requireExists(c.ID)
	case remittance.CompleteCashOut:
		id, event, err = c.ID, remittance.NewEvent(remittance.CashOutCompleted{
			ID:    c.ID,
			Agent: c.Agent,
		}), h.requireExists(c.ID)
	case remittance.OpenDispute:
		id, event, err = c.ID, remittance.NewEvent(remittance.DisputeOpened{
			ID:           c.ID,
			OpenedBy:     c.OpenedBy,
			DisputeType:  c.DisputeType,
			EvidenceHash: c.EvidenceHash,
		}), h.requireExists(c.ID)
	default:
		err = ErrUnknownCommand
	}
	if err != nil {
		return remittance.ID{}, remittance.Entry{}, err
	}

	seq, err := h.journal.Head()
	if err != nil {
		return remittance.ID{}, remittance.Entry{}, err
	}
	entry := remittance.Entry{Seq: seq, Block: now, Event: event}
	if err := h.journal.Append(batch, entry); err != nil {
		return remittance.ID{}, remittance.Entry{}, err
	}

	if err := batch.Commit(); err != nil {
		return remittance.ID{}, remittance.Entry{}, fmt.Errorf("commit batch: %w", err)
	}
	return id, entry, nil
}

func (h *Handler) submit(w db.Writer, now chaintime.BlockNumber, c remittance.Submit) (remittance.ID, remittance.Event, error) {
	if c.ChainID != h.cfg.ChainID {
		return remittance.ID{}, remittance.Event{}, fmt.Errorf("%w: got %d, want %d", remittance.ErrInvalidChainID, c.ChainID, h.cfg.ChainID)
	}
	if c.Deadline < now {
		return remittance.ID{}, remittance.Event{}, fmt.Errorf("%w: deadline %d is before block %d", remittance.ErrDeadlineExpired, c.Deadline, now)
	}

	current, err := h.nonces.CurrentNonce(c.Sender)
	if err != nil {
		return remittance.ID{}, remittance.Event{}, err
	}
	if c.Nonce <= current {
		return remittance.ID{}, remittance.Event{}, fmt.Errorf("%w: nonce %d is not greater than %d", remittance.ErrInvalidNonce, c.Nonce, current)
	}

	record := c.Record()
	id := record.ID()
	exists, err := h.remittances.Contains(id)
	if err != nil {
		return remittance.ID{}, remittance.Event{}, err
	}
	if exists {
		return remittance.ID{}, remittance.Event{}, fmt.Errorf("%w: %s", remittance.ErrRemittanceExists, id)
	}

	if err := h.nonces.Advance(w, c.Sender, c.Nonce); err != nil {
		return remittance.ID{}, remittance.Event{}, err
	}
	if err := h.remittances.Insert(w, id, record); err != nil {
		return remittance.ID{}, remittance.Event{}, err
	}

	return id, remittance.NewEvent(remittance.RemittanceSent{
		ID:        id,
		Sender:    c.Sender,
		Recipient: c.Recipient,
		Amount:    c.Amount,
		AssetID:   c.AssetID,
		Corridor:  c.Corridor,
	}), nil
}

func (h *Handler) requireExists(id remittance.ID) error {
	ok, err := h.remittances.Contains(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", remittance.ErrRemittanceNotFound, id)
	}
	return nil
}

func (h *Handler) notify(entry remittance.Entry) {
	for _, sink := range h.sinks {
		if err := sink.Notify(entry); err != nil {
			h.log.Error().Err(err).
				Str("sink", sink.Name()).
				Uint64("seq", entry.Seq).
				Msg("failed to deliver event")
			continue
		}
		h.metrics.IncrementDelivered(sink.Name(), entry.Event.Kind().String())
	}
}
