package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/crypto"
	"github.com/eigerco/remitchain/internal/indexer"
	"github.com/eigerco/remitchain/internal/store"
	"github.com/eigerco/remitchain/pkg/db"
)

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

// Handler serves read-only queries over committed ledger state and, when
// configured, the indexer projection.
type Handler struct {
	nonces      *store.Nonces
	remittances *store.Remittances
	journal     *store.Journal
	indexer     *indexer.Indexer
	log         zerolog.Logger
}

// New creates a Handler reading from the ledger store kv. idx may be nil.
func New(kv db.KVStore, idx *indexer.Indexer, log zerolog.Logger) *Handler {
	return &Handler{
		nonces:      store.NewNonces(kv),
		remittances: store.NewRemittances(kv),
		journal:     store.NewJournal(kv),
		indexer:     idx,
		log:         log,
	}
}

// Register registers the query routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/remittances/{id}", h.handleGetRemittance)
	r.Get("/remittances/{id}/view", h.handleGetView)
	r.Get("/remittances/{id}/disputes", h.handleGetDisputes)
	r.Get("/accounts/{account}/nonce", h.handleGetNonce)
	r.Get("/journal", h.handleGetJournal)
}

// NewRouter mounts h under /v1 with request logging, panic recovery and a
// Prometheus endpoint backed by gatherer.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(h.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", h.Register)
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func (h *Handler) handleGetRemittance(w http.ResponseWriter, r *http.Request) {
	id, err := crypto.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	record, err := h.remittances.Get(id)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRemittanceResponse(id, record))
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		writeError(w, ErrIndexerMissing)
		return
	}
	id, err := crypto.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	view, err := h.indexer.View(id)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetDisputes(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		writeError(w, ErrIndexerMissing)
		return
	}
	id, err := crypto.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	disputes, err := h.indexer.Disputes(id)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, disputes)
}

func (h *Handler) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	account, err := crypto.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	nonce, err := h.nonces.CurrentNonce(account)
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newNonceResponse(account, nonce))
}

func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	from, err := uintQuery(r, "from", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := uintQuery(r, "limit", defaultJournalLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit == 0 || limit > maxJournalLimit {
		limit = maxJournalLimit
	}

	head, err := h.journal.Head()
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	entries, err := h.journal.Range(from, int(limit))
	if err != nil {
		h.logFailure(r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJournalResponse(head, entries))
}

func (h *Handler) logFailure(r *http.Request, err error) {
	if status, _ := statusOf(err); status < http.StatusInternalServerError {
		return
	}
	h.log.Error().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("query failed")
}

func uintQuery(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadRequest, name, err)
	}
	return v, nil
}
