// Package rest exposes the replay engine over HTTP with chi.
//
// The adapter is transport only: every operation delegates to the
// engine, domain errors map onto status codes, and the optional rate
// limiter guards the balance-mutating routes. Authentication is left to
// the surrounding application; handlers trust the user id they are
// given.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/replay"
	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/ledger"
	"github.com/xraph/replay/ratelimit"
	"github.com/xraph/replay/types"
)

// Policy names the handler expects on its limiter.
const (
	PolicyAnalyze = "analyze"
	PolicyCredits = "credits"
)

// Handler serves the replay HTTP API.
type Handler struct {
	engine  *replay.Engine
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLimiter guards the analyze and credits routes with the given
// limiter. Without one, all requests are admitted.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler over the given engine.
func New(engine *replay.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns a router with all replay endpoints registered.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register mounts the replay endpoints on an existing router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.With(h.limit(PolicyAnalyze)).Post("/analyses", h.handleAnalyze)
		r.Post("/analyses/estimate", h.handleEstimate)
		r.Delete("/analyses/{platform}/{contentID}", h.handleInvalidate)

		r.Post("/accounts", h.handleCreateAccount)
		r.Get("/accounts/{userID}", h.handleGetAccount)
		r.Put("/accounts/{userID}/status", h.handleSetStatus)
		r.Get("/accounts/{userID}/balance", h.handleBalance)
		r.With(h.limit(PolicyCredits)).Post("/accounts/{userID}/credits", h.handleCredit)
		r.With(h.limit(PolicyCredits)).Post("/accounts/{userID}/debits", h.handleDebit)
		r.Get("/accounts/{userID}/transactions", h.handleTransactions)
		r.Get("/accounts/{userID}/statement", h.handleStatement)
	})
}

// ──────────────────────────────────────────────────
// Analysis endpoints
// ──────────────────────────────────────────────────

type analyzeRequest struct {
	UserID          string `json:"user_id"`
	Platform        string `json:"platform"`
	ContentID       string `json:"content_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fp := analysis.Fingerprint{ContentID: req.ContentID, Platform: req.Platform}
	outcome, err := h.engine.Analyze(r.Context(), req.UserID, fp, req.DurationSeconds)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

type estimateRequest struct {
	UserID          string `json:"user_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cost, err := h.engine.EstimateCost(r.Context(), req.UserID, req.DurationSeconds)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"points": cost})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	fp := analysis.Fingerprint{
		Platform:  chi.URLParam(r, "platform"),
		ContentID: chi.URLParam(r, "contentID"),
	}

	if err := h.engine.InvalidateAnalysis(r.Context(), fp); err != nil {
		h.writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Account endpoints
// ──────────────────────────────────────────────────

type createAccountRequest struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier,omitempty"`
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.engine.CreateAccount(r.Context(), req.UserID, req.Tier)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, acct)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.engine.GetAccountByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, acct)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.engine.SetAccountStatus(r.Context(), userID, account.Status(req.Status)); err != nil {
		h.writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := h.engine.Balance(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": balance,
	})
}

// ──────────────────────────────────────────────────
// Balance endpoints
// ──────────────────────────────────────────────────

type creditRequest struct {
	// Package redeems a named credit package. When set, Points is ignored.
	Package string `json:"package,omitempty"`
	Points  int64  `json:"points,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := chi.URLParam(r, "userID")

	var (
		balance types.Points
		err     error
	)
	if req.Package != "" {
		balance, err = h.engine.RedeemPackage(r.Context(), userID, req.Package)
	} else {
		balance, err = h.engine.Credit(r.Context(), userID, types.PointsOf(req.Points), ledger.Reason(req.Reason))
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": balance,
	})
}

type debitRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req debitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := chi.URLParam(r, "userID")
	balance, err := h.engine.Debit(r.Context(), userID, types.PointsOf(req.Points), ledger.Reason(req.Reason))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": balance,
	})
}

// ──────────────────────────────────────────────────
// Journal endpoints
// ──────────────────────────────────────────────────

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	opts := ledger.QueryOpts{
		Reason: ledger.Reason(r.URL.Query().Get("reason")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}

	txns, err := h.engine.Transactions(r.Context(), chi.URLParam(r, "userID"), opts)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid start: use RFC 3339")
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid end: use RFC 3339")
		return
	}

	stmt, err := h.engine.GenerateStatement(r.Context(), chi.URLParam(r, "userID"), start, end)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stmt)
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	return time.Parse(time.RFC3339, r.URL.Query().Get(name))
}

// ──────────────────────────────────────────────────
// Responses
// ──────────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps domain errors onto HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case replay.IsInvalidInput(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case replay.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, replay.ErrAccountExists):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, replay.ErrAccountSuspended):
		h.writeError(w, http.StatusForbidden, err.Error())
	case replay.IsInsufficientFunds(err):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, replay.ErrUnknownPackage):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, replay.ErrAnalysisFailed):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
