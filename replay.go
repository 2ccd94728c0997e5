package replay

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	"github.com/xraph/replay/plugin"
	"github.com/xraph/replay/pricing"
	"github.com/xraph/replay/store"
	"github.com/xraph/replay/types"
)

// Engine is the credit-gated analysis pipeline: it owns the account
// balances, the transaction journal, the result cache, and the calls
// out to the analyzer backend.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	analyzer analysis.Analyzer
	schedule pricing.Schedule
	packages []pricing.Package

	// Background workers
	journalBuffer chan *ledger.Transaction
	stopChan      chan struct{}
	wg            sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
	analysisTimeout      time.Duration
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		schedule:             pricing.DefaultSchedule(),
		packages:             pricing.DefaultPackages(),
		journalBuffer:        make(chan *ledger.Transaction, 10000),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
		analysisTimeout:      2 * time.Minute,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAnalyzer sets the analyzer backend.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

// WithPricing sets the pricing schedule.
func WithPricing(s pricing.Schedule) Option {
	return func(e *Engine) {
		e.schedule = s
	}
}

// WithPackages sets the purchasable credit packages.
func WithPackages(pkgs []pricing.Package) Option {
	return func(e *Engine) {
		e.packages = pkgs
	}
}

// WithAnalysisTimeout bounds each analyzer call.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.analysisTimeout = d
	}
}

// WithJournalConfig configures transaction journaling parameters.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		e.journalBatchSize = batchSize
		e.journalFlushInterval = flushInterval
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.schedule.Validate(); err != nil {
		return err
	}

	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Adopt a plugin-provided analyzer when none was configured directly
	if e.analyzer == nil {
		for _, p := range e.plugins.GetAnalyzers() {
			if a, ok := p.Analyzer().(analysis.Analyzer); ok {
				e.analyzer = a
				break
			}
		}
	}

	// Start journal flush worker
	e.wg.Add(1)
	go e.journalFlushWorker(ctx)

	e.logger.Info("replay engine started",
		"batch_size", e.journalBatchSize,
		"flush_interval", e.journalFlushInterval,
		"analysis_timeout", e.analysisTimeout,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Account Management
// ──────────────────────────────────────────────────

// CreateAccount opens a credit account for a user.
func (e *Engine) CreateAccount(ctx context.Context, userID, tier string) (*account.Account, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if tier == "" {
		tier = e.schedule.DefaultTier
	}

	a := &account.Account{
		Entity:  types.NewEntity(),
		ID:      id.NewAccountID(),
		UserID:  userID,
		Tier:    tier,
		Status:  account.StatusActive,
		Balance: types.ZeroPoints,
	}

	if err := e.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	e.plugins.EmitAccountCreated(ctx, a)
	return a, nil
}

// GetAccount retrieves an account by ID.
func (e *Engine) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// GetAccountByUser retrieves a user's account.
func (e *Engine) GetAccountByUser(ctx context.Context, userID string) (*account.Account, error) {
	return e.store.GetAccountByUser(ctx, userID)
}

// ListAccounts lists accounts matching the given filters.
func (e *Engine) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	return e.store.ListAccounts(ctx, opts)
}

// SetAccountStatus suspends, closes, or reactivates a user's account.
// Non-active accounts keep their balance but cannot start new analyses.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, status account.Status) error {
	switch status {
	case account.StatusActive, account.StatusSuspended, account.StatusClosed:
	default:
		return ValidationError{Field: "status", Message: "must be active, suspended, or closed"}
	}
	return e.store.SetAccountStatus(ctx, userID, status)
}

// Balance returns a user's current point balance.
func (e *Engine) Balance(ctx context.Context, userID string) (types.Points, error) {
	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return types.ZeroPoints, err
	}
	return a.Balance, nil
}

// ──────────────────────────────────────────────────
// Balance Operations
// ──────────────────────────────────────────────────

// Credit deposits points into a user's account. The amount must be a
// positive integer.
func (e *Engine) Credit(ctx context.Context, userID string, points types.Points, reason ledger.Reason) (types.Points, error) {
	if !points.IsPositive() {
		return types.ZeroPoints, ErrInvalidAmount
	}
	if reason == "" {
		reason = ledger.ReasonCharge
	}

	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return types.ZeroPoints, err
	}

	balance, err := e.store.AdjustBalance(ctx, userID, points)
	if err != nil {
		return types.ZeroPoints, err
	}

	e.journal(ctx, newTransaction(a, points, balance, reason, "", nil))
	e.plugins.EmitPointsCredited(ctx, userID, points.Int64(), balance.Int64())

	return balance, nil
}

// Debit withdraws points from a user's account. The amount must be a
// positive integer and the balance must cover it in full; partial
// debits never happen.
func (e *Engine) Debit(ctx context.Context, userID string, points types.Points, reason ledger.Reason) (types.Points, error) {
	if !points.IsPositive() {
		return types.ZeroPoints, ErrInvalidAmount
	}
	if reason == "" {
		reason = ledger.ReasonAdminAdjustment
	}

	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return types.ZeroPoints, err
	}

	balance, err := e.store.AdjustBalance(ctx, userID, points.Negate())
	if err != nil {
		if IsInsufficientFunds(err) {
			e.plugins.EmitInsufficientFunds(ctx, userID, points.Int64(), balance.Int64())
		}
		return balance, err
	}

	e.journal(ctx, newTransaction(a, points.Negate(), balance, reason, "", nil))
	e.plugins.EmitPointsDebited(ctx, userID, points.Int64(), balance.Int64())

	return balance, nil
}

// RedeemPackage credits a user with a named credit package, bonus included.
func (e *Engine) RedeemPackage(ctx context.Context, userID, slug string) (types.Points, error) {
	pkg, ok := pricing.FindPackage(e.packages, slug)
	if !ok {
		return types.ZeroPoints, ErrUnknownPackage
	}

	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return types.ZeroPoints, err
	}

	total := pkg.Total()
	balance, err := e.store.AdjustBalance(ctx, userID, total)
	if err != nil {
		return types.ZeroPoints, err
	}

	e.journal(ctx, newTransaction(a, total, balance, ledger.ReasonCharge, "", map[string]string{
		"package": pkg.Slug,
	}))
	e.plugins.EmitPointsCredited(ctx, userID, total.Int64(), balance.Int64())

	return balance, nil
}

// ──────────────────────────────────────────────────
// Analysis Orchestration
// ──────────────────────────────────────────────────

// Analyze runs the cache-first, credit-gated analysis pipeline for one
// video. A cache hit costs nothing and touches no balance. On a miss the
// caller's account is debited before the analyzer runs; if the analyzer
// fails or times out, the debit is refunded in full.
func (e *Engine) Analyze(ctx context.Context, userID string, fp analysis.Fingerprint, durationSeconds int64) (*analysis.Outcome, error) {
	if fp.IsZero() {
		return nil, ValidationError{Field: "fingerprint", Message: "content_id and platform are required"}
	}
	if durationSeconds <= 0 {
		return nil, ValidationError{Field: "duration_seconds", Message: "must be a positive integer"}
	}
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}

	// Cache first: a hit short-circuits billing entirely.
	if entry, err := e.store.GetAnalysis(ctx, fp); err == nil {
		e.plugins.EmitCacheHit(ctx, fp.Key())
		e.logger.Debug("analysis served from cache", "fingerprint", fp.Key(), "user", userID)
		return &analysis.Outcome{
			Result:     &entry.Result,
			Cached:     true,
			PointsUsed: types.ZeroPoints,
		}, nil
	} else if !IsCacheMiss(err) {
		return nil, err
	}
	e.plugins.EmitCacheMiss(ctx, fp.Key())

	if e.analyzer == nil {
		return nil, ErrAnalyzerNotConfigured
	}

	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.Status != account.StatusActive {
		return nil, ErrAccountSuspended
	}

	cost := e.costFor(a.Tier, durationSeconds)

	// Debit up front. The conditional update keeps the balance from ever
	// going negative under concurrent spends.
	balance, err := e.store.AdjustBalance(ctx, userID, cost.Negate())
	if err != nil {
		if IsInsufficientFunds(err) {
			e.plugins.EmitInsufficientFunds(ctx, userID, cost.Int64(), balance.Int64())
		}
		return nil, err
	}
	e.journal(ctx, newTransaction(a, cost.Negate(), balance, ledger.ReasonAnalysisDebit, fp.Key(), nil))
	e.plugins.EmitPointsDebited(ctx, userID, cost.Int64(), balance.Int64())

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, e.analysisTimeout)
	result, runErr := e.analyzer.Run(runCtx, fp, durationSeconds)
	cancel()

	if runErr != nil {
		// The caller may already be gone (disconnect, timeout); the
		// compensating credit must still land, so detach it from the
		// request's cancellation.
		refunded := e.refund(context.WithoutCancel(ctx), a, cost, fp)
		e.plugins.EmitAnalysisFailed(ctx, fp.Key(), runErr)
		return nil, &AnalysisError{
			Fingerprint: fp,
			Points:      cost,
			Refunded:    refunded,
			Err:         runErr,
		}
	}

	entry := &analysis.CacheEntry{
		ID:              id.NewAnalysisID(),
		Fingerprint:     fp,
		DurationSeconds: durationSeconds,
		Result:          *result,
		CachedAt:        time.Now().UTC(),
	}
	if err := e.store.PutAnalysis(ctx, entry); err != nil {
		// The caller already paid and has a result; a failed cache write
		// only costs the next requester a re-run.
		e.logger.Error("failed to cache analysis result",
			"fingerprint", fp.Key(),
			"error", err,
		)
	}

	elapsed := time.Since(started)
	e.plugins.EmitAnalysisCompleted(ctx, fp.Key(), cost.Int64(), elapsed)
	e.logger.Info("analysis completed",
		"fingerprint", fp.Key(),
		"user", userID,
		"points", cost.Int64(),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &analysis.Outcome{
		Result:     result,
		Cached:     false,
		PointsUsed: cost,
	}, nil
}

// refund returns the full debit after a failed analyzer call and reports
// whether the compensating credit landed.
func (e *Engine) refund(ctx context.Context, a *account.Account, cost types.Points, fp analysis.Fingerprint) bool {
	balance, err := e.store.AdjustBalance(ctx, a.UserID, cost)
	if err != nil {
		e.logger.Error("refund failed after analysis error",
			"user", a.UserID,
			"points", cost.Int64(),
			"error", err,
		)
		return false
	}

	e.journal(ctx, newTransaction(a, cost, balance, ledger.ReasonAnalysisRefund, fp.Key(), nil))
	e.plugins.EmitPointsRefunded(ctx, a.UserID, cost.Int64(), balance.Int64())
	return true
}

// EstimateCost returns what a fresh analysis would cost for the user's
// tier, without touching the cache or the balance.
func (e *Engine) EstimateCost(ctx context.Context, userID string, durationSeconds int64) (types.Points, error) {
	if durationSeconds <= 0 {
		return types.ZeroPoints, ValidationError{Field: "duration_seconds", Message: "must be a positive integer"}
	}
	a, err := e.store.GetAccountByUser(ctx, userID)
	if err != nil {
		return types.ZeroPoints, err
	}
	return e.costFor(a.Tier, durationSeconds), nil
}

// costFor prices a duration for a tier. A plugin estimator registered
// under the tier name takes precedence over the schedule.
func (e *Engine) costFor(tier string, durationSeconds int64) types.Points {
	if est := e.plugins.GetCostEstimator(tier); est != nil {
		if pts, ok := est.Estimate(tier, durationSeconds); ok {
			return types.PointsOf(pts)
		}
	}
	return e.schedule.CostFor(tier, durationSeconds)
}

// InvalidateAnalysis removes one cached result. The next request for the
// fingerprint pays for a fresh run.
func (e *Engine) InvalidateAnalysis(ctx context.Context, fp analysis.Fingerprint) error {
	if fp.IsZero() {
		return ValidationError{Field: "fingerprint", Message: "content_id and platform are required"}
	}
	return e.store.DeleteAnalysis(ctx, fp)
}

// PurgeAnalyses drops cached results older than the given cutoff.
func (e *Engine) PurgeAnalyses(ctx context.Context, before time.Time) (int64, error) {
	return e.store.PurgeAnalyses(ctx, before)
}

// NotifyRateLimited reports a limiter rejection to the registered
// plugins. Transports that pair the engine with a ratelimit.Limiter
// call this when they deny a request.
func (e *Engine) NotifyRateLimited(ctx context.Context, policy, identifier string) {
	e.plugins.EmitRateLimited(ctx, policy, identifier)
}

// ──────────────────────────────────────────────────
// Transaction Journal
// ──────────────────────────────────────────────────

// Transactions returns a user's journal entries, newest first.
func (e *Engine) Transactions(ctx context.Context, userID string, opts ledger.QueryOpts) ([]*ledger.Transaction, error) {
	return e.store.QueryTransactions(ctx, userID, opts)
}

// PurgeTransactions drops journal entries older than the given cutoff.
func (e *Engine) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	return e.store.PurgeTransactions(ctx, before)
}

// GenerateStatement builds a per-reason summary of a user's balance
// movement over a period.
func (e *Engine) GenerateStatement(ctx context.Context, userID string, start, end time.Time) (*ledger.Statement, error) {
	if !end.After(start) {
		return nil, ValidationError{Field: "period", Message: "end must be after start"}
	}

	summaries, err := e.store.SummarizeTransactions(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	stmt := &ledger.Statement{
		Entity:      types.NewEntity(),
		ID:          id.NewStatementID(),
		UserID:      userID,
		PeriodStart: start,
		PeriodEnd:   end,
		Lines:       make([]ledger.StatementLine, 0, len(summaries)),
	}
	for reason, sum := range summaries {
		stmt.Lines = append(stmt.Lines, ledger.StatementLine{
			Reason: reason,
			Count:  sum.Count,
			Total:  sum.Total,
		})
		stmt.NetChange = stmt.NetChange.Add(sum.Total)
	}
	sort.Slice(stmt.Lines, func(i, j int) bool {
		return stmt.Lines[i].Reason < stmt.Lines[j].Reason
	})

	e.plugins.EmitStatementGenerated(ctx, stmt)
	return stmt, nil
}

// journal enqueues a transaction for the background flush worker. When
// the buffer is full the entry is written through synchronously instead
// of being dropped.
func (e *Engine) journal(ctx context.Context, txn *ledger.Transaction) {
	select {
	case e.journalBuffer <- txn:
	default:
		if err := e.store.RecordTransactions(ctx, []*ledger.Transaction{txn}); err != nil {
			e.logger.Error("journal write-through failed",
				"transaction", txn.ID.String(),
				"error", err,
			)
		}
	}
}

// journalFlushWorker flushes buffered transactions to the store.
func (e *Engine) journalFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	batch := make([]*ledger.Transaction, 0, e.journalBatchSize)
	ticker := time.NewTicker(e.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Drain whatever is still buffered, then final flush
			for {
				select {
				case txn := <-e.journalBuffer:
					batch = append(batch, txn)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
			}
			return

		case txn := <-e.journalBuffer:
			batch = append(batch, txn)
			if len(batch) >= e.journalBatchSize {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*ledger.Transaction, 0, e.journalBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flushJournalBatch(ctx, batch)
				batch = make([]*ledger.Transaction, 0, e.journalBatchSize)
			}
		}
	}
}

func (e *Engine) flushJournalBatch(ctx context.Context, batch []*ledger.Transaction) {
	start := time.Now()

	if err := e.store.RecordTransactions(ctx, batch); err != nil {
		e.logger.Error("failed to flush journal batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	e.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	e.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func newTransaction(a *account.Account, delta, balanceAfter types.Points, reason ledger.Reason, fingerprint string, metadata map[string]string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:           id.NewTransactionID(),
		AccountID:    a.ID,
		UserID:       a.UserID,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		Reason:       reason,
		Fingerprint:  fingerprint,
		Timestamp:    time.Now().UTC(),
		Metadata:     metadata,
	}
}
