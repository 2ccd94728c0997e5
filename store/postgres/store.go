package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/replay"
	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	replaystore "github.com/xraph/replay/store"
	"github.com/xraph/replay/types"
)

// compile-time interface check
var _ replaystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("replay/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("replay/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, replay.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) GetAccountByUser(ctx context.Context, userID string) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, replay.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.pg.NewSelect(&models)

	if opts.Tier != "" {
		q = q.Where("tier = ?", opts.Tier)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) SetAccountStatus(ctx context.Context, userID string, status account.Status) error {
	res, err := s.pg.NewUpdate((*accountModel)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", now()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("replay/postgres: set account status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replay/postgres: set account status: %w", err)
	}
	if rows == 0 {
		return replay.ErrAccountNotFound
	}
	return nil
}

// AdjustBalance applies the delta with a single guarded UPDATE. The
// WHERE clause keeps a debit from driving the balance negative, so a
// losing concurrent debit updates zero rows and nothing is written.
func (s *Store) AdjustBalance(ctx context.Context, userID string, delta types.Points) (types.Points, error) {
	var balance int64
	err := s.pg.NewRaw(`
		UPDATE replay_accounts
		SET balance = balance + ?, updated_at = ?
		WHERE user_id = ? AND balance + ? >= 0
		RETURNING balance
	`, delta.Int64(), now(), userID, delta.Int64()).Scan(ctx, &balance)
	if err == nil {
		return types.PointsOf(balance), nil
	}
	if !isNoRows(err) {
		return types.ZeroPoints, fmt.Errorf("replay/postgres: adjust balance: %w", err)
	}

	// Zero rows: the account is missing or the guarded debit lost.
	current, getErr := s.GetAccountByUser(ctx, userID)
	if getErr != nil {
		return types.ZeroPoints, replay.ErrAccountNotFound
	}
	return current.Balance, &replay.InsufficientFundsError{
		Required: delta.Negate(),
		Current:  current.Balance,
	}
}

// ==================== Transaction Store ====================

func (s *Store) RecordTransactions(ctx context.Context, txns []*ledger.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	models := make([]transactionModel, len(txns))
	for i, t := range txns {
		models[i] = *toTransactionModel(t)
	}
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) QueryTransactions(ctx context.Context, userID string, opts ledger.QueryOpts) ([]*ledger.Transaction, error) {
	var models []transactionModel
	q := s.pg.NewSelect(&models).Where("user_id = ?", userID)

	if opts.Reason != "" {
		q = q.Where("reason = ?", string(opts.Reason))
	}
	if !opts.Start.IsZero() {
		q = q.Where("timestamp >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("timestamp < ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("timestamp DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*ledger.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) SummarizeTransactions(ctx context.Context, userID string, start, end time.Time) (map[ledger.Reason]ledger.Summary, error) {
	var models []transactionModel
	q := s.pg.NewSelect(&models).Where("user_id = ?", userID)

	if !start.IsZero() {
		q = q.Where("timestamp >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("timestamp < ?", end)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make(map[ledger.Reason]ledger.Summary)
	for i := range models {
		reason := ledger.Reason(models[i].Reason)
		sum := result[reason]
		sum.Count++
		sum.Total = sum.Total.Add(types.PointsOf(models[i].Delta))
		result[reason] = sum
	}
	return result, nil
}

func (s *Store) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*transactionModel)(nil)).
		Where("timestamp < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ==================== Analysis Cache Store ====================

func (s *Store) GetAnalysis(ctx context.Context, fp analysis.Fingerprint) (*analysis.CacheEntry, error) {
	m := new(analysisModel)
	err := s.pg.NewSelect(m).
		Where("key = ?", fp.Key()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, replay.ErrCacheMiss
		}
		return nil, err
	}
	return fromAnalysisModel(m)
}

func (s *Store) PutAnalysis(ctx context.Context, entry *analysis.CacheEntry) error {
	m := toAnalysisModel(entry)
	_, err := s.pg.NewInsert(m).
		OnConflict("(key) DO UPDATE").
		Set("analysis_id = EXCLUDED.analysis_id").
		Set("content_id = EXCLUDED.content_id").
		Set("platform = EXCLUDED.platform").
		Set("duration_seconds = EXCLUDED.duration_seconds").
		Set("summary = EXCLUDED.summary").
		Set("highlights = EXCLUDED.highlights").
		Set("cached_at = EXCLUDED.cached_at").
		Exec(ctx)
	return err
}

func (s *Store) DeleteAnalysis(ctx context.Context, fp analysis.Fingerprint) error {
	_, err := s.pg.NewDelete((*analysisModel)(nil)).
		Where("key = ?", fp.Key()).
		Exec(ctx)
	return err
}

func (s *Store) PurgeAnalyses(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*analysisModel)(nil)).
		Where("cached_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
