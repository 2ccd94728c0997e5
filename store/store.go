package store

import (
	"context"
	"time"

	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	"github.com/xraph/replay/types"
)

// Store is the unified storage interface for all Replay entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetAccountByUser(ctx context.Context, userID string) (*account.Account, error)
	ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error)
	SetAccountStatus(ctx context.Context, userID string, status account.Status) error

	// AdjustBalance atomically applies a signed delta to the account
	// balance and returns the new balance. Implementations must use a
	// conditional read-modify-write (document-level conditional update,
	// guarded SQL UPDATE, or a per-store lock): a negative delta that
	// would drive the balance below zero returns ErrInsufficientFunds
	// without mutating anything, and no interleaving of concurrent
	// adjustments may observe or produce a negative balance.
	AdjustBalance(ctx context.Context, userID string, delta types.Points) (types.Points, error)

	// Transaction methods
	RecordTransactions(ctx context.Context, txns []*ledger.Transaction) error
	QueryTransactions(ctx context.Context, userID string, opts ledger.QueryOpts) ([]*ledger.Transaction, error)
	SummarizeTransactions(ctx context.Context, userID string, start, end time.Time) (map[ledger.Reason]ledger.Summary, error)
	PurgeTransactions(ctx context.Context, before time.Time) (int64, error)

	// Analysis cache methods
	GetAnalysis(ctx context.Context, fp analysis.Fingerprint) (*analysis.CacheEntry, error)
	PutAnalysis(ctx context.Context, entry *analysis.CacheEntry) error
	DeleteAnalysis(ctx context.Context, fp analysis.Fingerprint) error
	PurgeAnalyses(ctx context.Context, before time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
