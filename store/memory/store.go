package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/replay"
	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	"github.com/xraph/replay/types"
)

type Store struct {
	mu sync.RWMutex

	// Account storage, keyed by account ID with a userID lookup index
	accounts map[string]*account.Account
	byUser   map[string]string

	// Transaction journal, append-only
	transactions []ledger.Transaction

	// Analysis result cache, keyed by fingerprint
	analyses map[string]*analysis.CacheEntry

	closed bool
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*account.Account),
		byUser:       make(map[string]string),
		transactions: make([]ledger.Transaction, 0),
		analyses:     make(map[string]*analysis.CacheEntry),
	}
}

// Account Store implementation
func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return replay.ErrAccountExists
	}
	if _, exists := s.byUser[a.UserID]; exists {
		return replay.ErrAccountExists
	}
	cp := *a
	s.accounts[a.ID.String()] = &cp
	s.byUser[a.UserID] = a.ID.String()
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, replay.ErrAccountNotFound
}

func (s *Store) GetAccountByUser(_ context.Context, userID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if key, ok := s.byUser[userID]; ok {
		if a, ok := s.accounts[key]; ok {
			cp := *a
			return &cp, nil
		}
	}
	return nil, replay.ErrAccountNotFound
}

func (s *Store) ListAccounts(_ context.Context, opts account.ListOpts) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if opts.Tier != "" && a.Tier != opts.Tier {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) SetAccountStatus(_ context.Context, userID string, status account.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byUser[userID]
	if !ok {
		return replay.ErrAccountNotFound
	}
	a := s.accounts[key]
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, userID string, delta types.Points) (types.Points, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byUser[userID]
	if !ok {
		return types.ZeroPoints, replay.ErrAccountNotFound
	}
	a := s.accounts[key]

	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return a.Balance, &replay.InsufficientFundsError{
			Required: delta.Negate(),
			Current:  a.Balance,
		}
	}
	a.Balance = next
	a.UpdatedAt = time.Now()
	return next, nil
}

// Transaction Store implementation
func (s *Store) RecordTransactions(_ context.Context, txns []*ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range txns {
		s.transactions = append(s.transactions, *t)
	}
	return nil
}

func (s *Store) QueryTransactions(_ context.Context, userID string, opts ledger.QueryOpts) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ledger.Transaction, 0)
	for i := range s.transactions {
		t := s.transactions[i]
		if t.UserID != userID {
			continue
		}
		if opts.Reason != "" && t.Reason != opts.Reason {
			continue
		}
		if !opts.Start.IsZero() && t.Timestamp.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !t.Timestamp.Before(opts.End) {
			continue
		}
		cp := t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) SummarizeTransactions(_ context.Context, userID string, start, end time.Time) (map[ledger.Reason]ledger.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[ledger.Reason]ledger.Summary)
	for i := range s.transactions {
		t := s.transactions[i]
		if t.UserID != userID {
			continue
		}
		if !start.IsZero() && t.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !t.Timestamp.Before(end) {
			continue
		}
		sum := result[t.Reason]
		sum.Count++
		sum.Total = sum.Total.Add(t.Delta)
		result[t.Reason] = sum
	}
	return result, nil
}

func (s *Store) PurgeTransactions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	kept := make([]ledger.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if t.Timestamp.Before(before) {
			count++
		} else {
			kept = append(kept, t)
		}
	}
	s.transactions = kept
	return count, nil
}

// Analysis cache implementation
func (s *Store) GetAnalysis(_ context.Context, fp analysis.Fingerprint) (*analysis.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.analyses[fp.Key()]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, replay.ErrCacheMiss
}

func (s *Store) PutAnalysis(_ context.Context, entry *analysis.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.analyses[entry.Fingerprint.Key()] = &cp
	return nil
}

func (s *Store) DeleteAnalysis(_ context.Context, fp analysis.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.analyses, fp.Key())
	return nil
}

func (s *Store) PurgeAnalyses(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for key, entry := range s.analyses {
		if entry.CachedAt.Before(before) {
			delete(s.analyses, key)
			count++
		}
	}
	return count, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
