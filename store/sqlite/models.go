package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	"github.com/xraph/replay/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:replay_accounts"`

	ID        string            `grove:"id,pk"`
	UserID    string            `grove:"user_id"`
	Tier      string            `grove:"tier"`
	Status    string            `grove:"status"`
	Balance   int64             `grove:"balance"`
	Metadata  map[string]string `grove:"metadata,type:json"`
	CreatedAt time.Time         `grove:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID.String(),
		UserID:    a.UserID,
		Tier:      a.Tier,
		Status:    string(a.Status),
		Balance:   a.Balance.Int64(),
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       accountID,
		UserID:   m.UserID,
		Tier:     m.Tier,
		Status:   account.Status(m.Status),
		Balance:  types.PointsOf(m.Balance),
		Metadata: m.Metadata,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:replay_transactions"`

	ID           string            `grove:"id,pk"`
	AccountID    string            `grove:"account_id"`
	UserID       string            `grove:"user_id"`
	Delta        int64             `grove:"delta"`
	BalanceAfter int64             `grove:"balance_after"`
	Reason       string            `grove:"reason"`
	Fingerprint  string            `grove:"fingerprint"`
	Timestamp    time.Time         `grove:"timestamp"`
	Metadata     map[string]string `grove:"metadata,type:json"`
}

func toTransactionModel(t *ledger.Transaction) *transactionModel {
	return &transactionModel{
		ID:           t.ID.String(),
		AccountID:    t.AccountID.String(),
		UserID:       t.UserID,
		Delta:        t.Delta.Int64(),
		BalanceAfter: t.BalanceAfter.Int64(),
		Reason:       string(t.Reason),
		Fingerprint:  t.Fingerprint,
		Timestamp:    t.Timestamp,
		Metadata:     t.Metadata,
	}
}

func fromTransactionModel(m *transactionModel) (*ledger.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &ledger.Transaction{
		ID:           txnID,
		AccountID:    accountID,
		UserID:       m.UserID,
		Delta:        types.PointsOf(m.Delta),
		BalanceAfter: types.PointsOf(m.BalanceAfter),
		Reason:       ledger.Reason(m.Reason),
		Fingerprint:  m.Fingerprint,
		Timestamp:    m.Timestamp,
		Metadata:     m.Metadata,
	}, nil
}

// ==================== Analysis cache models ====================

type analysisModel struct {
	grove.BaseModel `grove:"table:replay_analyses"`

	Key             string          `grove:"key,pk"`
	AnalysisID      string          `grove:"analysis_id"`
	ContentID       string          `grove:"content_id"`
	Platform        string          `grove:"platform"`
	DurationSeconds int64           `grove:"duration_seconds"`
	Summary         string          `grove:"summary"`
	Highlights      json.RawMessage `grove:"highlights,type:json"`
	CachedAt        time.Time       `grove:"cached_at"`
}

func toAnalysisModel(e *analysis.CacheEntry) *analysisModel {
	highlights, _ := json.Marshal(e.Result.Highlights) //nolint:errcheck // best-effort
	return &analysisModel{
		Key:             e.Fingerprint.Key(),
		AnalysisID:      e.ID.String(),
		ContentID:       e.Fingerprint.ContentID,
		Platform:        e.Fingerprint.Platform,
		DurationSeconds: e.DurationSeconds,
		Summary:         e.Result.Summary,
		Highlights:      highlights,
		CachedAt:        e.CachedAt,
	}
}

func fromAnalysisModel(m *analysisModel) (*analysis.CacheEntry, error) {
	analysisID, err := id.ParseAnalysisID(m.AnalysisID)
	if err != nil {
		return nil, err
	}

	var highlights []analysis.Highlight
	if len(m.Highlights) > 0 && string(m.Highlights) != "null" {
		_ = json.Unmarshal(m.Highlights, &highlights) //nolint:errcheck // best-effort
	}

	return &analysis.CacheEntry{
		ID: analysisID,
		Fingerprint: analysis.Fingerprint{
			ContentID: m.ContentID,
			Platform:  m.Platform,
		},
		DurationSeconds: m.DurationSeconds,
		Result: analysis.Result{
			Summary:    m.Summary,
			Highlights: highlights,
		},
		CachedAt: m.CachedAt,
	}, nil
}
