package mongo

import (
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

	ID        string            `grove:"id,pk"      bson:"_id"`
	UserID    string            `grove:"user_id"    bson:"user_id"`
	Tier      string            `grove:"tier"       bson:"tier"`
	Status    string            `grove:"status"     bson:"status"`
	Balance   int64             `grove:"balance"    bson:"balance"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
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

	ID           string            `grove:"id,pk"         bson:"_id"`
	AccountID    string            `grove:"account_id"    bson:"account_id"`
	UserID       string            `grove:"user_id"       bson:"user_id"`
	Delta        int64             `grove:"delta"         bson:"delta"`
	BalanceAfter int64             `grove:"balance_after" bson:"balance_after"`
	Reason       string            `grove:"reason"        bson:"reason"`
	Fingerprint  string            `grove:"fingerprint"   bson:"fingerprint,omitempty"`
	Timestamp    time.Time         `grove:"timestamp"     bson:"timestamp"`
	Metadata     map[string]string `grove:"metadata"      bson:"metadata,omitempty"`
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

	// The fingerprint key ("platform:contentID") is the document ID so
	// concurrent writers for the same video upsert into a single entry.
	Key             string           `grove:"key,pk"           bson:"_id"`
	AnalysisID      string           `grove:"analysis_id"      bson:"analysis_id"`
	ContentID       string           `grove:"content_id"       bson:"content_id"`
	Platform        string           `grove:"platform"         bson:"platform"`
	DurationSeconds int64            `grove:"duration_seconds" bson:"duration_seconds"`
	Summary         string           `grove:"summary"          bson:"summary"`
	Highlights      []highlightModel `grove:"highlights"       bson:"highlights,omitempty"`
	CachedAt        time.Time        `grove:"cached_at"        bson:"cached_at"`
}

type highlightModel struct {
	Start  float64 `bson:"start"`
	End    float64 `bson:"end"`
	Reason string  `bson:"reason"`
	Score  float64 `bson:"score"`
}

func toAnalysisModel(e *analysis.CacheEntry) *analysisModel {
	highlights := make([]highlightModel, len(e.Result.Highlights))
	for i, h := range e.Result.Highlights {
		highlights[i] = highlightModel{
			Start:  h.Start,
			End:    h.End,
			Reason: h.Reason,
			Score:  h.Score,
		}
	}
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
	highlights := make([]analysis.Highlight, len(m.Highlights))
	for i, h := range m.Highlights {
		highlights[i] = analysis.Highlight{
			Start:  h.Start,
			End:    h.End,
			Reason: h.Reason,
			Score:  h.Score,
		}
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
