package ledger

import (
	"time"

	"github.com/xraph/replay/id"
	"github.com/xraph/replay/types"
)

// Reason tags a transaction with why the balance moved.
type Reason string

const (
	// ReasonAnalysisDebit is a debit taken before an external analysis call.
	ReasonAnalysisDebit Reason = "debit-for-analysis"
	// ReasonAnalysisRefund is the compensating credit after a failed analysis.
	// Every analysis debit is paired with at most one refund of equal magnitude.
	ReasonAnalysisRefund Reason = "refund-failed-analysis"
	// ReasonCharge is a credit purchase (top-up).
	ReasonCharge Reason = "charge"
	// ReasonAdminAdjustment is a manual balance correction.
	ReasonAdminAdjustment Reason = "admin-adjustment"
)

// Transaction is an audit record of a single balance mutation.
// The balance change itself happens synchronously in the account store;
// transactions are journaled after the fact for auditability.
type Transaction struct {
	ID           id.TransactionID  `json:"id"`
	AccountID    id.AccountID      `json:"account_id"`
	UserID       string            `json:"user_id"`
	Delta        types.Points      `json:"delta"`
	BalanceAfter types.Points      `json:"balance_after"`
	Reason       Reason            `json:"reason"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Summary aggregates transactions sharing a reason.
type Summary struct {
	Count int64        `json:"count"`
	Total types.Points `json:"total"`
}

// Statement is a per-user report of balance movement over a period.
type Statement struct {
	types.Entity
	ID          id.StatementID  `json:"id"`
	UserID      string          `json:"user_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Lines       []StatementLine `json:"lines"`
	NetChange   types.Points    `json:"net_change"`
}

// StatementLine is one reason's aggregate within a statement.
type StatementLine struct {
	Reason Reason       `json:"reason"`
	Count  int64        `json:"count"`
	Total  types.Points `json:"total"`
}
