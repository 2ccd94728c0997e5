package account

import (
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// Account holds a user's prepaid analysis credit balance.
// Balance is mutated only through the engine's debit/credit operations
// and is never negative at any observable point.
type Account struct {
	types.Entity
	ID       id.AccountID      `json:"id"`
	UserID   string            `json:"user_id"`
	Tier     string            `json:"tier"`
	Status   Status            `json:"status"`
	Balance  types.Points      `json:"balance"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
