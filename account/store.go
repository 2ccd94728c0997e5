package account

import (
	"context"

	"github.com/xraph/replay/id"
	"github.com/xraph/replay/types"
)

type Store interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
	GetAccountByUser(ctx context.Context, userID string) (*Account, error)
	ListAccounts(ctx context.Context, opts ListOpts) ([]*Account, error)
	SetAccountStatus(ctx context.Context, userID string, status Status) error

	// AdjustBalance applies a signed delta to the account balance and
	// returns the new balance. The update must be atomic with respect to
	// concurrent adjustments on the same user: a negative delta that would
	// drive the balance below zero fails without mutating anything.
	AdjustBalance(ctx context.Context, userID string, delta types.Points) (types.Points, error)
}

type ListOpts struct {
	Tier   string
	Status Status
	Limit  int
	Offset int
}
