package ledger

import (
	"context"
	"time"
)

type Store interface {
	RecordTransactions(ctx context.Context, txns []*Transaction) error
	QueryTransactions(ctx context.Context, userID string, opts QueryOpts) ([]*Transaction, error)
	SummarizeTransactions(ctx context.Context, userID string, start, end time.Time) (map[Reason]Summary, error)
	PurgeTransactions(ctx context.Context, before time.Time) (int64, error)
}

type QueryOpts struct {
	Reason Reason
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
