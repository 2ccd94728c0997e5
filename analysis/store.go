package analysis

import (
	"context"
	"time"
)

// Store is the content-addressed result cache. Lookups are pure reads;
// Put is an idempotent upsert (last write wins) — the store itself takes
// no locks across a lookup/put pair.
type Store interface {
	GetAnalysis(ctx context.Context, fp Fingerprint) (*CacheEntry, error)
	PutAnalysis(ctx context.Context, entry *CacheEntry) error
	DeleteAnalysis(ctx context.Context, fp Fingerprint) error
	PurgeAnalyses(ctx context.Context, before time.Time) (int64, error)
}
