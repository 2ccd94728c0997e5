package analysis

import (
	"time"

	"github.com/xraph/replay/id"
	"github.com/xraph/replay/types"
)

// Fingerprint identifies one unit of billable analysis work: the same
// content on the same platform is the same work, no matter who asks.
// Two requests with equal fingerprints must never both be billed.
type Fingerprint struct {
	ContentID string `json:"content_id"`
	Platform  string `json:"platform"`
}

// Key returns the canonical cache key ("platform:contentID").
func (f Fingerprint) Key() string {
	return f.Platform + ":" + f.ContentID
}

// IsZero reports whether either component is missing.
func (f Fingerprint) IsZero() bool {
	return f.ContentID == "" || f.Platform == ""
}

func (f Fingerprint) String() string { return f.Key() }

// Highlight is one scored segment of the analyzed content.
type Highlight struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// Result is the output of one analysis. Produced once per fingerprint,
// immutable thereafter.
type Result struct {
	Summary    string      `json:"summary"`
	Highlights []Highlight `json:"highlights"`
}

// CacheEntry wraps a Result for storage. Entries are created only on
// analyzer success, never mutated, and deleted only by administrative
// invalidation.
type CacheEntry struct {
	ID              id.AnalysisID `json:"id"`
	Fingerprint     Fingerprint   `json:"fingerprint"`
	DurationSeconds int64         `json:"duration_seconds"`
	Result          Result        `json:"result"`
	CachedAt        time.Time     `json:"cached_at"`
}

// Outcome is what the engine returns for an analysis request: the result
// plus whether it was served from cache and how many points the caller paid.
type Outcome struct {
	Result     *Result      `json:"result"`
	Cached     bool         `json:"cached"`
	PointsUsed types.Points `json:"points_used"`
}
