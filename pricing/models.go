// Package pricing defines the cost curve for analysis work and the
// credit packages users can purchase.
//
// The cost of an analysis is a pure, deterministic function of content
// duration: monotonically non-decreasing, always positive for positive
// durations. Curves are expressed as band tables keyed by account tier
// and injected as configuration, never hard-coded branches.
package pricing

import (
	"fmt"
	"sort"

	"github.com/xraph/replay/types"
)

// Unbounded marks the open upper edge of the last band in a table.
const Unbounded int64 = -1

// Band prices durations up to UpToSeconds (inclusive). The charge is
// FlatPoints plus PointsPerMinute for every started minute.
type Band struct {
	UpToSeconds     int64        `json:"up_to_seconds"`
	FlatPoints      types.Points `json:"flat_points"`
	PointsPerMinute types.Points `json:"points_per_minute"`
}

// Table is one tier's cost curve: bands ordered by UpToSeconds with the
// last band unbounded.
type Table struct {
	Tier  string `json:"tier"`
	Bands []Band `json:"bands"`
}

// Cost computes the points required for a duration. Returns zero for
// non-positive durations; callers reject those as invalid input before
// pricing is consulted.
func (t Table) Cost(durationSeconds int64) types.Points {
	if durationSeconds <= 0 {
		return 0
	}

	for _, b := range t.Bands {
		if b.UpToSeconds == Unbounded || durationSeconds <= b.UpToSeconds {
			return b.FlatPoints + b.PointsPerMinute.Multiply(startedMinutes(durationSeconds))
		}
	}

	// No matching band is a configuration error caught by Validate;
	// fall back to the last band so Cost stays total.
	last := t.Bands[len(t.Bands)-1]
	return last.FlatPoints + last.PointsPerMinute.Multiply(startedMinutes(durationSeconds))
}

// Validate checks that the table is well-formed: at least one band,
// bands ordered, last band unbounded, every positive duration priced
// above zero, and cost monotonically non-decreasing across band edges.
func (t Table) Validate() error {
	if len(t.Bands) == 0 {
		return fmt.Errorf("pricing: table %q has no bands", t.Tier)
	}

	if !sort.SliceIsSorted(t.Bands, func(i, j int) bool {
		a, b := t.Bands[i].UpToSeconds, t.Bands[j].UpToSeconds
		if a == Unbounded {
			return false
		}
		if b == Unbounded {
			return true
		}
		return a < b
	}) {
		return fmt.Errorf("pricing: table %q bands out of order", t.Tier)
	}

	last := t.Bands[len(t.Bands)-1]
	if last.UpToSeconds != Unbounded {
		return fmt.Errorf("pricing: table %q last band must be unbounded", t.Tier)
	}

	for i, b := range t.Bands {
		if b.UpToSeconds != Unbounded && b.UpToSeconds <= 0 {
			return fmt.Errorf("pricing: table %q band %d has non-positive edge", t.Tier, i)
		}
		if b.FlatPoints.IsNegative() || b.PointsPerMinute.IsNegative() {
			return fmt.Errorf("pricing: table %q band %d has negative points", t.Tier, i)
		}
		if b.FlatPoints.IsZero() && b.PointsPerMinute.IsZero() {
			return fmt.Errorf("pricing: table %q band %d prices work at zero", t.Tier, i)
		}
	}

	// Crossing a band edge must never lower the price.
	for i := 0; i < len(t.Bands)-1; i++ {
		edge := t.Bands[i].UpToSeconds
		atEdge := t.Cost(edge)
		justAfter := t.Cost(edge + 1)
		if justAfter.LessThan(atEdge) {
			return fmt.Errorf("pricing: table %q not monotonic at %ds", t.Tier, edge)
		}
	}

	return nil
}

// startedMinutes returns the number of minutes started by a duration
// (600s -> 10, 601s -> 11).
func startedMinutes(durationSeconds int64) int64 {
	return (durationSeconds + 59) / 60
}

// Schedule maps account tiers to cost tables.
type Schedule struct {
	DefaultTier string           `json:"default_tier"`
	Tables      map[string]Table `json:"tables"`
}

// TableFor returns the table for a tier, falling back to the default
// tier for unknown or empty tiers.
func (s Schedule) TableFor(tier string) Table {
	if t, ok := s.Tables[tier]; ok {
		return t
	}
	return s.Tables[s.DefaultTier]
}

// CostFor prices a duration against a tier's table.
func (s Schedule) CostFor(tier string, durationSeconds int64) types.Points {
	return s.TableFor(tier).Cost(durationSeconds)
}

// Validate checks every table plus the default-tier reference.
func (s Schedule) Validate() error {
	if _, ok := s.Tables[s.DefaultTier]; !ok {
		return fmt.Errorf("pricing: default tier %q has no table", s.DefaultTier)
	}
	for _, t := range s.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSchedule returns the built-in cost schedule: a single
// "standard" tier charging a flat base plus per-minute points.
func DefaultSchedule() Schedule {
	return Schedule{
		DefaultTier: "standard",
		Tables: map[string]Table{
			"standard": {
				Tier: "standard",
				Bands: []Band{
					{UpToSeconds: 300, FlatPoints: 10, PointsPerMinute: 0},
					{UpToSeconds: 1800, FlatPoints: 0, PointsPerMinute: 3},
					{UpToSeconds: Unbounded, FlatPoints: 30, PointsPerMinute: 4},
				},
			},
		},
	}
}
