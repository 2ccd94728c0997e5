package pricing

import (
	"testing"

	"github.com/xraph/replay/types"
)

func TestCostMonotonicity(t *testing.T) {
	table := DefaultSchedule().TableFor("standard")

	prev := types.ZeroPoints
	for d := int64(1); d <= 4000; d++ {
		cost := table.Cost(d)
		if !cost.IsPositive() {
			t.Fatalf("cost for %ds is %v, want > 0", d, cost)
		}
		if cost.LessThan(prev) {
			t.Fatalf("cost decreased at %ds: %v < %v", d, cost, prev)
		}
		prev = cost
	}
}

func TestCostDeterministic(t *testing.T) {
	table := DefaultSchedule().TableFor("standard")
	for _, d := range []int64{1, 59, 60, 61, 300, 301, 1800, 1801, 7200} {
		a := table.Cost(d)
		b := table.Cost(d)
		if a != b {
			t.Errorf("cost for %ds not deterministic: %v != %v", d, a, b)
		}
	}
}

func TestCostNonPositiveDuration(t *testing.T) {
	table := DefaultSchedule().TableFor("standard")
	if got := table.Cost(0); !got.IsZero() {
		t.Errorf("cost for 0s: got %v, want 0", got)
	}
	if got := table.Cost(-10); !got.IsZero() {
		t.Errorf("cost for -10s: got %v, want 0", got)
	}
}

func TestStartedMinutes(t *testing.T) {
	tests := []struct {
		seconds int64
		minutes int64
	}{
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{600, 10},
		{601, 11},
	}

	for _, tt := range tests {
		if got := startedMinutes(tt.seconds); got != tt.minutes {
			t.Errorf("startedMinutes(%d): got %d, want %d", tt.seconds, got, tt.minutes)
		}
	}
}

func TestScheduleFallsBackToDefaultTier(t *testing.T) {
	s := DefaultSchedule()
	standard := s.CostFor("standard", 600)
	unknown := s.CostFor("no-such-tier", 600)
	if standard != unknown {
		t.Errorf("unknown tier should use default table: %v != %v", unknown, standard)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		table Table
	}{
		{"empty", Table{Tier: "t"}},
		{"bounded last band", Table{Tier: "t", Bands: []Band{{UpToSeconds: 600, FlatPoints: 10}}}},
		{"zero-priced band", Table{Tier: "t", Bands: []Band{{UpToSeconds: Unbounded}}}},
		{"out of order", Table{Tier: "t", Bands: []Band{
			{UpToSeconds: Unbounded, FlatPoints: 10},
			{UpToSeconds: 600, FlatPoints: 10},
		}}},
		{"non-monotonic edge", Table{Tier: "t", Bands: []Band{
			{UpToSeconds: 600, FlatPoints: 100},
			{UpToSeconds: Unbounded, FlatPoints: 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.table.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDefaultScheduleValid(t *testing.T) {
	if err := DefaultSchedule().Validate(); err != nil {
		t.Fatalf("default schedule invalid: %v", err)
	}
}

func TestPackages(t *testing.T) {
	pkgs := DefaultPackages()

	p, ok := FindPackage(pkgs, "creator")
	if !ok {
		t.Fatal("creator package not found")
	}
	if p.Total() != types.PointsOf(550) {
		t.Errorf("creator total: got %v, want 550", p.Total())
	}

	if _, ok := FindPackage(pkgs, "nope"); ok {
		t.Error("expected no package for unknown slug")
	}
}
