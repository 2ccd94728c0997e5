package types

import (
	"encoding/json"
	"testing"
)

func TestPointsArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Points
		expected Points
	}{
		{"Add", func() Points { return PointsOf(100).Add(PointsOf(200)) }, PointsOf(300)},
		{"Subtract", func() Points { return PointsOf(500).Subtract(PointsOf(200)) }, PointsOf(300)},
		{"Multiply", func() Points { return PointsOf(100).Multiply(3) }, PointsOf(300)},
		{"Negate", func() Points { return PointsOf(100).Negate() }, PointsOf(-100)},
		{"Abs positive", func() Points { return PointsOf(100).Abs() }, PointsOf(100)},
		{"Abs negative", func() Points { return PointsOf(-100).Abs() }, PointsOf(100)},
		{"Complex", func() Points {
			return PointsOf(1000).Add(PointsOf(500)).Multiply(2).Subtract(PointsOf(1000))
		}, PointsOf(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if result != tt.expected {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPointsComparisons(t *testing.T) {
	if !PointsOf(0).IsZero() {
		t.Error("PointsOf(0) should be zero")
	}
	if !PointsOf(1).IsPositive() {
		t.Error("PointsOf(1) should be positive")
	}
	if !PointsOf(-1).IsNegative() {
		t.Error("PointsOf(-1) should be negative")
	}
	if !PointsOf(10).LessThan(PointsOf(20)) {
		t.Error("10 should be less than 20")
	}
	if !PointsOf(20).GreaterThan(PointsOf(10)) {
		t.Error("20 should be greater than 10")
	}
	if PointsOf(10).Min(PointsOf(20)) != PointsOf(10) {
		t.Error("Min(10, 20) should be 10")
	}
	if PointsOf(10).Max(PointsOf(20)) != PointsOf(20) {
		t.Error("Max(10, 20) should be 20")
	}
}

func TestPointsString(t *testing.T) {
	tests := []struct {
		points  Points
		display string
	}{
		{PointsOf(250), "250 pts"},
		{PointsOf(0), "0 pts"},
		{PointsOf(-40), "-40 pts"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := tt.points.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestPointsJSONRoundTrip(t *testing.T) {
	original := PointsOf(1250)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored Points
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if restored != original {
		t.Errorf("round-trip mismatch: %v != %v", restored, original)
	}
}
