package replay_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/replay"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/store/memory"
	"github.com/xraph/replay/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		analyzer := analysis.AnalyzerFunc(func(_ context.Context, fp analysis.Fingerprint, _ int64) (*analysis.Result, error) {
			return &analysis.Result{
				Summary: "highlights for " + fp.Key(),
				Highlights: []analysis.Highlight{
					{Start: 12.5, End: 31.0, Reason: "goal", Score: 0.97},
				},
			}, nil
		})

		// Initialize the engine
		eng := replay.New(store,
			replay.WithLogger(slog.Default()),
			replay.WithAnalyzer(analyzer),
			replay.WithJournalConfig(100, 5*time.Second),
			replay.WithAnalysisTimeout(time.Minute),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Open an account and buy credits
		if _, err := eng.CreateAccount(ctx, "user_123", "standard"); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.RedeemPackage(ctx, "user_123", "creator"); err != nil {
			t.Fatal(err)
		}

		// Analyze a video
		outcome, err := eng.Analyze(ctx, "user_123", analysis.Fingerprint{
			ContentID: "dQw4w9WgXcQ",
			Platform:  "youtube",
		}, 480)
		if err != nil {
			t.Fatal(err)
		}

		if outcome.Cached {
			log.Printf("served from cache, nothing billed\n")
		} else {
			log.Printf("fresh analysis cost %s\n", outcome.PointsUsed)
		}

		// A second request for the same video is free
		again, err := eng.Analyze(ctx, "user_123", analysis.Fingerprint{
			ContentID: "dQw4w9WgXcQ",
			Platform:  "youtube",
		}, 480)
		if err != nil {
			t.Fatal(err)
		}
		if !again.Cached {
			t.Fatal("expected second request to be served from cache")
		}
	})

	// Test Points type examples
	t.Run("PointsExamples", func(t *testing.T) {
		// Constructors
		_ = types.PointsOf(250)
		_ = types.ZeroPoints

		// Arithmetic
		p1 := types.PointsOf(100)
		p2 := types.PointsOf(200)
		_ = p1.Add(p2)      // 300 pts
		_ = p1.Multiply(3)  // 300 pts
		_ = p2.Subtract(p1) // 100 pts

		// Comparison
		if p1.LessThan(p2) {
			// p1 is less than p2
		}

		// Formatting
		_ = p1.String() // "100 pts"
	})
}
