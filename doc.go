// Package replay provides a credit-gated, cache-first video analysis engine
// for Go applications.
//
// Replay is designed as a library, not a service. Import it directly into your
// Go application for maximum performance and flexibility. It provides:
//
//   - Content-addressed result caching so the same video is analyzed once
//   - Prepaid credit accounts with strictly non-negative balances
//   - Duration-banded pricing with per-tier tables
//   - Automatic refunds when the analyzer fails or times out
//   - Sliding-window rate limiting for request admission
//   - High-throughput transaction journaling with batched flushes
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/replay"
//	    "github.com/xraph/replay/store/memory"
//	)
//
//	eng := replay.New(memory.New(),
//	    replay.WithAnalyzer(myAnalyzer),
//	)
//
//	// Start the engine (begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Accounts hold a user's prepaid analysis credits:
//
//	acct, err := eng.CreateAccount(ctx, "user-1", "standard")
//	eng.Credit(ctx, "user-1", replay.PointsOf(500), "")
//
// Analyze runs the cache-first, credit-gated pipeline:
//
//	outcome, err := eng.Analyze(ctx, "user-1", analysis.Fingerprint{
//	    ContentID: "dQw4w9WgXcQ",
//	    Platform:  "youtube",
//	}, 480)
//	if outcome.Cached {
//	    // Served from cache: nothing was billed
//	}
//
// A cache hit returns the stored result without touching the balance. On a
// miss, the account is debited before the analyzer runs; any analyzer error
// (including a timeout) triggers a compensating refund of the full debit.
//
// # Billing Semantics
//
// All point arithmetic is integer-only. Balances never go negative at any
// observable point: debits use conditional updates in the store, so a debit
// the balance cannot cover fails without mutating anything. Every balance
// mutation is journaled as a Transaction for audit.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	txn_01h2xcejqtf2nbrexx3vqjhp41   // Transaction ID
//	anl_01h455vb4pex5vsknk084sn02q   // Analysis ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package replay
