package analysis

import "context"

// Analyzer is the external analysis capability. It is opaque, slow, and
// fallible; the engine treats any error (including context deadline
// expiry) identically and refunds the debit taken for the call.
type Analyzer interface {
	Run(ctx context.Context, fp Fingerprint, durationSeconds int64) (*Result, error)
}

// AnalyzerFunc adapts a plain function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, fp Fingerprint, durationSeconds int64) (*Result, error)

// Run implements Analyzer.
func (f AnalyzerFunc) Run(ctx context.Context, fp Fingerprint, durationSeconds int64) (*Result, error) {
	return f(ctx, fp, durationSeconds)
}
