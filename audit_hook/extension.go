// Package audithook bridges Replay lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/replay/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnAccountCreated     = (*Extension)(nil)
	_ plugin.OnPointsCredited     = (*Extension)(nil)
	_ plugin.OnPointsDebited      = (*Extension)(nil)
	_ plugin.OnPointsRefunded     = (*Extension)(nil)
	_ plugin.OnInsufficientFunds  = (*Extension)(nil)
	_ plugin.OnAnalysisCompleted  = (*Extension)(nil)
	_ plugin.OnAnalysisFailed     = (*Extension)(nil)
	_ plugin.OnRateLimited        = (*Extension)(nil)
	_ plugin.OnStatementGenerated = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Replay lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, "", CategoryBilling, nil,
		"event", "account_created",
	)
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsCredited implements plugin.OnPointsCredited.
func (e *Extension) OnPointsCredited(ctx context.Context, userID string, points, balance int64) error {
	return e.record(ctx, ActionPointsCredited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, userID, CategoryBilling, nil,
		"user_id", userID,
		"points", points,
		"balance", balance,
	)
}

// OnPointsDebited implements plugin.OnPointsDebited.
func (e *Extension) OnPointsDebited(ctx context.Context, userID string, points, balance int64) error {
	return e.record(ctx, ActionPointsDebited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, userID, CategoryBilling, nil,
		"user_id", userID,
		"points", points,
		"balance", balance,
	)
}

// OnPointsRefunded implements plugin.OnPointsRefunded.
func (e *Extension) OnPointsRefunded(ctx context.Context, userID string, points, balance int64) error {
	return e.record(ctx, ActionPointsRefunded, SeverityWarning, OutcomeSuccess,
		ResourceBalance, userID, CategoryBilling, nil,
		"user_id", userID,
		"points", points,
		"balance", balance,
	)
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (e *Extension) OnInsufficientFunds(ctx context.Context, userID string, required, current int64) error {
	return e.record(ctx, ActionInsufficientFunds, SeverityWarning, OutcomeFailure,
		ResourceBalance, userID, CategoryBilling, nil,
		"user_id", userID,
		"required", required,
		"current", current,
	)
}

// ──────────────────────────────────────────────────
// Analysis lifecycle hooks
// ──────────────────────────────────────────────────

// OnAnalysisCompleted implements plugin.OnAnalysisCompleted.
func (e *Extension) OnAnalysisCompleted(ctx context.Context, fingerprint string, pointsUsed int64, _ time.Duration) error {
	return e.record(ctx, ActionAnalysisCompleted, SeverityInfo, OutcomeSuccess,
		ResourceAnalysis, fingerprint, CategoryAnalysis, nil,
		"fingerprint", fingerprint,
		"points_used", pointsUsed,
	)
}

// OnAnalysisFailed implements plugin.OnAnalysisFailed.
func (e *Extension) OnAnalysisFailed(ctx context.Context, fingerprint string, err error) error {
	return e.record(ctx, ActionAnalysisFailed, SeverityError, OutcomeFailure,
		ResourceAnalysis, fingerprint, CategoryAnalysis, err,
		"fingerprint", fingerprint,
	)
}

// ──────────────────────────────────────────────────
// Rate limit hooks
// ──────────────────────────────────────────────────

// OnRateLimited implements plugin.OnRateLimited.
func (e *Extension) OnRateLimited(ctx context.Context, policy, identifier string) error {
	return e.record(ctx, ActionRateLimited, SeverityWarning, OutcomeFailure,
		ResourceRateLimit, identifier, CategoryAccess, nil,
		"policy", policy,
		"identifier", identifier,
	)
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementGenerated implements plugin.OnStatementGenerated.
func (e *Extension) OnStatementGenerated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionStatementGenerated, SeverityInfo, OutcomeSuccess,
		ResourceStatement, "", CategoryBilling, nil,
		"event", "statement_generated",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
