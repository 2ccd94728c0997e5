package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated = "account.created"

	// Balance actions
	ActionPointsCredited    = "points.credited"
	ActionPointsDebited     = "points.debited"
	ActionPointsRefunded    = "points.refunded"
	ActionInsufficientFunds = "points.insufficient"

	// Analysis actions
	ActionAnalysisCompleted = "analysis.completed"
	ActionAnalysisFailed    = "analysis.failed"
	ActionCacheInvalidated  = "cache.invalidated"

	// Rate limit actions
	ActionRateLimited = "ratelimit.rejected"

	// Statement actions
	ActionStatementGenerated = "statement.generated"
)

// Resource constants for audit events.
const (
	ResourceAccount   = "account"
	ResourceBalance   = "balance"
	ResourceAnalysis  = "analysis"
	ResourceRateLimit = "ratelimit"
	ResourceStatement = "statement"
)

// Category constants for audit events.
const (
	CategoryBilling  = "billing"
	CategoryAnalysis = "analysis"
	CategoryAccess   = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
