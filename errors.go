package replay

import (
	"errors"
	"fmt"

	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("replay: not found")
	ErrAlreadyExists = errors.New("replay: already exists")
	ErrInvalidInput  = errors.New("replay: invalid input")
	ErrUnauthorized  = errors.New("replay: unauthorized")

	// Account errors
	ErrAccountNotFound  = errors.New("replay: account not found")
	ErrAccountExists    = errors.New("replay: account already exists")
	ErrAccountSuspended = errors.New("replay: account suspended")

	// Balance errors
	ErrInvalidAmount     = errors.New("replay: amount must be a positive integer")
	ErrInsufficientFunds = errors.New("replay: insufficient funds")

	// Analysis errors
	ErrAnalysisFailed        = errors.New("replay: analysis failed")
	ErrAnalyzerNotConfigured = errors.New("replay: no analyzer configured")
	ErrUnknownPackage        = errors.New("replay: unknown credit package")

	// Journal errors
	ErrJournalBufferFull = errors.New("replay: journal buffer full")

	// Store errors
	ErrStoreNotReady     = errors.New("replay: store not ready")
	ErrStoreClosed       = errors.New("replay: store is closed")
	ErrTransactionFailed = errors.New("replay: transaction failed")
	ErrMigrationFailed   = errors.New("replay: migration failed")

	// Cache errors
	ErrCacheMiss = errors.New("replay: cache miss")
)

// InsufficientFundsError reports a debit that the balance cannot cover.
// No mutation is performed when this error is returned.
type InsufficientFundsError struct {
	Required types.Points
	Current  types.Points
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("replay: insufficient funds: required %d, current %d",
		e.Required.Int64(), e.Current.Int64())
}

// Unwrap makes errors.Is(err, ErrInsufficientFunds) true.
func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// AnalysisError reports a failed external analysis call. When Refunded
// is true the debit taken for the call was returned in full, so the
// caller may retry freely from a billing perspective.
type AnalysisError struct {
	Fingerprint analysis.Fingerprint
	Points      types.Points
	Refunded    bool
	Err         error
}

func (e *AnalysisError) Error() string {
	if e.Refunded {
		return fmt.Sprintf("replay: analysis of %s failed (%d points refunded): %v",
			e.Fingerprint, e.Points.Int64(), e.Err)
	}
	return fmt.Sprintf("replay: analysis of %s failed: %v", e.Fingerprint, e.Err)
}

// Unwrap makes errors.Is(err, ErrAnalysisFailed) true and exposes the
// underlying analyzer error.
func (e *AnalysisError) Unwrap() []error { return []error{ErrAnalysisFailed, e.Err} }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("replay: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrInvalidInput) true.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsInsufficientFunds returns true if the error is a balance shortfall.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsInvalidInput returns true if the error is a caller input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsCacheMiss returns true if the error is a result cache miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrJournalBufferFull) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrAnalysisFailed)
}
