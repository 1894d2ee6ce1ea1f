package apperr

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is the single error type crossing service boundaries. The code
// distinguishes caller mistakes (E100) from backend failures (E200+); the
// boundary layer maps them to HTTP status codes.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError marks caller-supplied data as violating a domain rule.
// Never retryable; surfaced as a client-input failure.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewPersistenceError wraps a store I/O or constraint failure. The original
// message is preserved through the cause chain; the service layer never
// retries these.
func NewPersistenceError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("persistence error: %s", underlyingMsg),
		UserMessage: "Temporary storage problem, try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewExternalAPIError wraps a failure of an upstream service (Telegram, price
// source).
func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "Upstream service temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}
