// Package apperr provides the error taxonomy shared by every component of
// the control plane: a closed set of codes, their HTTP mapping, retry and
// severity classification.
package apperr

// Code is a closed enum identifying a category of failure.
type Code string

const (
	CodeUsage       Code = "USAGE_ERROR"
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeResolution  Code = "RESOLUTION_ERROR"
	CodeConflict    Code = "CONFLICT_ERROR"
	CodeExecution   Code = "EXECUTION_ERROR"
	CodeRateLimited Code = "RATE_LIMITED"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeNotFound    Code = "NOT_FOUND"
	CodeTimeout     Code = "TIMEOUT"
	CodeFatal       Code = "FATAL"
)

// HTTPStatusCode returns the status code a handler should write for this code.
func (c Code) HTTPStatusCode() int {
	switch c {
	case CodeUsage, CodeValidation, CodeResolution:
		return 400
	case CodeConflict:
		return 409
	case CodeNotFound:
		return 404
	case CodeRateLimited:
		return 429
	case CodePayloadTooLarge:
		return 413
	case CodeTimeout:
		return 504
	case CodeExecution, CodeFatal:
		return 500
	default:
		return 500
	}
}

// IsRetryable reports whether a caller may reasonably retry the request
// unmodified (true only for transient infrastructure conditions).
func (c Code) IsRetryable() bool {
	switch c {
	case CodeTimeout, CodeRateLimited:
		return true
	default:
		return false
	}
}

// Severity classifies the code for logging and alerting purposes.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severity returns the severity level associated with the code.
func (c Code) Severity() Severity {
	switch c {
	case CodeFatal:
		return SeverityCritical
	case CodeExecution, CodeTimeout:
		return SeverityHigh
	case CodeConflict, CodeRateLimited:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (c Code) String() string { return string(c) }
