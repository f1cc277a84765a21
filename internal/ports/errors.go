package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur while consulting a judge or an
// external service.
var (
	// ErrTokenLimitExceeded indicates that the LLM token limit has been
	// exceeded.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the judge returned an answer that
	// could not be interpreted.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCircuitOpen indicates that a judge is failing fast after repeated
	// errors.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrJudgeAborted indicates that the judge gave up on the tournament,
	// such as a human closing the input stream.
	ErrJudgeAborted = errors.New("judge aborted")

	// ErrBudgetExceeded indicates that a judge used up its call or token
	// allowance.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// JudgeError represents a failure to obtain an outcome from a judge.
// It includes the judge name, the matchup sequence number and any rate
// limit information.
type JudgeError struct {
	// Judge is the name of the judge that failed.
	Judge string

	// Seq is the sequence number of the matchup being judged.
	Seq int

	// Err is the underlying error that occurred.
	Err error

	// RetryAfter indicates how long to wait before retrying, if applicable.
	RetryAfter *time.Duration
}

// Error implements the error interface for JudgeError.
func (e *JudgeError) Error() string {
	msg := fmt.Sprintf("judge error: judge=%s, seq=%d, err=%v", e.Judge, e.Seq, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *JudgeError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and asking the judge
// again may succeed.
func (e *JudgeError) IsRetryable() bool {
	return IsRetryable(e.Err)
}

// NewJudgeError creates a new JudgeError with the given details.
func NewJudgeError(judge string, seq int, err error) *JudgeError {
	return &JudgeError{
		Judge: judge,
		Seq:   seq,
		Err:   err,
	}
}

// IsRetryable reports whether err describes a transient failure. Only
// network and service level errors qualify; an open circuit, bad
// credentials or a cancelled context do not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}

// BudgetExceededError reports which judge limit was hit.
type BudgetExceededError struct {
	// LimitType is "calls" or "tokens".
	LimitType string

	// Limit is the configured maximum.
	Limit int64

	// Used is the consumption that tripped the limit.
	Used int64

	// Judge is the name of the judge whose budget ran out.
	Judge string
}

// Error implements the error interface for BudgetExceededError.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: judge=%s, %s used=%d, limit=%d", e.Judge, e.LimitType, e.Used, e.Limit)
}

// Unwrap returns ErrBudgetExceeded.
func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

// NewBudgetExceededError creates a new BudgetExceededError.
func NewBudgetExceededError(limitType string, limit, used int64, judge string) *BudgetExceededError {
	return &BudgetExceededError{
		LimitType: limitType,
		Limit:     limit,
		Used:      used,
		Judge:     judge,
	}
}
