package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while running a tournament.
var (
	// ErrInvalidMatchupResponse indicates that an outcome does not describe
	// the most recently returned matchup: it names foreign or duplicate
	// items, leaves members out, or arrives when no matchup is pending.
	ErrInvalidMatchupResponse = errors.New("invalid matchup response")

	// ErrPrematureExtraction indicates that a result was requested before
	// every item received its final position.
	ErrPrematureExtraction = errors.New("ranking not complete")

	// ErrDegenerateInput describes input with fewer items than the matchup
	// size. It is informational: New accepts such input and serves a single
	// matchup holding every item.
	ErrDegenerateInput = errors.New("fewer items than matchup size")

	// ErrInvalidConfiguration indicates that tournament configuration is
	// invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownStrategy indicates an unrecognized resolution strategy.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// MatchupError reports a rejected outcome. It names the operation, the
// matchup sequence number and, when one is at fault, the offending item.
type MatchupError struct {
	// Operation is the resolution strategy or call that failed.
	Operation string

	// Seq is the sequence number of the pending matchup, or 0 when none.
	Seq int

	// Item is the item that caused the rejection, or NoItem.
	Item ItemID

	// Reason is a short human-readable explanation.
	Reason string

	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface for MatchupError.
func (e *MatchupError) Error() string {
	msg := fmt.Sprintf("matchup error: operation=%s, seq=%d", e.Operation, e.Seq)
	if e.Item != NoItem {
		msg += fmt.Sprintf(", item=%d", e.Item)
	}
	return fmt.Sprintf("%s, reason=%s, err=%v", msg, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *MatchupError) Unwrap() error { return e.Err }

// newMatchupError creates a MatchupError wrapping ErrInvalidMatchupResponse.
func newMatchupError(op string, seq int, item ItemID, reason string) *MatchupError {
	return &MatchupError{
		Operation: op,
		Seq:       seq,
		Item:      item,
		Reason:    reason,
		Err:       ErrInvalidMatchupResponse,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match validation failures with ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
