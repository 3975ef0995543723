// Package merrors implements the closed error-kind taxonomy shared by every
// component. Errors are lossless: wrapping never discards the underlying
// cause, reachable through errors.Unwrap/errors.As.
package merrors

import (
	"context"
	"errors"
	"fmt"

	"github.com/DrJLabs/forgetful-core/internal/mlog"
)

// Kind is the closed set of error kinds recognised by the core.
type Kind string

const (
	Validation      Kind = "validation"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	RateLimit       Kind = "rate_limit"
	ExternalService Kind = "external_service"
	Database        Kind = "database"
	Network         Kind = "network"
	System          Kind = "system"
)

// Severity levels, ordered least to most severe.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recovery is the recommended recovery strategy for a Kind.
type Recovery string

const (
	RecoveryRetry          Recovery = "retry"
	RecoveryCircuitBreaker Recovery = "circuit_breaker"
	RecoveryFallback       Recovery = "fallback"
	RecoveryIgnore         Recovery = "ignore"
	RecoveryEscalate       Recovery = "escalate"
)

type kindProfile struct {
	severity    Severity
	recovery    Recovery
	userMessage string
}

var profiles = map[Kind]kindProfile{
	Validation:      {SeverityLow, RecoveryIgnore, "The request was invalid."},
	NotFound:        {SeverityMedium, RecoveryIgnore, "The requested resource was not found."},
	Conflict:        {SeverityMedium, RecoveryIgnore, "The resource already exists."},
	RateLimit:       {SeverityMedium, RecoveryRetry, "Too many requests, please retry shortly."},
	ExternalService: {SeverityHigh, RecoveryCircuitBreaker, "Service temporarily unavailable."},
	Database:        {SeverityHigh, RecoveryRetry, "A storage error occurred."},
	Network:         {SeverityHigh, RecoveryRetry, "A network error occurred."},
	System:          {SeverityCritical, RecoveryEscalate, "An internal error occurred."},
}

// Severity returns the fixed severity for k.
func (k Kind) Severity() Severity { return profiles[k].severity }

// Recovery returns the recommended recovery strategy for k.
func (k Kind) Recovery() Recovery { return profiles[k].recovery }

func (k Kind) defaultUserMessage() string { return profiles[k].userMessage }

// Error is the single closed error type used throughout the core.
type Error struct {
	Kind          Kind
	Code          string
	Message       string
	UserMessage   string
	CorrelationID string
	Details       map[string]any
	cause         error
}

// New constructs a fresh Error of the given kind. code is a short,
// machine-stable identifier (e.g. "POOL_ACQUIRE_TIMEOUT").
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:        kind,
		Code:        code,
		Message:     message,
		UserMessage: kind.defaultUserMessage(),
	}
}

// WithCause attaches the underlying error, preserving it for errors.Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithDetails attaches (or merges into) the technical-details map.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}

	for k, v := range details {
		e.Details[k] = v
	}

	return e
}

// WithCorrelationID stamps the error with the correlation id carried by ctx,
// if any.
func (e *Error) WithCorrelationID(ctx context.Context) *Error {
	if id, ok := mlog.CorrelationIDFromContext(ctx); ok {
		e.CorrelationID = id
	}

	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, merrors.New(merrors.NotFound, "", "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Kind == other.Kind
}

// AsKind returns the Kind of err if it is (or wraps) an *Error, and whether
// one was found.
func AsKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}

	return "", false
}
