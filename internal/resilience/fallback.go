package resilience

import (
	"context"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// Fallback runs primary; on any error it runs secondary. If secondary also
// errors, a System error carrying both causes is returned — never a silent
// swallow of either failure.
func Fallback[T any](ctx context.Context, primary, secondary func(context.Context) (T, error)) (T, error) {
	result, err := primary(ctx)
	if err == nil {
		return result, nil
	}

	fallbackResult, fallbackErr := secondary(ctx)
	if fallbackErr == nil {
		return fallbackResult, nil
	}

	var zero T

	return zero, merrors.New(merrors.System, "FALLBACK_FAILED", "both primary and fallback operations failed").
		WithCause(fallbackErr).
		WithDetails(map[string]any{
			"primary_error":  err.Error(),
			"fallback_error": fallbackErr.Error(),
		})
}
