package mlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("forgetful-core")

// Span opens both a logged span (start/end/failed events with duration_ms)
// and an OpenTelemetry span, returning the derived context and a closer the
// caller must invoke with the operation's resulting error (nil on success).
//
//	ctx, end := mlog.Span(ctx, "pool.acquire", mlog.String("pool", "relational"))
//	defer func() { end(&err) }()
func Span(ctx context.Context, name string, fields ...Field) (context.Context, func(err *error)) {
	ctx, otelSpan := tracer.Start(ctx, name)

	logger := FromContext(ctx)
	start := time.Now()

	logger.Info(name, append([]Field{String("event", "span_start")}, fields...)...)

	return ctx, func(errp *error) {
		defer otelSpan.End()

		elapsed := time.Since(start)
		durField := Int64("duration_ms", elapsed.Milliseconds())

		if errp != nil && *errp != nil {
			logger.Error(name, append([]Field{String("event", "span_failed"), durField, Err(*errp)}, fields...)...)
			otelSpan.RecordError(*errp)

			return
		}

		logger.Info(name, append([]Field{String("event", "span_end"), durField}, fields...)...)
	}
}
