package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetOutcome records which mode ran and the terminal state. A business failure such as
// a validation error leaves the span status unset.
func SetOutcome(span trace.Span, mode, state string) {
	span.SetAttributes(
		attribute.String(ModeKey, mode),
		attribute.String(StateKey, state),
	)
}
