package otel

import (
	"context"
	"fmt"

	"github.com/fluxorio/handlebars/pkg/dispatch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Responder is the part of a dispatch.Domain that RespondWithSpan drives.
type Responder interface {
	Name() string
	Pending() int
	Respond(limit int) bool
}

// RespondWithSpan calls r.Respond(limit) inside a span recording the queue
// depth before and after. A slot panic is recorded on the span and
// re-raised.
func RespondWithSpan(ctx context.Context, r Responder, limit int) (more bool) {
	if !IsInitialized() {
		return r.Respond(limit)
	}

	_, span := StartSpan(ctx, "dispatch.respond",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "handlebars"),
			attribute.String("messaging.destination.name", r.Name()),
			attribute.String("messaging.operation", "process"),
			attribute.Int("dispatch.limit", limit),
			attribute.Int("dispatch.pending_before", r.Pending()),
		),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			span.RecordError(fmt.Errorf("slot panic: %v", rec))
			span.SetStatus(codes.Error, "slot panic")
			panic(rec)
		}
	}()

	more = r.Respond(limit)
	span.SetAttributes(
		attribute.Int("dispatch.pending_after", r.Pending()),
		attribute.Bool("dispatch.more", more),
	)
	span.SetStatus(codes.Ok, "OK")
	return more
}

// TracedSlot wraps slot so that every call runs inside its own span named
// "dispatch.slot <name>".
func TracedSlot[A any](name string, slot dispatch.Slot[A]) dispatch.Slot[A] {
	return func(args A) {
		if !IsInitialized() {
			slot(args)
			return
		}
		_, span := StartSpan(context.Background(), "dispatch.slot "+name,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attribute.String("dispatch.slot", name)),
		)
		defer span.End()
		slot(args)
	}
}
