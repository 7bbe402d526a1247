package otel

import (
	"context"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware wraps a fasthttp handler so every request runs inside a
// server span. Incoming trace context is honoured and echoed in the response.
func HTTPMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)

	return func(ctx *fasthttp.RequestCtx) {
		if !IsInitialized() {
			next(ctx)
			return
		}

		parentCtx := propagator.Extract(context.Background(), &requestHeaderCarrier{headers: &ctx.Request.Header})
		spanCtx, span := StartSpan(parentCtx, "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(string(ctx.Method())),
				semconv.URLPathKey.String(string(ctx.Path())),
			),
		)
		defer span.End()

		next(ctx)

		statusCode := ctx.Response.StatusCode()
		span.SetAttributes(
			semconv.HTTPResponseStatusCodeKey.Int(statusCode),
			attribute.Int("http.response_size", len(ctx.Response.Body())),
		)
		if statusCode >= 400 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(statusCode))
		} else {
			span.SetStatus(codes.Ok, "OK")
		}

		propagator.Inject(spanCtx, &responseHeaderCarrier{headers: &ctx.Response.Header})
	}
}

// requestHeaderCarrier adapts fasthttp request headers to propagation.TextMapCarrier
type requestHeaderCarrier struct {
	headers *fasthttp.RequestHeader
}

func (c *requestHeaderCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c *requestHeaderCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

func (c *requestHeaderCarrier) Keys() []string {
	// Not needed for extraction
	return nil
}

// responseHeaderCarrier adapts fasthttp response headers to propagation.TextMapCarrier
type responseHeaderCarrier struct {
	headers *fasthttp.ResponseHeader
}

func (c *responseHeaderCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c *responseHeaderCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

func (c *responseHeaderCarrier) Keys() []string {
	// Not needed for injection
	return nil
}
