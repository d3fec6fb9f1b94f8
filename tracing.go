package analytics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies spans created by this package.
const tracerName = "github.com/devshare/analytics-go"

// TracingHook creates a hook that records each collector request as an
// OpenTelemetry client span and propagates the trace context in the
// request headers. A nil tp uses the global tracer provider.
//
// Example:
//
//	analytics.WithHTTPHooks(
//	    analytics.TracingHook(tracerProvider),
//	)
func TracingHook(tp trace.TracerProvider) HTTPHook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracingHook{
		tracer: tp.Tracer(tracerName, trace.WithInstrumentationVersion(Version)),
	}
}

type tracingHook struct {
	tracer trace.Tracer
	spans  sync.Map // *http.Request -> trace.Span
}

func (h *tracingHook) BeforeRequest(ctx context.Context, req *http.Request) error {
	ctx, span := h.tracer.Start(ctx, "analytics.send_batch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("server.address", req.URL.Host),
			attribute.String("url.path", req.URL.Path),
			attribute.Int64("http.request.body.size", req.ContentLength),
		),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	h.spans.Store(req, span)
	return nil
}

func (h *tracingHook) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	v, ok := h.spans.LoadAndDelete(req)
	if !ok {
		return
	}
	span := v.(trace.Span)
	defer span.End()

	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
