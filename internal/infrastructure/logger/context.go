package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	tenantIDKey
	invoiceIDKey
)

// correlation fields copied from the context onto every enriched log line
var correlated = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, "request_id"},
	{tenantIDKey, "tenant_id"},
	{invoiceIDKey, "invoice_id"},
}

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// WithInvoiceID tags ctx with the invoice whose fact is being posted
func WithInvoiceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invoiceIDKey, id)
}

func value(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

func GetRequestID(ctx context.Context) string { return value(ctx, requestIDKey) }
func GetTenantID(ctx context.Context) string  { return value(ctx, tenantIDKey) }
func GetInvoiceID(ctx context.Context) string { return value(ctx, invoiceIDKey) }

// GetTraceID returns the hex trace id of the span in ctx, empty without one
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// Fields returns the correlation fields carried by ctx: trace and span ids
// of a valid span, then request, tenant and invoice ids when set.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, c := range correlated {
		if v := value(ctx, c.key); v != "" {
			fields = append(fields, zap.String(c.field, v))
		}
	}
	return fields
}

// For returns base enriched with the correlation fields of ctx
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// L is For applied to the logger attached to ctx.
// Usage: logger.L(ctx).Info("posted", zap.String("outcome", "posted"))
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}
