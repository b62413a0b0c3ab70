// Package telemetry wires OpenTelemetry traces, metrics and logs for the GL
// service and exposes the instruments the posting pipeline records into.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultExportInterval = time.Minute
	providerFlushTimeout  = 10 * time.Second
)

// ExportConfig selects which signals leave the process. All three share one
// collector endpoint.
type ExportConfig struct {
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string

	Traces        bool
	SamplingRatio float64
	// ProfileSpans links root spans to Pyroscope profiles by span id
	ProfileSpans bool

	Metrics         bool
	MetricsInterval time.Duration // zero means one minute

	Logs bool
}

// Providers holds the SDK providers that Setup installed. A nil provider
// means the signal is disabled and the global no-op stays in place.
type Providers struct {
	traces  *sdktrace.TracerProvider
	tracer  trace.TracerProvider // traces, wrapped when spans are profiled
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider
	logger  *zap.Logger
}

// Setup builds an OTLP gRPC exporter for every enabled signal and installs the
// resulting providers globally. On error nothing is left running.
func Setup(ctx context.Context, cfg ExportConfig, logger *zap.Logger) (*Providers, error) {
	p := &Providers{logger: logger}
	if !cfg.Traces && !cfg.Metrics && !cfg.Logs {
		logger.Info("Telemetry export disabled")
		return p, nil
	}

	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		on bool
		fn func(context.Context, ExportConfig, *resource.Resource) error
	}{
		{cfg.Traces, p.startTraces},
		{cfg.Metrics, p.startMetrics},
		{cfg.Logs, p.startLogs},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if err := step.fn(ctx, cfg, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}

	logger.Info("Telemetry export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("traces", cfg.Traces),
		zap.Bool("metrics", cfg.Metrics),
		zap.Bool("logs", cfg.Logs),
	)
	return p, nil
}

func (p *Providers) startTraces(ctx context.Context, cfg ExportConfig, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create OTLP trace exporter: %w", err)
	}
	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
	)
	p.tracer = p.traces
	if cfg.ProfileSpans {
		p.tracer = otelpyroscope.NewTracerProvider(p.traces)
	}
	otel.SetTracerProvider(p.tracer)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Providers) startMetrics(ctx context.Context, cfg ExportConfig, res *resource.Resource) error {
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create OTLP metric exporter: %w", err)
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.metrics)
	return nil
}

func (p *Providers) startLogs(ctx context.Context, cfg ExportConfig, res *resource.Resource) error {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create OTLP log exporter: %w", err)
	}
	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(p.logs)
	return nil
}

// serviceResource describes this process to the collector
func serviceResource(name, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	return res, nil
}

// samplerFor maps a ratio to a sampler. Sampled parents are always followed
// so a trace started upstream is not cut in half here.
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Tracer returns a named tracer from the installed provider or the global one
func (p *Providers) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracer == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.tracer.Tracer(name, opts...)
}

// Meter returns a named meter from the installed provider or the global one
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

func (p *Providers) TracesEnabled() bool  { return p.traces != nil }
func (p *Providers) MetricsEnabled() bool { return p.metrics != nil }
func (p *Providers) LogsEnabled() bool    { return p.logs != nil }

// Shutdown flushes and stops every running provider, logs last so the
// other providers' shutdown records still go out.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.traces != nil {
		errs = append(errs, shutdownProvider(ctx, "tracer", p.logger, p.traces.Shutdown))
	}
	if p.metrics != nil {
		errs = append(errs, shutdownProvider(ctx, "meter", p.logger, p.metrics.Shutdown))
	}
	if p.logs != nil {
		errs = append(errs, shutdownProvider(ctx, "logger", p.logger, p.logs.Shutdown))
	}
	return errors.Join(errs...)
}

// shutdownProvider bounds a provider shutdown so a dead collector cannot
// hold up process exit
func shutdownProvider(ctx context.Context, kind string, logger *zap.Logger, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, providerFlushTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("OpenTelemetry provider shutdown failed", zap.String("provider", kind), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", kind, err)
	}
	logger.Info("OpenTelemetry provider stopped", zap.String("provider", kind))
	return nil
}
