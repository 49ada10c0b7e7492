// Package telemetry sets up OpenTelemetry trace and metric export over
// OTLP/gRPC and records HTTP request metrics. With no endpoint configured
// the global no-op providers stay in place.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentation = "github.com/parisxmas/oxisite"

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317".
	// Empty disables export.
	Endpoint   string
	Insecure   bool
	SampleRate float64
}

type Provider struct {
	cfg            Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	log            *zap.Logger

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "oxisite"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1
	}
	p := &Provider{cfg: cfg, log: log.Named("telemetry")}

	if cfg.Endpoint != "" {
		res, err := resource.Merge(
			resource.Default(),
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(cfg.ServiceName),
				semconv.ServiceVersion(cfg.ServiceVersion),
				semconv.DeploymentEnvironment(cfg.Environment),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: resource: %w", err)
		}
		if err := p.initTraceProvider(ctx, res); err != nil {
			return nil, err
		}
		if err := p.initMetricProvider(ctx, res); err != nil {
			return nil, err
		}
		p.log.Info("telemetry export enabled",
			zap.String("endpoint", cfg.Endpoint),
			zap.Float64("sample_rate", cfg.SampleRate))
	}

	p.tracer = otel.Tracer(instrumentation, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	meter := otel.Meter(instrumentation, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	var err error
	p.requests, err = meter.Int64Counter("oxisite.http.requests",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	p.duration, err = meter.Float64Histogram("oxisite.http.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.Endpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("telemetry: trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.cfg.SampleRate >= 1:
		sampler = sdktrace.AlwaysSample()
	case p.cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.cfg.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.Endpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

// Enabled reports whether spans and metrics leave the process.
func (p *Provider) Enabled() bool { return p.tracerProvider != nil }

// Shutdown flushes pending telemetry.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.log.Error("shutdown trace provider", zap.Error(err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.log.Error("shutdown metric provider", zap.Error(err))
		}
	}
	return nil
}

// Middleware opens a server span per request and records the request
// count and latency by route pattern and status.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := p.tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
			span.SetName(r.Method + " " + route)
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.request.method", r.Method),
			attribute.Int("http.response.status_code", status),
		)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		p.requests.Add(ctx, 1, attrs)
		p.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	})
}
