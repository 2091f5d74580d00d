// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

type Options struct {
	ServiceName    string
	TracingEnabled bool
	SampleRatio    float64

	// OTLPEndpoint is the host:port of an OTLP/HTTP collector. Empty falls
	// back to OTEL_EXPORTER_OTLP_ENDPOINT or localhost:4318.
	OTLPEndpoint string
	OTLPInsecure bool

	// SpanExporter overrides the OTLP exporter.
	SpanExporter sdktrace.SpanExporter
}

// Observability owns the OTel meter and tracer providers for the process.
type Observability struct {
	meterProvider   *metric.MeterProvider
	tracerProvider  *sdktrace.TracerProvider
	tracer          trace.Tracer
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
}

// New registers a Prometheus-backed meter provider and, when enabled, an SDK
// tracer provider that batches spans to an OTLP collector. On exporter
// failure it degrades to no-op instruments.
func New(opts Options, log Logger) *Observability {
	o := &Observability{tracer: otel.Tracer(opts.ServiceName)}

	if opts.TracingEnabled {
		ratio := opts.SampleRatio
		if ratio <= 0 {
			ratio = 1
		}
		tpOpts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))),
		}

		exporter := opts.SpanExporter
		if exporter == nil {
			var err error
			exporter, err = newOTLPExporter(opts)
			if err != nil {
				log.Warn("failed to create otlp trace exporter, spans will not be exported", map[string]interface{}{
					"error":    err.Error(),
					"endpoint": opts.OTLPEndpoint,
				})
			}
		}
		if exporter != nil {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
		}

		o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)
	meter := o.meterProvider.Meter(opts.ServiceName)

	o.requestCounter, _ = meter.Int64Counter(
		"council.requests",
		otelmetric.WithDescription("Number of council API requests"),
	)
	o.requestDuration, _ = meter.Float64Histogram(
		"council.request.duration",
		otelmetric.WithDescription("Council API request duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

func newOTLPExporter(opts Options) (sdktrace.SpanExporter, error) {
	var clientOpts []otlptracehttp.Option
	if opts.OTLPEndpoint != "" {
		clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(opts.OTLPEndpoint))
	}
	if opts.OTLPInsecure {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(context.Background(), clientOpts...)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}

// Tracer returns the process tracer (no-op unless tracing is enabled).
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("ai-council")
	}
	return o.tracer
}

func (o *Observability) RecordRequest(ctx context.Context, endpoint string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status", status),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
