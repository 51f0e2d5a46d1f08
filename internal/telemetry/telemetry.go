// Package telemetry wires the global OTel tracer/meter providers every
// package's package-level `tracer`/`meter` var resolves against (e.g.
// internal/storage/sqlstore's `tracer = otel.Tracer(...)`, grounded on the
// teacher's internal/storage/dolt/store.go `doltTracer`/`otel.Meter`
// globals). The teacher registers no explicit SDK provider in the
// retrieved sources — it relies on whatever is wired at its own
// entrypoint — so this package supplies that missing registration step for
// cmd/surveyctl.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/surveyflow/engine/internal/surveyconfig"
)

// Shutdown flushes and releases both providers; callers defer it from
// cmd/surveyctl's root command.
type Shutdown func(context.Context) error

// Setup registers the global TracerProvider and MeterProvider per cfg,
// returning a combined Shutdown. Every package's `otel.Tracer("...")` /
// `otel.Meter("...")` call resolves against whichever provider is
// registered when Setup runs, so callers must invoke this before
// constructing internal/storage/sqlstore.Store or internal/survey.Engine.
//
// Traces always export via stdout (go.mod carries no OTLP trace exporter,
// only otlpmetrichttp — metrics can ship to a collector, traces stay local
// for `surveyctl`'s interactive use). Metrics export to OTLP when
// cfg.OTLPEndpoint is set and cfg.Stdout is false, stdout otherwise.
func Setup(ctx context.Context, cfg surveyconfig.TelemetryConfig) (Shutdown, error) {
	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
	)

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(cfg.ExportInterval))),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

func newMetricExporter(ctx context.Context, cfg surveyconfig.TelemetryConfig) (metric.Exporter, error) {
	if cfg.Stdout || cfg.OTLPEndpoint == "" {
		return stdoutmetric.New()
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
}
