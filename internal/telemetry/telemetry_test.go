package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/surveyflow/engine/internal/surveyconfig"
)

func TestSetupRegistersGlobalProviders(t *testing.T) {
	cfg := surveyconfig.TelemetryConfig{
		ServiceName:    "surveyflow-engine-test",
		ExportInterval: 15 * time.Second,
		Stdout:         true,
	}

	shutdown, err := Setup(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()

	require.NotNil(t, otel.GetTracerProvider())
	require.NotNil(t, otel.GetMeterProvider())
}

func TestSetupFallsBackToStdoutMetricsWithoutEndpoint(t *testing.T) {
	cfg := surveyconfig.TelemetryConfig{
		ServiceName:    "surveyflow-engine-test",
		ExportInterval: 15 * time.Second,
		Stdout:         false,
		OTLPEndpoint:   "",
	}

	shutdown, err := Setup(context.Background(), cfg)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
	}()
}
