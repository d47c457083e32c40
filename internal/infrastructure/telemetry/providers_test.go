package telemetry_test

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/config"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func disabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "invoicing-test",
	}
}

func TestProviders_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()
	cfg := disabledConfig()

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, profiler.IsEnabled())
	assert.NoError(t, profiler.Stop())
	assert.NoError(t, profiler.Stop())
}

func TestLoggerProvider_BridgeDisabledKeepsLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	lp, err := telemetry.NewLoggerProvider(context.Background(), disabledConfig(), zap.NewNop())
	require.NoError(t, err)

	bridged := lp.Bridge(base)
	bridged.Info("invoice sent")

	assert.Same(t, base, bridged)
	assert.Equal(t, 1, logs.Len())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	cfg := disabledConfig()
	cfg.ProfilingEnabled = true
	cfg.ProfilerAddress = ""

	_, err := telemetry.NewProfiler(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("attaches non-empty labels", func(t *testing.T) {
		got := map[string]string{}
		telemetry.WithProfilingLabels(context.Background(), map[string]string{
			telemetry.ProfilingLabelMethod:   "POST",
			telemetry.ProfilingLabelRoute:    "/api/v1/invoices/:id/payments",
			telemetry.ProfilingLabelResource: "",
		}, func(ctx context.Context) {
			pprof.ForLabels(ctx, func(k, v string) bool {
				got[k] = v
				return true
			})
		})

		assert.Equal(t, map[string]string{
			telemetry.ProfilingLabelMethod: "POST",
			telemetry.ProfilingLabelRoute:  "/api/v1/invoices/:id/payments",
		}, got)
	})

	t.Run("runs fn directly without labels", func(t *testing.T) {
		ran := false
		telemetry.WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
			ran = true
			_, ok := pprof.Label(ctx, telemetry.ProfilingLabelMethod)
			assert.False(t, ok)
		})
		assert.True(t, ran)
	})
}
