package router

import (
	"github.com/gin-gonic/gin"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/logger"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig selects the optional parts of the middleware stack
type EngineConfig struct {
	ServiceName      string
	TracingEnabled   bool
	Meter            metric.Meter
	ProfilingEnabled bool
	MaxBodySize      int64
	TrustedProxies   []string
	CORSAllowOrigins []string
}

// NewEngine builds a gin engine with the standard middleware stack, in order:
// request ID, panic recovery, CORS, tracing and span enrichment, HTTP metrics,
// profiling labels, request logging, security headers and body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(cfg.CORSAllowOrigins))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, cfg.Meter != nil))
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:   cfg.ProfilingEnabled,
		SkipPaths: []string{"/health"},
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))

	return engine, nil
}
