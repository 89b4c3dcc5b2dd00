package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/infra/config"
	"github.com/arklim/commerce-platform-verify/internal/infra/telemetry"
	"github.com/arklim/commerce-platform-verify/internal/transport/http/handlers"
	"github.com/arklim/commerce-platform-verify/internal/transport/http/middleware"
	"github.com/arklim/commerce-platform-verify/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Verification *usecase.VerificationService
	Sweeper      *usecase.RetentionSweeper
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Telemetry *telemetry.Provider
	Services  ServiceSet
	Database  DatabaseChecker
	Cache     CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		isDev := deps.Config.App.Env == "development"

		if deps.Services.Verification != nil {
			verificationGroup := api.Group("/verifications")
			verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification, deps.Telemetry, isDev)
			verificationHandler.RegisterRoutes(verificationGroup)
		}
	}

	if deps.Services.Sweeper != nil {
		internalGroup := r.Group("/internal")
		sweepHandler := handlers.NewSweepHandler(deps.Services.Sweeper)
		sweepHandler.RegisterRoutes(internalGroup)
	}

	return r
}
