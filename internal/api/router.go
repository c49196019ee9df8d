package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/api/handlers"
	"github.com/stitts-dev/picado/internal/api/middleware"
	"github.com/stitts-dev/picado/internal/teamgen"
	"github.com/stitts-dev/picado/pkg/config"
)

// Dependencies groups what the router hands to its handlers.
type Dependencies struct {
	Generator handlers.TeamGenerator
	Compiler  *teamgen.RuleCompiler
	Database  handlers.Pinger
	Cache     handlers.Pinger
	Balancer  handlers.BalancerStatus
}

// NewRouter builds the gin engine with middleware, health probes and the /api/v1 routes.
func NewRouter(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Cache, deps.Balancer)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	apiV1 := router.Group("/api/v1")
	SetupRoutes(apiV1, cfg, deps, logger)

	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, cfg *config.Config, deps Dependencies, logger *logrus.Logger) {
	teamHandler := handlers.NewTeamHandler(deps.Generator, deps.Compiler, logger)

	group.Use(middleware.OptionalAuth(cfg.SupabaseJWTSecret))

	// Without a JWT secret (local development) generation stays open.
	generateAuth := func(c *gin.Context) { c.Next() }
	if cfg.SupabaseJWTSecret != "" {
		generateAuth = middleware.AuthRequired(cfg.SupabaseJWTSecret)
	}

	teamHandler.RegisterRoutes(group, generateAuth)
}
