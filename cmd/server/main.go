package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/api"
	"github.com/stitts-dev/picado/internal/repository"
	"github.com/stitts-dev/picado/internal/services"
	"github.com/stitts-dev/picado/internal/teamgen"
	"github.com/stitts-dev/picado/pkg/config"
	"github.com/stitts-dev/picado/pkg/database"
	"github.com/stitts-dev/picado/pkg/logger"
)

const serviceName = "picado-teamgen"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger with service context
	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService(serviceName)
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"data_source": cfg.DataSource,
		"model":       cfg.AIModel,
	}).Info("Starting team generation service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	ctx := context.Background()
	redisClient, err := services.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize core services
	cacheService := services.NewCacheService(redisClient, structuredLogger)
	claudeClient := services.NewClaudeClient(cfg, structuredLogger)
	if cfg.AnthropicAPIKey == "" {
		log.Warn("ANTHROPIC_API_KEY is not set; team generation will fail until it is configured")
	}
	engine := teamgen.NewEngine(claudeClient, structuredLogger)
	compiler := teamgen.NewRuleCompiler(structuredLogger)

	store := repository.NewGormStore(db, structuredLogger)
	var source services.MatchDataSource = store
	if cfg.DataSource == "supabase" {
		supabaseSource, err := repository.NewSupabaseSource(cfg.SupabaseURL, cfg.SupabaseServiceKey, structuredLogger)
		if err != nil {
			log.Fatalf("Failed to initialize supabase source: %v", err)
		}
		source = supabaseSource
	}

	generationService := services.NewTeamGenerationService(
		source,
		store,
		engine,
		compiler,
		cacheService,
		cacheService,
		cfg,
		structuredLogger,
	)

	router := api.NewRouter(cfg, api.Dependencies{
		Generator: generationService,
		Compiler:  compiler,
		Database:  db,
		Cache:     cacheService,
		Balancer:  claudeClient,
	}, structuredLogger)

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	// Generation blocks on the reasoning service, so writes may take up to AI_TIMEOUT.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Team generation service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Let in-flight generations finish so their locks are released
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AITimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
