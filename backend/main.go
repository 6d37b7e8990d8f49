package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/faawibowo/pakta/backend/access"
	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/handler"
	"github.com/faawibowo/pakta/backend/middleware"
	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/pkg/metrics"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", envOr("PAKTA_CONFIG", "config.yaml"), "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "path", *configPath, "users", len(cfg.Users))

	// Metrics
	shutdownMetrics, err := metrics.Init(context.Background(), metrics.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		slog.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	recorder, err := metrics.NewRecorder(nil)
	if err != nil {
		slog.Error("failed to create metric instruments", "error", err)
		os.Exit(1)
	}

	// Access gate
	gate, err := access.NewGate(cfg.AccessPolicy())
	if err != nil {
		slog.Error("failed to build access gate", "error", err)
		os.Exit(1)
	}
	if gate.FailOpen() {
		slog.Warn("access policy allows authenticated users on unlisted paths", "default_policy", cfg.Access.DefaultPolicy)
	}

	// Contract store
	var store service.ContractRepository
	if cfg.Database.DSN != "" {
		db, err := service.OpenDatabase(&cfg.Database)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		store = service.NewGormStore(db)
		slog.Info("using postgres contract store")
	} else {
		store = service.NewMemoryStore(&cfg.Store)
		slog.Warn("no database configured, contracts are kept in memory", "max_contracts", cfg.Store.MaxContracts)
	}

	// Document storage
	var files service.FileStorage
	if cfg.Minio.Endpoint != "" {
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize MINIO service", "error", err)
			os.Exit(1)
		}
		if err := minioSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure MINIO bucket", "error", err)
			os.Exit(1)
		}
		files = minioSvc
	} else {
		slog.Warn("no object storage configured, uploads are disabled")
	}

	// Analyzer
	var analyzer service.Analyzer
	if cfg.Analyzer.APIURL != "" {
		analyzer = service.NewAnalyzerService(&cfg.Analyzer)
	} else {
		slog.Warn("no analyzer configured, validation is disabled")
	}

	// Session revocation
	var sessions service.SessionStore
	if cfg.Redis.Addr != "" {
		redisSessions := service.NewRedisSessionStore(&cfg.Redis)
		if err := redisSessions.Ping(context.Background()); err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer redisSessions.Close()
		sessions = redisSessions
	} else {
		sessions = service.NewMemorySessionStore()
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg, sessions)
	contractHandler := handler.NewContractHandler(handler.ContractHandlerOptions{
		Store:             store,
		Files:             files,
		Analyzer:          analyzer,
		Recorder:          recorder,
		MandatoryElements: cfg.Analyzer.MandatoryElements,
		MaxUploadMB:       cfg.Server.MaxUploadMB,
	})
	callbackHandler := handler.NewCallbackHandler(analyzer, store, recorder, cfg.Analyzer.MandatoryElements)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute))
	router.Use(middleware.Authenticate(&cfg.Auth, sessions))
	router.Use(middleware.AccessGate(gate, recorder))

	// Health check endpoint
	router.GET("/health", handler.Health(store))

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.GetCurrentUser)
		api.POST("/analyzer/callback", callbackHandler.HandleCallback)

		contracts := api.Group("/contracts")
		contracts.POST("/upload", contractHandler.Upload)
		contracts.POST("", contractHandler.Create)
		contracts.GET("", contractHandler.List)
		contracts.GET("/:id", contractHandler.Get)
		contracts.PUT("/:id", contractHandler.Update)
		contracts.DELETE("/:id", contractHandler.Delete)
		contracts.POST("/:id/validate", contractHandler.Validate)
		contracts.GET("/:id/validations", contractHandler.ListValidations)
	}

	handler.RegisterPages(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownMetrics(ctx); err != nil {
		slog.Error("failed to flush metrics", "error", err)
	}

	slog.Info("server exited gracefully")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// cacheMiddleware keeps API responses and role-dependent pages out of caches
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/_next/") {
			c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
			c.Next()
			return
		}

		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
