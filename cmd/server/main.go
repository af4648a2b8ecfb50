package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/infra/http"
	"github.com/secboard/api/internal/infra/http/routes"
	"github.com/secboard/api/internal/infra/jobs"
	"github.com/secboard/api/internal/infra/postgres"
	"github.com/secboard/api/internal/infra/redis"
	"github.com/secboard/api/pkg/jwt"
	"github.com/secboard/api/pkg/logger"
)

// @title           SecBoard API
// @version         1.0
// @description     Security data aggregation service: multi-format export ingestion and normalized record access

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

// Command line flags.
var (
	showRoutes  = flag.Bool("routes", false, "Print all registered routes and exit")
	routeFormat = flag.String("route-format", "table", "Route output format: table, json, csv, simple")
	routeMethod = flag.String("route-method", "", "Filter routes by HTTP method")
	routePath   = flag.String("route-path", "", "Filter routes containing this path")
	routeSort   = flag.String("route-sort", "path", "Sort routes by: path, method, handler")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	// ==========================================================================
	// Repositories & Ingestion Pipeline
	// ==========================================================================
	repos := NewRepositories(db)
	log.Info("repositories initialized")

	checksums, err := redis.NewUploadChecksumCache(redisClient)
	if err != nil {
		log.Error("failed to initialize checksum cache", "error", err)
		return 1
	}

	workers, err := NewWorkers(ctx, cfg, repos, log)
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}

	var archiver ingest.Archiver
	if cfg.Archive.Enabled {
		archiver = jobs.NewArchiverAdapter(workers.Client)
	}

	ingestService := ingest.NewService(
		newFormatRouter(cfg, repos),
		repos.Ingestion,
		checksums,
		archiver,
		cfg.Ingest,
		log,
	)
	log.Info("ingestion pipeline initialized")

	// ==========================================================================
	// Authentication
	// ==========================================================================
	tokens := jwt.NewGenerator(jwt.TokenConfig{
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.JWTIssuer,
		AccessTokenTTL: cfg.Auth.AccessTokenDuration,
	})

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	handlers := NewHandlers(&HandlerDeps{
		Log:           log,
		DB:            db,
		RedisClient:   redisClient,
		Repos:         repos,
		IngestService: ingestService,
	})

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers, tokens, log)

	// Handle --routes flag
	if *showRoutes {
		stats := http.CollectRoutes(server.Router())
		filters := http.RouteFilters{
			Method: *routeMethod,
			Path:   *routePath,
			SortBy: *routeSort,
		}
		http.PrintRoutes(os.Stdout, stats, *routeFormat, filters)
		return 0
	}

	// ==========================================================================
	// Start
	// ==========================================================================
	if err := workers.Start(log); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	workers.Stop(log)

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if cfg.App.Debug {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
