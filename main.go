package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/adapters/watch"
	"github.com/statline-io/statline-engine/pkg/audit"
	"github.com/statline-io/statline-engine/pkg/config"
	"github.com/statline-io/statline-engine/pkg/database"
	"github.com/statline-io/statline-engine/pkg/handlers"
	"github.com/statline-io/statline-engine/pkg/logging"
	"github.com/statline-io/statline-engine/pkg/middleware"
	"github.com/statline-io/statline-engine/pkg/repositories"
	"github.com/statline-io/statline-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Int("sync_max_depth", cfg.Sync.MaxDepth),
		zap.Int("history_keep", cfg.Retention.HistoryKeep))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.URL(),
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.Database.ConnMaxIdleMinutes) * time.Minute,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	repos := services.Repos{
		Components:   repositories.NewComponentRepository(db),
		Analyses:     repositories.NewUsageAnalysisRepository(db),
		Issues:       repositories.NewIssueRepository(db),
		Dependencies: repositories.NewDependencyRepository(db),
		History:      repositories.NewHistoryRepository(db),
		Lookups:      repositories.NewLookupRepository(db),
	}

	validator := services.NewValidator(repos, logger)
	syncEngine := services.NewSyncEngine(services.DefaultRules(), cfg.Sync.MaxDepth, logger)
	store := services.NewEntityStore(db, repos, validator, syncEngine, logger)
	loader := services.NewSnapshotLoader(db, repos)
	evaluator := services.NewAnomalyEvaluator(loader,
		services.DefaultAnomalyRules(cfg.Evaluator.StaleAfterDays),
		time.Duration(cfg.Evaluator.TimeoutSeconds)*time.Second, logger)
	freshness := services.NewFreshnessMonitor(loader, cfg.Freshness.DefaultMaxAgeDays, logger)
	retention := services.NewRetentionCompactor(repos.History, cfg.Retention.HistoryKeep, logger)
	reports := services.NewReportService(loader, evaluator, logger)
	admin := services.NewAdminService(store, repos.Lookups, audit.NewRecorder(logger), logger)

	var mappings []services.PathMapping
	if cfg.Ingest.MappingsFile != "" {
		mappings, err = services.LoadMappings(cfg.Ingest.MappingsFile)
		if err != nil {
			logger.Fatal("Failed to load path mappings", zap.Error(err))
		}
		logger.Info("Loaded path mappings", zap.Int("count", len(mappings)))
	}
	ingest := services.NewIngestAdapter(store, mappings, logger)

	if cfg.Ingest.WatchEnabled && len(mappings) > 0 {
		roots := make([]string, 0, len(mappings))
		for _, m := range mappings {
			roots = append(roots, m.Prefix)
		}
		watcher, err := watch.New(roots, ingest,
			time.Duration(cfg.Ingest.DebounceMillis)*time.Millisecond, logger)
		if err != nil {
			logger.Fatal("Failed to create file watcher", zap.Error(err))
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Fatal("Failed to start file watcher", zap.Error(err))
		}
		defer watcher.Stop()
	}

	scheduler := services.NewScheduler(freshness, retention,
		time.Duration(cfg.Freshness.ScanIntervalMinutes)*time.Minute,
		time.Duration(cfg.Retention.CompactIntervalMinutes)*time.Minute,
		logger)
	go scheduler.Run(ctx)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewEntityHandler(store, repos, logger).RegisterRoutes(mux)
	handlers.NewReportsHandler(reports, freshness, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(admin, logger).RegisterRoutes(mux)
	handlers.NewIngestHandler(ingest, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting statline-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
