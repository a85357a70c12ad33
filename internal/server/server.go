// Package server wires the full accessguard process together: config,
// logging, tracing, the GORM-backed control plane, the enforcement
// pipeline, and the Gin HTTP server — grounded on the teacher's
// cmd/server/main.go, factored out so both the default binary and the CLI's
// "serve" subcommand share one implementation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"accessguard/internal/concurrency"
	"accessguard/internal/config"
	"accessguard/internal/metrics"
	"accessguard/internal/models"
	"accessguard/internal/observability"
	"accessguard/internal/pipeline"
	"accessguard/internal/ratelimit"
	"accessguard/internal/routeindex"
	"accessguard/internal/rulestore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func Run(cfg *config.Config) error {
	appLogger := logrus.StandardLogger()

	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("server: open db: %w", err)
	}

	loader := rulestore.NewGORMLoader(db)
	routes := routeindex.New()
	store := rulestore.New()
	rl := ratelimit.New()
	ct := concurrency.New()

	seedDemoRoutes(routes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if raw, err := loader.LoadSnapshot(ctx); err != nil {
		appLogger.Warnf("initial rule-store load failed, starting with an empty store: %v", err)
	} else if err := store.RefreshAll(raw); err != nil {
		appLogger.Warnf("initial rule-store snapshot invalid, starting with an empty store: %v", err)
	}

	stopBucketSweep := rl.RunCleanup(cfg.RateLimit.CleanupInterval, cfg.RateLimit.BucketTTL)
	defer stopBucketSweep()
	stopConcurrencySweep := ct.RunCleanup(cfg.RateLimit.CleanupInterval, cfg.RateLimit.ConcurrencyTTL)
	defer stopConcurrencySweep()
	stopReload := startReloadLoop(ctx, loader, store, cfg.RateLimit.ReloadInterval, appLogger)
	defer stopReload()

	p := pipeline.New(routes, store, rl, ct, pipeline.WithLogger(appLogger))

	r := newRouter(cfg, p, loader, store, routes)

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		appLogger.Infof("starting server on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: forced shutdown: %w", err)
	}
	appLogger.Info("server exited")
	return nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		cfg.Database.Port, cfg.Database.SSLMode, cfg.Database.Timezone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, err
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}
	if err := db.AutoMigrate(models.AllTables()...); err != nil {
		return nil, err
	}
	return db, nil
}

func newRouter(cfg *config.Config, p *pipeline.Pipeline, loader *rulestore.GORMLoader, store *rulestore.Store, routes *routeindex.Index) *gin.Engine {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics/access", func(c *gin.Context) {
		allowed, byReason := metrics.Snapshot()
		c.JSON(http.StatusOK, gin.H{"allowed": allowed, "blocked": byReason})
	})

	admin := r.Group("/admin")
	registerAdminRoutes(admin, loader, store, routes)

	protected := r.Group("/")
	protected.Use(pipeline.Middleware(p))
	protected.Any("/*path", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"path": c.Request.URL.Path})
	})
	return r
}

// seedDemoRoutes stands in for the host framework's one-shot route-table
// introspection, which spec.md §1 places out of scope.
func seedDemoRoutes(routes *routeindex.Index) {
	routes.Store(routeindex.Route{ID: 1, Method: "GET", Pattern: "/api/users/:id"})
	routes.Store(routeindex.Route{ID: 2, Method: "GET", Pattern: "/api/public"})
	routes.Store(routeindex.Route{ID: 3, Method: "POST", Pattern: "/api/login"})
}

// startReloadLoop periodically reloads the full rule graph from the
// loader, logging and keeping the prior snapshot on failure — the control
// plane never blocks request handling (spec.md §7).
func startReloadLoop(ctx context.Context, loader *rulestore.GORMLoader, store *rulestore.Store, interval time.Duration, log *logrus.Logger) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				raw, err := loader.LoadSnapshot(ctx)
				if err != nil {
					log.Warnf("rule-store reload failed, keeping prior snapshot: %v", err)
					continue
				}
				if err := store.RefreshAll(raw); err != nil {
					log.Warnf("rule-store reload produced an invalid snapshot, keeping prior: %v", err)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
