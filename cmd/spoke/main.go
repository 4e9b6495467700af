package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ironvault/sentryiam/pkg/api"
	"github.com/ironvault/sentryiam/pkg/audit"
	"github.com/ironvault/sentryiam/pkg/authengine"
	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/ironvault/sentryiam/pkg/certconf"
	"github.com/ironvault/sentryiam/pkg/config"
	"github.com/ironvault/sentryiam/pkg/contextcache"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/observability"
	"github.com/ironvault/sentryiam/pkg/orchestrator"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/ironvault/sentryiam/pkg/storage/postgres"
	"github.com/ironvault/sentryiam/pkg/sweep"
	"github.com/ironvault/sentryiam/pkg/token"
	"github.com/ironvault/sentryiam/pkg/webhooks"
)

func main() {
	// Load configuration from environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting SentryIAM")

	// Initialize OpenTelemetry (if enabled)
	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		// Don't fail - continue without OTel
	}

	// Dial Postgres (primary + replicas) and, if configured, Redis.
	pgStore, err := postgres.NewPostgresStorage(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize PostgreSQL storage")
		log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
	}
	logger.Info("PostgreSQL storage initialized")

	db := pgStore.GetDB()

	var redisClient *cache.Client
	var rawRedis *redis.Client
	if rc := pgStore.GetRedis(); rc != nil {
		rawRedis = rc.GetClient()
		redisClient = cache.NewFromClient(rawRedis)
		logger.Info("Redis cache initialized")
	} else {
		log.Fatalf("SentryIAM requires Redis for the login context cache and authengine cache; configure SPOKE_REDIS_URL")
	}

	// Wire the IAM domain stack: stores -> services -> orchestrator.
	certStore := certconf.NewStore(db)
	itemStore := itemstore.NewStore(db)
	relStore := relstore.NewStore(db)
	tokenStore := token.NewStore(db)

	lockout := certconf.NewLockoutTracker(redisClient)
	certConfService := certconf.NewCertConfService(certStore, lockout)
	tokenManager := token.NewManager(tokenStore, redisClient)
	certService := certconf.NewCertService(certStore, lockout, tokenManager)

	authCache, err := authengine.NewCache(redisClient, cfg.Storage.L1CacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize authengine cache: %v", err)
	}
	engine := authengine.NewEngine(itemStore, relStore, authCache)

	ctxCache := contextcache.NewCache(redisClient)
	ctxService := contextcache.NewService(certService, itemStore, relStore, tokenManager, ctxCache)

	pendingQueue := sweep.NewPendingQueue(redisClient)
	orch := orchestrator.NewOrchestrator(db, relStore, engine, ctxService, tokenManager, pendingQueue)

	// Audit trail for admin actions, and external notifications for
	// provisioning/ownership events. Both are best-effort: failures here
	// never unwind an already-committed orchestrator write.
	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize audit logger, continuing without it")
	} else {
		orch.WithAudit(auditLogger)
	}

	hookManager := webhooks.NewWebhookManager()
	hookManager.StartRetryWorker(ctx)
	orch.WithWebhooks(hookManager)

	// Cert-conf policy snapshot backups to S3, if a bucket is configured.
	var backupClient *certconf.BackupClient
	if cfg.Storage.S3Bucket != "" {
		backupClient, err = certconf.NewBackupClient(ctx, cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize S3 backup client, continuing without it")
		} else {
			logger.Info("Cert-conf S3 backup client initialized")
		}
	}

	// Background maintenance: retry failed cache invalidations, reap
	// expired tokens.
	retrier := sweep.NewInvalidationRetrier(pendingQueue, ctxService)
	sweeper := sweep.New(logger, retrier, tokenManager)
	if err := sweeper.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start maintenance sweeper")
	} else {
		logger.Info("Maintenance sweeper started")
	}

	// Create API server
	server := api.NewServer(api.Deps{
		CertStore: certStore,
		Certs:     certService,
		CertSvc:   certConfService,
		Items:     itemStore,
		Rels:      relStore,
		Tokens:    tokenManager,
		Engine:    engine,
		Ctxs:      ctxService,
		Orch:      orch,
		Backups:   backupClient,
	})

	// Wrap with OpenTelemetry HTTP instrumentation
	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "sentryiam-api",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		)
		logger.Info("OpenTelemetry HTTP instrumentation enabled")
	}

	// Create main HTTP server with timeouts
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Create separate health/metrics server
	healthChecker := observability.NewHealthChecker(db, rawRedis)
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)

	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("# Prometheus metrics endpoint\n"))
			w.Write([]byte("# For OTel metrics, use the OpenTelemetry Collector\n"))
		}))
		logger.Info("Metrics endpoint enabled at /metrics")
	}

	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Start health/metrics server in background
	go func() {
		logger.Infof("Starting health/metrics server on port %s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	// Setup graceful shutdown
	shutdownManager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)

	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("Shutting down health server")
		return healthServer.Shutdown(ctx)
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("Stopping maintenance sweeper")
		<-sweeper.Stop().Done()
		return nil
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("Stopping webhook retry worker")
		hookManager.StopRetryWorker()
		return nil
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("Closing storage connections")
		return pgStore.Close()
	})

	if otelProviders != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			logger.Info("Shutting down OpenTelemetry")
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	// Start main server in background
	go func() {
		logger.Infof("Starting SentryIAM API server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	logger.Info("Server started successfully, waiting for shutdown signal")
	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}
