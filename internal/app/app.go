// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abitlab/itmo-advisor-go/internal/advisor"
	"github.com/abitlab/itmo-advisor-go/internal/backup"
	"github.com/abitlab/itmo-advisor-go/internal/buildinfo"
	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/ctxutil"
	"github.com/abitlab/itmo-advisor-go/internal/interest"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/llm"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
	"github.com/abitlab/itmo-advisor-go/internal/recommend"
	"github.com/abitlab/itmo-advisor-go/internal/sentry"
	"github.com/abitlab/itmo-advisor-go/internal/smart"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *kb.DB
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	matcher     *qa.Matcher
	responder   *smart.Responder
	extractor   *interest.Extractor
	recommender *recommend.Recommender
	chain       *advisor.Chain
	llmClient   llm.Client
	backupStore *backup.Store
	server      *http.Server
	wg          sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		BetterstackToken:    cfg.BetterstackToken,
		BetterstackEndpoint: cfg.BetterstackEndpoint,
	})

	log = log.WithField("service", "itmo-advisor-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger to enable context value extraction (userID,
	// requestID) via ContextHandler in package-level slog.*Context() calls.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterstackToken != "" {
		log.WithField("endpoint", cfg.BetterstackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
		Debug:       cfg.Environment == "development",
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.Environment).Info("Sentry error reporting enabled")
	}

	db, err := kb.New(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Knowledge base opened")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	matcher := qa.New(db, cfg.Matching, log, m)
	if err := matcher.Reload(ctx); err != nil {
		log.WithError(err).Warn("Initial QA index build failed")
	}

	responder := smart.New(db, log)
	if err := responder.Rebuild(ctx); err != nil {
		log.WithError(err).Warn("Initial response index build failed")
	}

	extractor := interest.NewExtractor(nil)
	recommender := recommend.New(db, recommend.NewScorer(nil, nil), extractor, log, m)

	llmClient, err := llm.New(ctx, llm.Config{
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		Primary:       llm.Provider(cfg.LLMPrimaryProvider),
		Secondary:     llm.Provider(cfg.LLMFallbackProvider),
	}, log, m)
	if err != nil {
		log.WithError(err).Warn("LLM initialization failed, answers fall back to local matching")
		llmClient = nil
	}
	if llmClient != nil {
		log.WithField("provider", llmClient.Provider().String()).Info("LLM answers enabled")
	}

	chain := advisor.NewChain(advisor.ChainConfig{
		DB:         db,
		Matcher:    matcher,
		Responder:  responder,
		Client:     llmClient,
		Matching:   cfg.Matching,
		LLMTimeout: cfg.LLMTimeout,
		Logger:     log,
		Metrics:    m,
	})

	var backupStore *backup.Store
	if cfg.HasSnapshotStore() {
		client, err := backup.New(ctx, backup.Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			log.WithError(err).Warn("Snapshot store initialization failed, uploads disabled")
		} else {
			backupStore = backup.NewStore(client, cfg.S3Prefix, log, m)
			log.WithField("bucket", cfg.S3Bucket).Info("Snapshot uploads enabled")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		matcher:     matcher,
		responder:   responder,
		extractor:   extractor,
		recommender: recommender,
		chain:       chain,
		llmClient:   llmClient,
		backupStore: backupStore,
	}

	router.GET("/", app.serviceInfo)
	router.GET("/healthz", app.livenessCheck)
	router.HEAD("/healthz", app.livenessCheck)
	router.GET("/readyz", app.readinessCheck)
	router.HEAD("/readyz", app.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/ask", app.handleAsk)
		api.GET("/related", app.handleRelated)
		api.POST("/qa", app.handleAddQA)
		api.GET("/stats", app.handleStats)
		api.POST("/interests", app.handleInterests)
		api.POST("/profile", app.handleProfile)
		api.POST("/recommendations", app.handleRecommendations)
		api.GET("/programs", app.handlePrograms)
		api.GET("/programs/:program/courses", app.handleProgramCourses)
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.ServerHTTPRead,
		ReadTimeout:       config.ServerHTTPRead,
		WriteTimeout:      config.ServerHTTPWrite,
		IdleTimeout:       config.ServerHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "itmo-advisor",
		"version": buildinfo.Version,
		"docs":    "https://github.com/abitlab/itmo-advisor-go",
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"llm":       a.llmClient != nil && a.llmClient.IsEnabled(),
		"snapshots": a.backupStore != nil,
		"sentry":    sentry.IsEnabled(),
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	if !a.matcher.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "similarity index not built",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"database":  "connected",
		"knowledge": a.getKnowledgeStats(ctx),
		"features":  a.getFeatures(),
	})
}

func (a *Application) getKnowledgeStats(ctx context.Context) map[string]int {
	stats := make(map[string]int)

	if programs, err := a.db.GetAllPrograms(ctx); err == nil {
		stats["programs"] = len(programs)
	} else {
		a.logger.WithError(err).Warn("Failed to count programs in knowledge stats")
	}
	if count, err := a.db.CountCourses(ctx); err == nil {
		stats["courses"] = count
	} else {
		a.logger.WithError(err).Warn("Failed to count courses in knowledge stats")
	}
	if count, err := a.db.CountQAPairs(ctx); err == nil {
		stats["qa_pairs"] = count
	} else {
		a.logger.WithError(err).Warn("Failed to count QA pairs in knowledge stats")
	}

	return stats
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence (critical for data integrity):
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context to signal background jobs to stop
//  3. Wait for background jobs to complete (snapshot uploads)
//  4. Close resources in order (HTTP server, LLM client, database)
//
// This order prevents "sql: database is closed" errors during a snapshot
// upload that races with termination.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure context is always canceled

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	// Wait for shutdown signal
	sig := a.waitForShutdownSignal()

	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Step 1: Cancel context to signal all background jobs to stop
	cancel()

	// Step 2: Wait for all background goroutines to finish
	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	// Step 3: Perform graceful shutdown (HTTP server, resources)
	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.backupStore != nil {
		a.wg.Go(func() {
			a.backupStore.Run(ctx, a.db, config.SnapshotInitialDelay, a.cfg.SnapshotInterval, backup.DefaultKeep)
		})
	}
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// This method should be called AFTER background jobs have been stopped
// and completed. Shutdown order:
// 1. Stop accepting new HTTP requests
// 2. Wait for in-flight HTTP requests to complete
// 3. Close resources (LLM client, database)
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	if a.llmClient != nil {
		if err := a.llmClient.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "llm").Error("Component close error")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if !sentry.Flush(2 * time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// requestIDMiddleware ensures every request carries a request ID. An
// inbound X-Request-Id or X-Correlation-Id is trusted; otherwise a new
// UUID is generated. The ID lands in the request context for logging and
// is echoed in the response for client-side correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP())

		if requestID, ok := ctxutil.GetRequestID(c.Request.Context()); ok {
			entry = entry.WithRequestID(requestID)
		}

		if status >= 500 {
			entry.Error("HTTP request failed")
		} else if status >= 400 && status != 404 {
			entry.Warn("HTTP request rejected")
		} else if status == 404 {
			entry.Debug("HTTP request not found")
		} else {
			entry.Debug("HTTP request completed")
		}
	}
}
