// Package config provides centralized timeout constants for the application.
//
// These values are tuned for:
//   - abit.itmo.ru response times (admission pages are static but slow at peaks)
//   - SQLite performance characteristics (WAL mode, busy timeout)
//   - LLM provider latency (chat completions with retries)
package config

import "time"

// HTTP server timeouts
const (
	// ServerHTTPRead is the HTTP server read timeout. API payloads are
	// small JSON bodies.
	ServerHTTPRead = 10 * time.Second

	// ServerHTTPWrite must accommodate an LLM-backed answer plus
	// serialization.
	ServerHTTPWrite = 60 * time.Second

	// ServerHTTPIdle is the idle timeout for keep-alive connections.
	ServerHTTPIdle = 120 * time.Second

	// ReadinessCheck bounds the database ping behind /readyz so a hung
	// connection cannot stall the orchestrator's probe.
	ReadinessCheck = 5 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single request to abit.itmo.ru.
	ScraperRequest = 10 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed
	// request. Exponential backoff: 2s -> 4s -> 8s.
	ScraperRetryInitial = 2 * time.Second

	// ScraperRateLimit is the minimum delay between consecutive requests,
	// matching the polite crawl delay the admission site expects.
	ScraperRateLimit = 1 * time.Second

	// PopulateRun bounds a full populate pass, covering a snapshot
	// restore plus scraping every program page with retries.
	PopulateRun = 5 * time.Minute
)

// LLM timeouts
const (
	// LLMRequest is the timeout for a single chat completion, including
	// provider-side queueing. Retries run within the caller's deadline.
	LLMRequest = 30 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles write contention during catalog population.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// SlowQueryThreshold marks queries worth a warning log.
	SlowQueryThreshold = 100 * time.Millisecond

	// HistoryWrite bounds the recommendation history write that runs
	// detached from the request context.
	HistoryWrite = 5 * time.Second
)

// Background job intervals
const (
	// SnapshotUpload is how often the knowledge base snapshot is uploaded
	// to the S3-compatible store.
	SnapshotUpload = 6 * time.Hour

	// SnapshotInitialDelay lets the server stabilize before the first upload.
	SnapshotInitialDelay = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
