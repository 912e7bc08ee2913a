package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abitlab/itmo-advisor-go/internal/advisor"
	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/ctxutil"
	"github.com/abitlab/itmo-advisor-go/internal/interest"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
	"github.com/abitlab/itmo-advisor-go/internal/recommend"
	"github.com/abitlab/itmo-advisor-go/internal/smart"
)

// setupTestApp wires a minimal Application around an in-memory knowledge
// base. No LLM client and no snapshot store are attached, so the chain
// ends at the baseline provider.
func setupTestApp(t *testing.T) *Application {
	t.Helper()

	db, err := kb.NewTestDB()
	if err != nil {
		t.Fatalf("NewTestDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	log := logger.New("error")

	cfg := &config.Config{
		Matching:  config.MatchingConfig{RelatedTopK: 3},
		Recommend: config.RecommendConfig{TopK: 5, MinScore: 0.3},
	}

	matcher := qa.New(db, cfg.Matching, log, m)
	responder := smart.New(db, log)
	extractor := interest.NewExtractor(nil)
	recommender := recommend.New(db, recommend.NewScorer(nil, nil), extractor, log, m)
	chain := advisor.NewChain(advisor.ChainConfig{
		DB:        db,
		Matcher:   matcher,
		Responder: responder,
		Matching:  cfg.Matching,
		Logger:    log,
		Metrics:   m,
	})

	return &Application{
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
	}
}

// seedCatalog stores two programs with courses for handler tests.
func seedCatalog(t *testing.T, db *kb.DB) {
	t.Helper()

	programs := []kb.Program{
		{
			Key:  kb.ProgramKeyAI,
			Name: "Искусственный интеллект",
			Courses: []kb.Course{
				{Name: "Машинное обучение", Credits: 6, Semester: "1", IsMandatory: true, Tags: []string{"machine_learning", "python"}},
				{Name: "Глубокое обучение", Credits: 4, Semester: "2", Tags: []string{"deep_learning"}},
			},
		},
		{
			Key:  kb.ProgramKeyAIProduct,
			Name: "Управление ИИ-продуктами",
			Courses: []kb.Course{
				{Name: "Продуктовая аналитика", Credits: 5, Semester: "1", IsMandatory: true, Tags: []string{"analytics", "product"}},
			},
		},
	}
	if err := db.SavePrograms(context.Background(), programs); err != nil {
		t.Fatalf("SavePrograms() error = %v", err)
	}
}

func mustReload(t *testing.T, m *qa.Matcher) {
	t.Helper()

	if err := m.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
}

func TestLivenessCheckHealthy(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", app.livenessCheck)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	if status, ok := response["status"].(string); !ok || status != "alive" {
		t.Errorf("Expected status='alive', got %v", response["status"])
	}
}

func TestLivenessCheckAlwaysSucceeds(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	_ = app.db.Close()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", app.livenessCheck)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 even with database down, got %d", w.Code)
	}
}

func TestReadinessCheckHealthy(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	mustReload(t, app.matcher)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", app.readinessCheck)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}

	if status, ok := response["status"].(string); !ok || status != "ready" {
		t.Errorf("Expected status='ready', got %v", response["status"])
	}
	if database, ok := response["database"].(string); !ok || database != "connected" {
		t.Errorf("Expected database='connected', got %v", response["database"])
	}
	if _, ok := response["knowledge"].(map[string]any); !ok {
		t.Error("Expected knowledge statistics in response")
	}
	if _, ok := response["features"].(map[string]any); !ok {
		t.Error("Expected features in response")
	}
}

func TestReadinessCheckDatabaseFailure(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	mustReload(t, app.matcher)

	if err := app.db.Close(); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", app.readinessCheck)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	if reason, ok := response["reason"].(string); !ok || reason != "database unavailable" {
		t.Errorf("Expected reason='database unavailable', got %v", response["reason"])
	}
}

func TestReadinessCheckIndexNotBuilt(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	// No Reload: the matcher has never indexed the corpus.

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", app.readinessCheck)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	if reason, ok := response["reason"].(string); !ok || reason != "similarity index not built" {
		t.Errorf("Expected reason='similarity index not built', got %v", response["reason"])
	}
}

func TestGetKnowledgeStats(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	ctx := context.Background()

	seedCatalog(t, app.db)
	if _, err := app.db.InsertQAPair(ctx, &kb.QAPair{Question: "Сколько длится обучение?", Answer: "Два года."}); err != nil {
		t.Fatalf("InsertQAPair() error = %v", err)
	}

	stats := app.getKnowledgeStats(ctx)

	if stats["programs"] != 2 {
		t.Errorf("programs = %d, want 2", stats["programs"])
	}
	if stats["courses"] != 3 {
		t.Errorf("courses = %d, want 3", stats["courses"])
	}
	if stats["qa_pairs"] != 1 {
		t.Errorf("qa_pairs = %d, want 1", stats["qa_pairs"])
	}
}

func TestGetKnowledgeStatsWithDatabaseError(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	if err := app.db.Close(); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}

	stats := app.getKnowledgeStats(context.Background())
	if stats == nil {
		t.Fatal("Expected non-nil stats map")
	}
	if len(stats) != 0 {
		t.Errorf("Expected empty stats map, got %d entries", len(stats))
	}
}

func TestGetFeatures(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	features := app.getFeatures()

	// All features are off in the minimal test setup.
	if features["llm"] {
		t.Errorf("Expected llm=false, got %v", features["llm"])
	}
	if features["snapshots"] {
		t.Errorf("Expected snapshots=false, got %v", features["snapshots"])
	}
	if features["sentry"] {
		t.Errorf("Expected sentry=false, got %v", features["sentry"])
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(securityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("Header %s = %q, want %q", name, got, want)
		}
	}
}

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	if requestID == "" {
		t.Fatal("Expected generated X-Request-Id header")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		t.Errorf("X-Request-Id = %q, want a UUID: %v", requestID, err)
	}
}

func TestRequestIDMiddleware_PreservesInbound(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen, _ = ctxutil.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "trace-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if seen != "trace-42" {
		t.Errorf("Context request ID = %q, want %q", seen, "trace-42")
	}
	if got := w.Header().Get("X-Request-Id"); got != "trace-42" {
		t.Errorf("Echoed X-Request-Id = %q, want %q", got, "trace-42")
	}
}

func TestRequestIDMiddleware_AcceptsCorrelationHeader(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "corr-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "corr-7" {
		t.Errorf("X-Request-Id = %q, want %q", got, "corr-7")
	}
}
