package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/abitlab/itmo-advisor-go/internal/kb"
)

func newTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Handle(method, path, handler)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	return response
}

func addPair(t *testing.T, app *Application, question, answer, category string) {
	t.Helper()

	if _, err := app.matcher.AddPair(context.Background(), question, answer, category); err != nil {
		t.Fatalf("AddPair(%q) error = %v", question, err)
	}
}

func TestHandleAsk_RequiresText(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/ask", app.handleAsk)

	for _, body := range []string{`{}`, `{"text": "   "}`, `not json`} {
		w := postJSON(router, "/api/v1/ask", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleAsk_AnswersFromCorpus(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	addPair(t, app, "Сколько длится обучение?", "Обучение длится 2 года.", "duration")

	router := newTestRouter(http.MethodPost, "/api/v1/ask", app.handleAsk)
	w := postJSON(router, "/api/v1/ask", `{"text": "Сколько длится обучение?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	response := decodeBody(t, w)
	answer, _ := response["answer"].(string)
	if !strings.Contains(answer, "Обучение длится 2 года.") {
		t.Errorf("answer = %q, want it to contain the stored answer", answer)
	}
	if source := response["source"]; source != "qa" {
		t.Errorf("source = %v, want %q", source, "qa")
	}
	if exact, _ := response["is_exact_match"].(bool); !exact {
		t.Error("is_exact_match = false, want true")
	}
}

func TestHandleAsk_EmptyCorpusFallsBack(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	mustReload(t, app.matcher)

	router := newTestRouter(http.MethodPost, "/api/v1/ask", app.handleAsk)
	w := postJSON(router, "/api/v1/ask", `{"text": "Что такое ИТМО?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if answer, _ := response["answer"].(string); answer == "" {
		t.Error("answer is empty, want a fallback response")
	}
	if source := response["source"]; source != "baseline" {
		t.Errorf("source = %v, want %q", source, "baseline")
	}
}

func TestHandleAsk_UnknownUserStillAnswers(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	addPair(t, app, "Сколько стоит обучение?", "Есть бюджетные места.", "cost")

	router := newTestRouter(http.MethodPost, "/api/v1/ask", app.handleAsk)
	w := postJSON(router, "/api/v1/ask", `{"text": "Сколько стоит обучение?", "user_id": 99999}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleRelated_RequiresText(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodGet, "/api/v1/related", app.handleRelated)

	w := getPath(router, "/api/v1/related")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRelated_ReturnsNeighbors(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	addPair(t, app, "Какие документы нужны для поступления?", "Нужен диплом бакалавра.", "admission")
	addPair(t, app, "Когда подавать документы?", "Приём открыт с июня.", "admission")
	addPair(t, app, "Где проходит практика?", "В компаниях-партнёрах.", "")

	router := newTestRouter(http.MethodGet, "/api/v1/related", app.handleRelated)
	path := "/api/v1/related?top_k=2&text=" + url.QueryEscape("документы для поступления")
	w := getPath(router, path)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	related, ok := response["related"].([]any)
	if !ok {
		t.Fatalf("related is %T, want an array", response["related"])
	}
	if len(related) == 0 || len(related) > 2 {
		t.Errorf("len(related) = %d, want 1..2", len(related))
	}
	if count, _ := response["count"].(float64); int(count) != len(related) {
		t.Errorf("count = %v, want %d", response["count"], len(related))
	}
}

func TestHandleAddQA(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/qa", app.handleAddQA)

	w := postJSON(router, "/api/v1/qa", `{"question": "Есть ли общежитие?", "answer": "Да, места предоставляются.", "category": "housing"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}

	response := decodeBody(t, w)
	if id, _ := response["id"].(float64); id < 1 {
		t.Errorf("id = %v, want >= 1", response["id"])
	}
	if got := app.matcher.Count(); got != 1 {
		t.Errorf("matcher.Count() = %d, want 1", got)
	}
}

func TestHandleAddQA_Validation(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/qa", app.handleAddQA)

	cases := []string{
		`{"answer": "Ответ без вопроса."}`,
		`{"question": "Вопрос без ответа?"}`,
		`{"question": "   ", "answer": "Пробельный вопрос."}`,
	}
	for _, body := range cases {
		w := postJSON(router, "/api/v1/qa", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)
	addPair(t, app, "Сколько длится обучение?", "Два года.", "duration")

	router := newTestRouter(http.MethodGet, "/api/v1/stats", app.handleStats)
	w := getPath(router, "/api/v1/stats")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	qaStats, ok := response["qa"].(map[string]any)
	if !ok {
		t.Fatalf("qa stats missing in %v", response)
	}
	if total, _ := qaStats["total_qa_pairs"].(float64); total != 1 {
		t.Errorf("total_qa_pairs = %v, want 1", qaStats["total_qa_pairs"])
	}

	knowledge, ok := response["knowledge"].(map[string]any)
	if !ok {
		t.Fatalf("knowledge stats missing in %v", response)
	}
	if programs, _ := knowledge["programs"].(float64); programs != 2 {
		t.Errorf("programs = %v, want 2", knowledge["programs"])
	}
}

func TestHandleInterests(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/interests", app.handleInterests)

	w := postJSON(router, "/api/v1/interests", `{"text": "Мне нравится машинное обучение"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	interests, ok := response["interests"].(map[string]any)
	if !ok {
		t.Fatalf("interests is %T, want a map", response["interests"])
	}
	if _, ok := interests["machine_learning"]; !ok {
		t.Errorf("interests = %v, want machine_learning present", interests)
	}

	w = postJSON(router, "/api/v1/interests", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", w.Code)
	}
}

func TestHandleProfile(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/profile", app.handleProfile)

	body := `{"telegram_id": 777, "username": "ivan", "text": "Есть опыт с python, интересно машинное обучение", "preferred_program": "AI"}`
	w := postJSON(router, "/api/v1/profile", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	response := decodeBody(t, w)
	profile, ok := response["profile"].(map[string]any)
	if !ok {
		t.Fatalf("profile missing in %v", response)
	}
	if id, _ := profile["telegram_id"].(float64); int64(id) != 777 {
		t.Errorf("telegram_id = %v, want 777", profile["telegram_id"])
	}

	stored, err := app.db.GetUserByTelegramID(context.Background(), 777)
	if err != nil {
		t.Fatalf("GetUserByTelegramID() error = %v", err)
	}
	if stored.PreferredProgram != "AI" {
		t.Errorf("PreferredProgram = %q, want %q", stored.PreferredProgram, "AI")
	}
	if len(stored.Interests) == 0 {
		t.Error("stored profile has no interests, want extraction results")
	}
}

func TestHandleProfile_InfersProgramFromText(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/profile", app.handleProfile)

	body := `{"telegram_id": 778, "text": "Хочу создавать AI-продукты и заниматься продуктовой аналитикой"}`
	w := postJSON(router, "/api/v1/profile", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	stored, err := app.db.GetUserByTelegramID(context.Background(), 778)
	if err != nil {
		t.Fatalf("GetUserByTelegramID() error = %v", err)
	}
	if stored.PreferredProgram != kb.ProgramKeyAIProduct {
		t.Errorf("PreferredProgram = %q, want %q", stored.PreferredProgram, kb.ProgramKeyAIProduct)
	}
}

func TestHandleProfile_RequiresIDAndText(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	router := newTestRouter(http.MethodPost, "/api/v1/profile", app.handleProfile)

	for _, body := range []string{`{}`, `{"telegram_id": 5}`, `{"text": "опыт с python"}`} {
		w := postJSON(router, "/api/v1/profile", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleRecommendations_General(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodPost, "/api/v1/recommendations", app.handleRecommendations)
	w := postJSON(router, "/api/v1/recommendations", `{}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if source := response["source"]; source != "general" {
		t.Errorf("source = %v, want %q", source, "general")
	}
	recs, ok := response["recommendations"].([]any)
	if !ok || len(recs) == 0 {
		t.Fatalf("recommendations = %v, want a non-empty array", response["recommendations"])
	}
	first, _ := recs[0].(map[string]any)
	if mandatory, _ := first["is_mandatory"].(bool); !mandatory {
		t.Errorf("first recommendation %v, want a mandatory course first", first)
	}
}

func TestHandleRecommendations_FromInterests(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodPost, "/api/v1/recommendations", app.handleRecommendations)
	w := postJSON(router, "/api/v1/recommendations", `{"interests": {"machine_learning": 1.0}, "top_k": 2}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if source := response["source"]; source != "interests" {
		t.Errorf("source = %v, want %q", source, "interests")
	}
	recs, _ := response["recommendations"].([]any)
	if len(recs) == 0 {
		t.Fatal("recommendations empty, want the ML course ranked")
	}
	first, _ := recs[0].(map[string]any)
	if name := first["course_name"]; name != "Машинное обучение" {
		t.Errorf("top course = %v, want %q", name, "Машинное обучение")
	}
}

func TestHandleRecommendations_FromProfile(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)
	ctx := context.Background()

	profile := &kb.UserProfile{
		TelegramID: 555,
		Username:   "maria",
		Interests:  map[string]float64{"machine_learning": 1.0},
	}
	if err := app.db.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	router := newTestRouter(http.MethodPost, "/api/v1/recommendations", app.handleRecommendations)
	w := postJSON(router, "/api/v1/recommendations", `{"telegram_id": 555}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if source := response["source"]; source != "profile" {
		t.Errorf("source = %v, want %q", source, "profile")
	}

	// The ranking lands in the user's history.
	history, err := app.db.GetRecommendations(ctx, 555)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(history) == 0 {
		t.Error("recommendation history empty, want the served ranking saved")
	}
}

func TestHandleRecommendations_FromText(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodPost, "/api/v1/recommendations", app.handleRecommendations)
	w := postJSON(router, "/api/v1/recommendations", `{"text": "Мне нравится машинное обучение"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if source := response["source"]; source != "text" {
		t.Errorf("source = %v, want %q", source, "text")
	}
	if count, _ := response["count"].(float64); count < 1 {
		t.Errorf("count = %v, want >= 1", response["count"])
	}
}

func TestHandlePrograms(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodGet, "/api/v1/programs", app.handlePrograms)
	w := getPath(router, "/api/v1/programs")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if count, _ := response["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", response["count"])
	}
}

func TestHandleProgramCourses(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodGet, "/api/v1/programs/:program/courses", app.handleProgramCourses)
	w := getPath(router, "/api/v1/programs/AI/courses")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	response := decodeBody(t, w)
	if count, _ := response["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", response["count"])
	}
	program, _ := response["program"].(map[string]any)
	if key := program["key"]; key != "AI" {
		t.Errorf("program key = %v, want %q", key, "AI")
	}
}

func TestHandleProgramCourses_UnknownProgram(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	seedCatalog(t, app.db)

	router := newTestRouter(http.MethodGet, "/api/v1/programs/:program/courses", app.handleProgramCourses)
	w := getPath(router, "/api/v1/programs/quantum/courses")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
