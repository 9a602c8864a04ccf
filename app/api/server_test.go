package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/intel-comb/app/database"
	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/rules"
	"github.com/lysyi3m/intel-comb/app/tasks"
	"github.com/prometheus/client_golang/prometheus"
)

const testAPIKey = "secret"

type mockScheduler struct {
	mu    sync.Mutex
	tasks []tasks.TaskInterface
	err   error
}

func (m *mockScheduler) Start() {}
func (m *mockScheduler) Stop()  {}
func (m *mockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

type mockSweeper struct {
	last tasks.SweepResult
	ran  bool
}

func (m *mockSweeper) Sweep(ctx context.Context) (tasks.SweepResult, error) {
	return m.last, nil
}

func (m *mockSweeper) LastResult() (tasks.SweepResult, bool) {
	return m.last, m.ran
}

type testEnv struct {
	router    *gin.Engine
	db        *database.DB
	scheduler *mockScheduler
	sweeper   *mockSweeper
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	scheduler := &mockScheduler{}
	sweeper := &mockSweeper{}
	handler := NewHandler(
		database.NewItemRepository(db),
		database.NewAlertRepository(db),
		database.NewLedgerRepository(db),
		database.NewCooldownRepository(db),
		scheduler,
		sweeper,
		prometheus.NewRegistry(),
		nil,
	)

	return &testEnv{
		router:    NewServer(handler, apiKey),
		db:        db,
		scheduler: scheduler,
		sweeper:   sweeper,
	}
}

func (e *testEnv) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do("GET", "/health", "", false)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", w.Body.String())
	}

	w = env.do("GET", "/", "", false)
	body := decode(t, w)
	endpoints := body["endpoints"].(map[string]interface{})
	if _, ok := endpoints["items"]; ok {
		t.Error("Expected API endpoints to be hidden without an access key")
	}

	w = env.do("GET", "/favicon.ico", "", false)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do("GET", "/api/alerts", "", true)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, testAPIKey)

	w := env.do("GET", "/api/alerts", "", false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if decode(t, w)["error"] != "API key required" {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/alerts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer key, got %d", w.Code)
	}
}

func TestIngestItems(t *testing.T) {
	env := newTestEnv(t, testAPIKey)

	body := `{"items": [
		{"id": "r1", "company_id": "acme", "category": "review", "source_type": "g2",
		 "gist": "billing", "rating": 1.5, "observed_at": "2025-03-10T12:00:00Z"},
		{"id": "p1", "company_id": "acme", "category": "social_post", "source_type": "linkedin",
		 "likes": 40, "observed_at": "2025-03-10T13:00:00Z"}
	]}`

	w := env.do("POST", "/api/items?sweep=true", body, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["accepted"] != float64(2) || resp["sweep_enqueued"] != true {
		t.Errorf("Unexpected response: %v", resp)
	}
	if len(env.scheduler.tasks) != 1 || env.scheduler.tasks[0].GetType() != tasks.TaskTypeEvaluateItems {
		t.Errorf("Expected one evaluation task, got %d", len(env.scheduler.tasks))
	}

	pending, err := database.NewItemRepository(env.db).GetPendingItems(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingItems failed: %v", err)
	}
	if len(pending) != 2 || pending[0].Rating == nil || *pending[0].Rating != 1.5 {
		t.Errorf("Expected stored items, got %+v", pending)
	}

	w = env.do("GET", "/stats", "", false)
	stats := decode(t, w)
	if stats["pending_items"] != float64(2) {
		t.Errorf("Expected 2 pending items in stats, got %v", stats["pending_items"])
	}
}

func TestIngestItems_Invalid(t *testing.T) {
	env := newTestEnv(t, testAPIKey)

	w := env.do("POST", "/api/items", `{"items": [{"id": "x", "company_id": "acme", "category": "tweet", "observed_at": "2025-03-10T12:00:00Z"}]}`, true)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown category") {
		t.Errorf("Expected validation message, got %s", w.Body.String())
	}

	w = env.do("POST", "/api/items", `not json`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = env.do("POST", "/api/items", `{"items": []}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d", w.Code)
	}
}

func TestListAlertsAndLedger(t *testing.T) {
	env := newTestEnv(t, testAPIKey)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := database.NewAlertRepository(env.db).SaveAlert(ctx, rules.Alert{
		ID: "a1", ItemID: "r1", Rule: "low_rating", CompanyID: "acme",
		Bucket: rules.BucketCustomerVoice, Chip: "low-star-review", Tier: rules.Tier1,
		Title: "Acme: low-star review", ObservedAt: at,
	})
	if err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}
	key := dedup.Key{CompanyID: "acme", Type: "review:complaint", Topic: "low-star-review"}
	if err := database.NewLedgerRepository(env.db).RecordMention(ctx, key, at); err != nil {
		t.Fatalf("RecordMention failed: %v", err)
	}
	if err := database.NewCooldownRepository(env.db).MarkNotified(ctx, key, at); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}

	w := env.do("GET", "/api/alerts?company=acme&limit=10", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if decode(t, w)["total"] != float64(1) {
		t.Errorf("Expected 1 alert, got %s", w.Body.String())
	}

	w = env.do("GET", "/api/alerts?limit=abc", "", true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}

	w = env.do("GET", "/api/ledger/acme", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	ledger := body["ledger"].([]interface{})
	cooldowns := body["cooldowns"].([]interface{})
	if len(ledger) != 1 || len(cooldowns) != 1 {
		t.Errorf("Expected one ledger row and one cooldown, got %s", w.Body.String())
	}
}

func TestTriggerSweep(t *testing.T) {
	env := newTestEnv(t, testAPIKey)

	w := env.do("POST", "/api/sweep", "", true)
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}
	if env.scheduler.tasks[0].GetScope() != tasks.ScopeManual {
		t.Errorf("Expected manual scope, got %s", env.scheduler.tasks[0].GetScope())
	}

	env.scheduler.err = errors.New("task queue is full")
	w = env.do("POST", "/api/sweep", "", true)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestStatsIncludesLastSweep(t *testing.T) {
	env := newTestEnv(t, "")
	env.sweeper.ran = true
	env.sweeper.last = tasks.SweepResult{RunID: "run-1", Items: 3, Alerts: 1}

	w := env.do("GET", "/stats", "", false)
	body := decode(t, w)
	last, ok := body["last_sweep"].(map[string]interface{})
	if !ok || last["run_id"] != "run-1" {
		t.Errorf("Expected last sweep in stats, got %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do("GET", "/metrics", "", false)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}
