package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"

	"nutrilog/internal/ratelimit"
	"nutrilog/pkg/metrics"
	"nutrilog/pkg/store"
	"nutrilog/services/nutrition/internal/app"
)

type stubVerifier map[string]string

func (v stubVerifier) VerifySubject(_ context.Context, token string) (string, error) {
	if sub, ok := v[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid token")
}

type testEnv struct {
	srv *httptest.Server
}

func newTestServer(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	s, err := store.NewGormStore("", store.WithDialector(sqlite.Open("file::memory:")), store.WithLogLevel(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	core, err := app.New(app.Config{
		Store: s,
		Now:   func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = core
	if cfg.Verifier == nil {
		cfg.Verifier = stubVerifier{"token-1": "u1", "token-2": "u2"}
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)
	return &testEnv{srv: hs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestNewRequiresAppAndVerifier(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected missing app to fail")
	}
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestServer(t, Config{})
	resp, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response: %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	resp, body = env.do(t, http.MethodGet, "/api/summary/daily", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "AUTH_INVALID_TOKEN" {
		t.Fatalf("expected 401 without token, got %d %v", resp.StatusCode, body)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/summary/daily", "forged", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.StatusCode)
	}
}

func TestExtractTextAndSaveMealFlow(t *testing.T) {
	env := newTestServer(t, Config{})

	resp, body := env.do(t, http.MethodPost, "/api/extract", "token-1", map[string]string{"modality": "text", "text": "2 eggs, 1 cup rice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extract expected 200, got %d %v", resp.StatusCode, body)
	}
	items, _ := body["items"].([]any)
	if len(items) != 2 || body["source"] != "fallback" {
		t.Fatalf("unexpected extraction: %v", body)
	}

	resp, body = env.do(t, http.MethodPut, "/api/meals", "token-1", map[string]any{
		"mealDate": "2024-03-05",
		"mealType": "breakfast",
		"items":    items,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save expected 200, got %d %v", resp.StatusCode, body)
	}
	meal, _ := body["meal"].(map[string]any)
	mealID, _ := meal["id"].(string)
	if mealID == "" {
		t.Fatalf("expected meal id, got %v", body)
	}

	resp, body = env.do(t, http.MethodGet, "/api/summary/daily?date=2024-03-05", "token-1", nil)
	if cal, _ := body["totalCalories"].(float64); resp.StatusCode != http.StatusOK || math.Abs(cal-335) > 1e-6 {
		t.Fatalf("unexpected daily summary: %d %v", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/meals/"+mealID, "token-2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected other user to get 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/meals/"+mealID, "token-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", resp.StatusCode)
	}
}

func TestSaveMealDefaultsOmittedQuantity(t *testing.T) {
	env := newTestServer(t, Config{})
	resp, body := env.do(t, http.MethodPut, "/api/meals", "token-1", map[string]any{
		"mealDate": "2024-03-05",
		"mealType": "lunch",
		"items":    []map[string]any{{"foodName": "apple", "calories": 95}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save expected 200, got %d %v", resp.StatusCode, body)
	}
	meal := body["meal"].(map[string]any)
	item := meal["items"].([]any)[0].(map[string]any)
	if item["quantity"] != 1.0 || item["confidenceScore"] != 1.0 {
		t.Fatalf("expected defaults, got %v", item)
	}

	resp, body = env.do(t, http.MethodPut, "/api/meals", "token-1", map[string]any{
		"mealDate": "2024-03-05",
		"mealType": "lunch",
		"items":    []map[string]any{{"foodName": "apple", "quantity": 0}},
	})
	if resp.StatusCode != http.StatusBadRequest || body["field"] != "items[0].quantity" {
		t.Fatalf("expected explicit zero quantity to fail, got %d %v", resp.StatusCode, body)
	}
}

func TestSaveMealRejectsMissingMealType(t *testing.T) {
	env := newTestServer(t, Config{})
	resp, body := env.do(t, http.MethodPut, "/api/meals", "token-1", map[string]any{"mealDate": "2024-03-05"})
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "NUTRITION_INVALID_REQUEST" {
		t.Fatalf("expected 400, got %d %v", resp.StatusCode, body)
	}
}

func TestAllergyAlertOnSave(t *testing.T) {
	env := newTestServer(t, Config{})
	resp, body := env.do(t, http.MethodPost, "/api/allergies", "token-1", map[string]string{"allergenName": "Dairy", "severity": "severe"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add allergy expected 201, got %d %v", resp.StatusCode, body)
	}
	allergyID := body["id"].(string)

	resp, body = env.do(t, http.MethodPut, "/api/meals", "token-1", map[string]any{
		"mealDate": "2024-03-05",
		"mealType": "lunch",
		"items":    []map[string]any{{"foodName": "Dairy Smoothie"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save expected 200, got %d %v", resp.StatusCode, body)
	}
	alerts := body["alerts"].([]any)
	if len(alerts) != 1 || alerts[0].(map[string]any)["alertLevel"] != "critical" {
		t.Fatalf("expected critical alert, got %v", alerts)
	}

	resp, body = env.do(t, http.MethodPatch, "/api/allergies/"+allergyID, "token-1", map[string]string{"severity": "mild"})
	if resp.StatusCode != http.StatusOK || body["severity"] != "mild" {
		t.Fatalf("patch expected mild, got %d %v", resp.StatusCode, body)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/allergies/"+allergyID, "token-2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected other user delete to 404, got %d", resp.StatusCode)
	}
}

func TestWaterGoalsAndProgress(t *testing.T) {
	env := newTestServer(t, Config{})
	resp, body := env.do(t, http.MethodPost, "/api/water", "token-1", map[string]any{"date": "2024-03-05", "amountMl": 750})
	if resp.StatusCode != http.StatusOK || body["totalWater"] != 750.0 {
		t.Fatalf("unexpected water response: %d %v", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodPost, "/api/goals", "token-1", map[string]any{"waterTarget": 2000})
	if resp.StatusCode != http.StatusCreated || body["startDate"] != "2024-03-05" {
		t.Fatalf("unexpected goal response: %d %v", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/goals/active", "token-1", nil)
	if resp.StatusCode != http.StatusOK || body["goal"] == nil {
		t.Fatalf("expected active goal, got %d %v", resp.StatusCode, body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/goals/progress?date=2024-03-05", "token-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress expected 200, got %d %v", resp.StatusCode, body)
	}
	if metricsList, _ := body["metrics"].([]any); len(metricsList) != 8 {
		t.Fatalf("expected 8 metrics, got %v", body["metrics"])
	}
	resp, _ = env.do(t, http.MethodGet, "/api/summary/monthly?year=2024&month=march", "token-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected non-numeric month to fail, got %d", resp.StatusCode)
	}
	resp, body = env.do(t, http.MethodGet, "/api/summary/range?start=2024-03-01&end=2024-03-07", "token-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("range expected 200, got %d %v", resp.StatusCode, body)
	}
}

func TestExtractImageMultipart(t *testing.T) {
	env := newTestServer(t, Config{MaxUploadBytes: 1024})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("modality", "image")
	fw, _ := mw.CreateFormFile("file", "meal.jpg")
	_, _ = fw.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["reason"] != app.ReasonNoItemsFound {
		t.Fatalf("expected no_items_found, got %d %v", resp.StatusCode, body)
	}
}

func TestExtractRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestServer(t, Config{ExtractLimiter: limiter})
	body := map[string]string{"modality": "text", "text": "banana"}
	resp, _ := env.do(t, http.MethodPost, "/api/extract", "token-1", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/extract", "token-1", body)
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Fatalf("second request expected 429, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/extract", "token-2", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other user expected 200, got %d", resp.StatusCode)
	}
}

func TestInternalPurgeRequiresToken(t *testing.T) {
	env := newTestServer(t, Config{InternalToken: "secret"})
	resp, _ := env.do(t, http.MethodDelete, "/internal/users/u1", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without internal token, got %d", resp.StatusCode)
	}
	req, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/internal/users/u1", nil)
	req.Header.Set("X-Internal-Token", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purge expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	env := newTestServer(t, Config{Metrics: m})
	resp, err := http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics expected 200, got %d", resp.StatusCode)
	}
}
