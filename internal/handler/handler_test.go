package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carfinder/internal/ingest"
	"carfinder/internal/model"
	"carfinder/internal/service"
)

// stubCompleter answers each pipeline prompt with a canned reply
type stubCompleter struct {
	filters string
	intent  string
}

func (s *stubCompleter) Complete(_ context.Context, system, _ string, _ float64, _ int) (string, error) {
	switch {
	case strings.Contains(system, "extracts structured data"):
		return s.filters, nil
	case strings.Contains(system, "general question"):
		return s.intent, nil
	default:
		return "The Toyota Camry is a great pick.", nil
	}
}

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

type stubBackend struct {
	hits     []model.ScoredCar
	cars     map[uint64]model.Car
	err      error
	upserted []model.IndexedCar
}

func (s *stubBackend) Search(context.Context, *model.Predicate, []float32, int) ([]model.ScoredCar, error) {
	return s.hits, s.err
}

func (s *stubBackend) Enumerate(context.Context, *model.Predicate, string, int) ([]model.Car, string, error) {
	return nil, "", s.err
}

func (s *stubBackend) GetCar(_ context.Context, id uint64) (*model.Car, error) {
	if s.err != nil {
		return nil, s.err
	}
	car, ok := s.cars[id]
	if !ok {
		return nil, nil
	}
	return &car, nil
}

func (s *stubBackend) EnsureIndex(context.Context, int) error { return nil }
func (s *stubBackend) ResetIndex(context.Context, int) error  { return nil }

func (s *stubBackend) UpsertCars(_ context.Context, cars []model.IndexedCar) error {
	s.upserted = append(s.upserted, cars...)
	return nil
}

type testEnv struct {
	llm     *stubCompleter
	emb     *stubEmbedder
	backend *stubBackend
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		llm:     &stubCompleter{filters: `{"model": "Toyota Camry"}`, intent: `{"type": "recommendation", "message": ""}`},
		emb:     &stubEmbedder{},
		backend: &stubBackend{cars: map[uint64]model.Car{7: {ID: 7, Model: "Toyota Camry"}}},
	}

	opts := service.RetrievalOptions{BaseThreshold: 0.5, MinThreshold: 0.3, ThresholdIncrement: 0.05, MaxTopK: 20, EnumerateBatch: 10}
	orchestrator := service.NewOrchestrator(service.NewFilterExtractor(env.llm), env.emb, env.backend, service.NewRanker(), opts)
	searchService := service.NewSearchService(orchestrator, service.NewResponder(env.llm, 0.7), env.backend, nil, 5)
	ingestService := ingest.NewService(nil, env.emb, env.backend, ingest.Options{Dimensions: 2})

	env.router = gin.New()
	RegisterRoutes(env.router, Handlers{
		Search:   NewSearchHandler(searchService),
		Feedback: NewFeedbackHandler(searchService),
		Cars:     NewCarBatchHandler(ingestService),
		Health: NewHealthHandler(BuildInfo{Version: "test"}, map[string]PingFunc{
			"index": func(context.Context) error { return nil },
		}),
	})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.backend.hits = []model.ScoredCar{{Car: model.Car{ID: 7, Model: "Toyota Camry"}, Score: 0.9}}

	w := env.do(http.MethodPost, "/rag/search", `{"question": "Toyota Camry please"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.RagQueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.OutcomeResults, resp.Outcome)
	assert.Equal(t, "The Toyota Camry is a great pick.", resp.Answer)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, "vector", resp.Strategy)
	assert.NotEmpty(t, resp.SearchID)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		embedErr error
		wantCode int
	}{
		{name: "malformed body", body: `{"question":`, wantCode: http.StatusBadRequest},
		{name: "missing question", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "blank question", body: `{"question": "   "}`, wantCode: http.StatusBadRequest},
		{name: "top_k too large", body: `{"question": "camry", "top_k": 21}`, wantCode: http.StatusBadRequest},
		{name: "top_k zero", body: `{"question": "camry", "top_k": 0}`, wantCode: http.StatusBadRequest},
		{name: "embedding down", body: `{"question": "camry"}`, embedErr: errors.New("boom"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.emb.err = tt.embedErr
			w := env.do(http.MethodPost, "/rag/search", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSearch_EmptyResultIsOK(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/search", `{"question": "white Subaru Outback"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.RagQueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.OutcomeEmpty, resp.Outcome)
	assert.NotEmpty(t, resp.Answer)
	assert.NotNil(t, resp.Results)
}

func TestSearchStream(t *testing.T) {
	env := newTestEnv(t)
	env.backend.hits = []model.ScoredCar{{Car: model.Car{ID: 7, Model: "Toyota Camry"}, Score: 0.9}}

	w := env.do(http.MethodPost, "/api/v1/search/stream", `{"question": "Toyota Camry please"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"start", "filters", "results", "answer", "done"}, events)
	assert.Contains(t, body, "great pick")
}

func TestSearchStream_ValidationBeforeStreaming(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/search/stream", `{"question": "camry", "top_k": 100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "event:")
}

func TestSearchStream_ErrorEvent(t *testing.T) {
	env := newTestEnv(t)
	env.emb.err = errors.New("boom")

	w := env.do(http.MethodPost, "/api/v1/search/stream", `{"question": "camry"}`)
	assert.Contains(t, w.Body.String(), "event: error")
	assert.NotContains(t, w.Body.String(), "event: done")
}

func TestGetCar(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/cars/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Toyota Camry")

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/cars/8", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/cars/abc", "").Code)

	env.backend.err = errors.New("index down")
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/v1/cars/7", "").Code)
}

func TestFeedback_DisabledWithoutLogger(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/feedback", `{"search_id": "abc", "car_id": 7, "action": "click"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodPost, "/api/v1/feedback", `{"search_id": "abc", "car_id": 7, "action": "like"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCarBatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/cars/batch", `{"cars": [{"id": 1, "model": "Kia Rio", "price": "5 000 000"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CarBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Success)
	require.Len(t, env.backend.upserted, 1)
	require.NotNil(t, env.backend.upserted[0].Car.PriceNum)
	assert.Equal(t, 5000000.0, *env.backend.upserted[0].Car.PriceNum)

	w = env.do(http.MethodPost, "/api/v1/cars/batch", `{"cars": [{"model": "No Id"}]}`)
	assert.Equal(t, http.StatusPartialContent, w.Code)

	w = env.do(http.MethodPost, "/api/v1/cars/batch", `{"cars": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/alive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())

	w = env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"index":"ok"`)

	w = env.do(http.MethodGet, "/version", "")
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/nope", "").Code)
}

func TestHealth_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHealthHandler(BuildInfo{}, map[string]PingFunc{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
