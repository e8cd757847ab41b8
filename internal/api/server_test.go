// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/jobs"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/store"
	"cv-pipeline/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type testEnv struct {
	server *Server
	store  *store.MemoryStore
	redis  *miniredis.Miniredis
}

func createTestServer(t *testing.T, checks ...ReadinessCheck) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewMemoryStore()
	broker := queue.NewRedisBroker(client, queue.RedisBrokerConfig{Prefix: "api"}, logger.NewTestLogger(t))
	svc, err := jobs.NewService(registry.Default(), st, broker, logger.NewTestLogger(t))
	require.NoError(t, err)

	return &testEnv{
		server: NewServer(svc, checks, logger.NewTestLogger(t)),
		store:  st,
		redis:  mr,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ==========================
// Submission Tests
// ==========================

func TestSubmitEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		jobType models.JobType
	}{
		{"evaluation", "/api/v1/evaluations", `{"cvDocumentId":"cv-1","jobDescriptionId":"backend-engineer"}`, models.JobTypeEvaluation},
		{"match", "/api/v1/matches", `{"cvDocumentId":"cv-1","location":"Jakarta"}`, models.JobTypeMatcher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestServer(t)
			rec := env.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, "queued", body["status"])
			id, _ := body["id"].(string)
			require.NotEmpty(t, id)

			job, err := env.store.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.jobType, job.Type)

			waiting, err := env.redis.List("api:" + string(tt.jobType) + ":waiting")
			require.NoError(t, err)
			assert.Equal(t, []string{id}, waiting)
		})
	}
}

func TestSubmit_InvalidPayload(t *testing.T) {
	env := createTestServer(t)

	rec := env.do(http.MethodPost, "/api/v1/evaluations", `{"cvDocumentId":"cv-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.Contains(t, errBody["message"], "jobDescriptionId")
	assert.NotEmpty(t, errBody["fields"])

	rec = env.do(http.MethodPost, "/api/v1/matches", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_QueueDown(t *testing.T) {
	env := createTestServer(t)
	env.redis.Close()

	rec := env.do(http.MethodPost, "/api/v1/matches", `{"cvDocumentId":"cv-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	all, err := env.store.List(context.Background(), store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// ==========================
// Polling Tests
// ==========================

func TestPolling(t *testing.T) {
	env := createTestServer(t)
	ctx := context.Background()

	rec := env.do(http.MethodPost, "/api/v1/matches", `{"cvDocumentId":"cv-1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode(t, rec)["id"].(string)

	rec = env.do(http.MethodGet, "/api/v1/jobs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+id+`","status":"queued"}`, rec.Body.String())

	require.NoError(t, env.store.UpdateStatus(ctx, id, models.StatusProcessing, 1))
	require.NoError(t, env.store.UpdateError(ctx, id, "External provider 'openai' failed: 502"))

	rec = env.do(http.MethodGet, "/api/v1/jobs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+id+`","status":"failed"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/admin/jobs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decode(t, rec)
	assert.Equal(t, "External provider 'openai' failed: 502", admin["error"])
	assert.Equal(t, float64(1), admin["attempts"])
}

func TestPolling_NotFound(t *testing.T) {
	env := createTestServer(t)

	for _, path := range []string{"/api/v1/jobs/missing", "/api/v1/admin/jobs/missing"} {
		rec := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "NOT_FOUND", decode(t, rec)["error"].(map[string]interface{})["code"])
	}
}

// ==========================
// Operational Endpoint Tests
// ==========================

func TestHealthAndReady(t *testing.T) {
	healthy := ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error { return nil }}
	env := createTestServer(t, healthy)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	broken := ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return errors.New("connection refused") }}
	env = createTestServer(t, healthy, broken)

	rec = env.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := decode(t, rec)["checks"].(map[string]interface{})
	assert.Equal(t, "connection refused", checks["postgres"])
	assert.NotContains(t, checks, "redis")
}

func TestMetricsEndpoint(t *testing.T) {
	env := createTestServer(t)
	env.do(http.MethodPost, "/api/v1/matches", `{"cvDocumentId":"cv-1"}`)

	rec := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cvpipeline_jobs_submitted_total")
}
