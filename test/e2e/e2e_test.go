// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cv-pipeline/internal/api"
	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/events"
	"cv-pipeline/internal/jobs"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/pipeline"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/reasoning"
	"cv-pipeline/internal/store"
	"cv-pipeline/internal/vectorstore"
	"cv-pipeline/internal/workers/evaluation"
	"cv-pipeline/internal/workers/matcher"
	"cv-pipeline/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Scripted Model
// ==========================

// scriptedModel answers each reasoning call by its system prompt. Calls can
// be made to fail a number of times first.
type scriptedModel struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func newScriptedModel() *scriptedModel {
	return &scriptedModel{failures: map[string]int{}, calls: map[string]int{}}
}

func (m *scriptedModel) failFirst(call string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[call] = n
}

func (m *scriptedModel) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[call]
}

func callName(system string) string {
	switch {
	case strings.HasPrefix(system, "You parse CVs"):
		return "extract"
	case strings.HasPrefix(system, "You are a recruiter scoring"):
		return "evaluate"
	case strings.HasPrefix(system, "You are a hiring manager"):
		return "summary"
	case strings.HasPrefix(system, "You are a career advisor familiar"):
		return "roles"
	case strings.HasPrefix(system, "You are a career advisor turning"):
		return "match_summary"
	case strings.HasPrefix(system, "You are a recruiter judging"):
		return "skill_score"
	}
	return "unknown"
}

var scriptedAnswers = map[string]string{
	"extract": "```json\n" + `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"skills": ["Go", "PostgreSQL", "Docker", "Redis", "Kafka"],
		"experience_years": 5,
		"work_experience": [{"company": "Acme", "position": "Backend Engineer", "description": "Built payment APIs and backend services"}],
		"education": [],
		"seniority": "Senior"
	}` + "\n```",
	"evaluate": `{"match_rate": 0.8, "strengths": ["Go services"], "gaps": ["Kubernetes"], "feedback": "Strong backend profile",
		"scores": {"technicalSkillsMatch": 4, "experienceLevel": 4, "relevantAchievements": 4, "culturalFit": 4, "aiExperience": 4}}`,
	"summary":       `{"overall_summary": "Jane is a strong backend candidate.", "recommendation": "YES"}`,
	"roles":         `{"suggested_roles": ["Backend Engineer", "Platform Engineer"], "seniority": "Senior"}`,
	"match_summary": `{"summary": {"strengths": ["API design"], "improvements": ["Cloud certifications"], "next_steps": ["Apply to platform roles"]}}`,
	"skill_score":   `{"score": 72}`,
}

func (m *scriptedModel) Complete(ctx context.Context, prompt string, opts reasoning.Options) (string, error) {
	call := callName(opts.SystemPrompt)

	m.mu.Lock()
	m.calls[call]++
	failing := m.failures[call] > 0
	if failing {
		m.failures[call]--
	}
	m.mu.Unlock()

	if failing {
		return "", apperrors.NewRateLimitError("scripted", errors.New("429 Too Many Requests"))
	}
	return scriptedAnswers[call], nil
}

// recordingSink keeps every event the pipeline emits.
type recordingSink struct {
	mu     sync.Mutex
	events []queue.Event
}

func (s *recordingSink) Name() string                   { return "recording" }
func (s *recordingSink) Accepts(t queue.EventType) bool { return true }

func (s *recordingSink) Send(ctx context.Context, evt queue.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) types(jobID string) []queue.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []queue.EventType
	for _, e := range s.events {
		if e.JobID == jobID {
			out = append(out, e.Type)
		}
	}
	return out
}

// ==========================
// Test Helper Functions
// ==========================

const cvText = "CURRICULUM VITAE\nJane Doe\njane@example.com\nBackend engineer, five years of Go and PostgreSQL. Built payment APIs."

type system struct {
	server *httptest.Server
	store  *store.MemoryStore
	redis  *miniredis.Miniredis
	model  *scriptedModel
	sink   *recordingSink
}

func startSystem(t *testing.T) *system {
	t.Helper()
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cvPath := filepath.Join(t.TempDir(), "jane.txt")
	require.NoError(t, os.WriteFile(cvPath, []byte(cvText), 0o600))
	source := documents.NewMemorySource(models.Document{
		ID: "cv-jane", Filename: "jane.txt", MimeType: "text/plain", Path: cvPath, Kind: models.DocumentKindCV,
	})
	resolver := documents.NewResolver(source, documents.NewFileExtractor(log), documents.NewRedisTextCache(client, time.Hour), log)

	jd := models.JobDescription{
		ID:                    "jd-backend",
		Slug:                  "backend-engineer",
		Title:                 "Backend Engineer",
		Company:               "Acme",
		Description:           "Build and operate payment services",
		TechnicalRequirements: []string{"Go", "PostgreSQL", "Kubernetes"},
		SoftSkillRequirements: []string{"Ownership", "Communication"},
		ScoringWeights:        models.DefaultScoringWeights(),
	}
	descriptions := documents.NewMemoryDescriptionRepository(jd)
	vectors := vectorstore.NewMemoryStore(vectorstore.NewHashEmbedder(384))
	require.NoError(t, vectors.Upsert(ctx, vectorstore.DescriptionDocuments(jd)))

	model := newScriptedModel()
	reasoner := reasoning.NewService(model, 5*time.Second, log)
	sink := &recordingSink{}
	publisher := events.NewMulti(log, events.NewLogSink(log), sink)
	guard := pipeline.NewRedisGuard(client, "e2e", time.Hour)

	st := store.NewMemoryStore()
	broker := queue.NewRedisBroker(client, queue.RedisBrokerConfig{
		Prefix:       "e2e",
		PollInterval: 5 * time.Millisecond,
		LeaseTimeout: time.Minute,
		ReapInterval: 50 * time.Millisecond,
	}, log)

	reg := registry.Default()
	svc, err := jobs.NewService(reg, st, broker, log)
	require.NoError(t, err)

	retry := queue.RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond, Multiplier: 1, MaxDelay: 10 * time.Millisecond}
	pipelines := []pipeline.Pipeline{
		evaluation.NewHandler(nil, evaluation.Dependencies{
			Documents:    resolver,
			Descriptions: descriptions,
			Reasoning:    reasoner,
			Vectors:      vectors,
			Guard:        guard,
		}, log),
		matcher.NewHandler(nil, matcher.Dependencies{
			Documents: resolver,
			Reasoning: reasoner,
		}, log),
	}

	var wg sync.WaitGroup
	for _, p := range pipelines {
		runner := pipeline.NewRunner(p, st, pipeline.RunnerOptions{Retry: retry, Events: publisher}, log)
		wg.Add(1)
		go func(jobType models.JobType) {
			defer wg.Done()
			_ = broker.Consume(ctx, jobType, 2, runner.Handle)
		}(p.JobType())
	}

	server := httptest.NewServer(api.NewServer(svc, []api.ReadinessCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return client.Ping(ctx).Err() }},
	}, log).Handler())

	t.Cleanup(func() {
		server.Close()
		cancel()
		wg.Wait()
		client.Close()
	})

	return &system{server: server, store: st, redis: mr, model: model, sink: sink}
}

func (s *system) post(t *testing.T, path, body string) (int, map[string]interface{}) {
	t.Helper()
	res, err := http.Post(s.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return readJSON(t, res)
}

func (s *system) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	res, err := http.Get(s.server.URL + path)
	require.NoError(t, err)
	return readJSON(t, res)
}

func readJSON(t *testing.T, res *http.Response) (int, map[string]interface{}) {
	t.Helper()
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return res.StatusCode, out
}

// waitFor polls the public status endpoint until the job is terminal.
func (s *system) waitFor(t *testing.T, id string) map[string]interface{} {
	t.Helper()
	var last map[string]interface{}
	require.Eventually(t, func() bool {
		code, body := s.get(t, "/api/v1/jobs/"+id)
		if code != http.StatusOK {
			return false
		}
		last = body
		status := body["status"]
		return status == string(models.StatusCompleted) || status == string(models.StatusFailed)
	}, 10*time.Second, 20*time.Millisecond, "job %s never reached a terminal status", id)
	return last
}

func submit(t *testing.T, s *system, path, body string) string {
	t.Helper()
	code, resp := s.post(t, path, body)
	require.Equal(t, http.StatusAccepted, code, resp)
	assert.Equal(t, "queued", resp["status"])
	id, _ := resp["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// ==========================
// End-to-End Flows
// ==========================

func TestEvaluationFlow(t *testing.T) {
	s := startSystem(t)

	id := submit(t, s, "/api/v1/evaluations", `{"cvDocumentId":"cv-jane","jobDescriptionId":"backend-engineer"}`)
	final := s.waitFor(t, id)
	require.Equal(t, "completed", final["status"], final)
	assert.NotContains(t, final, "stage")
	assert.NotContains(t, final, "progress")

	result := final["result"].(map[string]interface{})
	assert.Equal(t, "Jane Doe", result["candidate_name"])
	assert.Equal(t, "YES", result["recommendation"])
	assert.InDelta(t, 80.0, result["cv_match_rate"], 1e-9)

	job, err := s.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, 100, job.ProgressPct)
	assert.Empty(t, job.Error)

	assert.Eventually(t, func() bool {
		types := s.sink.types(id)
		return len(types) > 0 && types[len(types)-1] == queue.EventCompleted
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, s.sink.types(id), queue.EventProgress)

	// extracted text is cached for the next job on the same document
	cached, err := s.redis.Get("cvtext:cv-jane")
	require.NoError(t, err)
	assert.Equal(t, cvText, cached)
}

func TestMatcherFlow(t *testing.T) {
	s := startSystem(t)

	id := submit(t, s, "/api/v1/matches", `{"cvDocumentId":"cv-jane","location":"Jakarta"}`)
	final := s.waitFor(t, id)
	require.Equal(t, "completed", final["status"], final)

	result := final["result"].(map[string]interface{})
	assert.Equal(t, true, result["fallback_listings"])

	ranked := result["jobs"].([]interface{})
	require.NotEmpty(t, ranked)
	prev := 101.0
	for _, raw := range ranked {
		score := raw.(map[string]interface{})["score"].(float64)
		assert.LessOrEqual(t, score, prev, "jobs are ranked by score")
		prev = score
	}
	assert.Positive(t, s.model.count("roles"))
}

func TestTransientFailureIsRetried(t *testing.T) {
	s := startSystem(t)
	s.model.failFirst("evaluate", 1)

	id := submit(t, s, "/api/v1/evaluations", `{"cvDocumentId":"cv-jane","jobDescriptionId":"jd-backend"}`)
	final := s.waitFor(t, id)
	require.Equal(t, "completed", final["status"], final)

	job, err := s.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, 2, s.model.count("evaluate"))
	assert.Contains(t, s.sink.types(id), queue.EventRetrying)
}

func TestExhaustedRetriesFailJob(t *testing.T) {
	s := startSystem(t)
	s.model.failFirst("roles", 10)

	id := submit(t, s, "/api/v1/matches", `{"cvDocumentId":"cv-jane"}`)
	final := s.waitFor(t, id)
	assert.Equal(t, map[string]interface{}{"id": id, "status": "failed"}, final)

	code, admin := s.get(t, "/api/v1/admin/jobs/"+id)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), admin["attempts"])
	assert.NotEmpty(t, admin["error"])
	assert.Equal(t, 3, s.model.count("roles"))
}

func TestMissingDocumentFailsWithoutRetry(t *testing.T) {
	s := startSystem(t)

	id := submit(t, s, "/api/v1/evaluations", `{"cvDocumentId":"cv-unknown","jobDescriptionId":"backend-engineer"}`)
	final := s.waitFor(t, id)
	assert.Equal(t, "failed", final["status"])

	job, err := s.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)
	assert.Contains(t, job.Error, "cv-unknown")
	assert.Zero(t, s.model.count("extract"))
}

func TestRejectedSubmissionsNeverQueue(t *testing.T) {
	s := startSystem(t)

	code, body := s.post(t, "/api/v1/evaluations", `{"cvDocumentId":"cv-jane"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"].(map[string]interface{})["code"])

	all, err := s.store.List(context.Background(), store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentSubmissions(t *testing.T) {
	s := startSystem(t)

	const n = 6
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path, body := "/api/v1/matches", `{"cvDocumentId":"cv-jane"}`
		if i%2 == 0 {
			path, body = "/api/v1/evaluations", `{"cvDocumentId":"cv-jane","jobDescriptionId":"backend-engineer"}`
		}
		ids = append(ids, submit(t, s, path, body))
	}

	for _, id := range ids {
		final := s.waitFor(t, id)
		assert.Equal(t, "completed", final["status"], id)
	}

	code, ready := s.get(t, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", ready["status"])
}
