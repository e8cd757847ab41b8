// internal/vectorstore/store_test.go
package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Embedder Tests
// ==========================

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, DefaultHashDimensions, e.Dimensions())

	a, err := e.Embed(context.Background(), "Senior Go engineer, Kubernetes, PostgreSQL")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "senior go engineer kubernetes postgresql")
	require.NoError(t, err)
	c, err := e.Embed(context.Background(), "pastry chef with french bakery experience")
	require.NoError(t, err)

	assert.Len(t, a, DefaultHashDimensions)
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
	assert.Less(t, Cosine(a, c), Cosine(a, b))

	_, err = e.Embed(context.Background(), "  ,, ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestTokenize_KeepsLanguageNames(t *testing.T) {
	assert.Equal(t, []string{"c++", "c#", "and", "go"}, tokenize("C++, C# and Go."))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])
		assert.EqualValues(t, 3, req["dimensions"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1", "test-key", "text-embedding-3-small", 3)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = e.Embed(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOpenAIEmbedder_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL+"/v1", "test-key", "m", 0).Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimit))
	assert.True(t, apperrors.IsRetryable(err))
}

// ==========================
// Memory Store Tests
// ==========================

func TestMemoryStore_SearchRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewHashEmbedder(128))

	require.NoError(t, s.Upsert(ctx, []Document{
		{ID: "job-1", Text: "backend engineer golang postgres kafka", Metadata: map[string]interface{}{"type": TypeJobDescription}},
		{ID: "job-2", Text: "frontend engineer react typescript css", Metadata: map[string]interface{}{"type": TypeJobDescription}},
		{ID: "cv-1", Text: "backend engineer golang postgres kafka", Metadata: map[string]interface{}{"type": TypeCandidate}},
	}))
	assert.Equal(t, 3, s.Len())

	matches, err := s.Search(ctx, "golang backend", 3, Filter{"type": TypeJobDescription})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "job-1", matches[0].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	top1, err := s.Search(ctx, "golang backend", 1, nil)
	require.NoError(t, err)
	require.Len(t, top1, 1)
	assert.Equal(t, "cv-1", top1[0].ID) // ties break on id

	none, err := s.Search(ctx, "golang", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(NewHashEmbedder(64))

	require.NoError(t, s.Upsert(ctx, []Document{{ID: "cv-1", Text: "first version"}}))
	require.NoError(t, s.Upsert(ctx, []Document{{ID: "cv-1", Text: "second version"}}))
	assert.Equal(t, 1, s.Len())

	matches, err := s.Search(ctx, "second", 5, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "second version", matches[0].Text)
}

func TestMemoryStore_EmbedFailure(t *testing.T) {
	s := NewMemoryStore(NewHashEmbedder(64))
	err := s.Upsert(context.Background(), []Document{{ID: "x", Text: ""}})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStoreFailed))
	assert.Equal(t, 0, s.Len())
}

func TestFilter_Matches(t *testing.T) {
	meta := map[string]interface{}{"type": "a", "n": 1}
	assert.True(t, Filter(nil).matches(meta))
	assert.True(t, Filter{"type": "a"}.matches(meta))
	assert.False(t, Filter{"type": "b"}.matches(meta))
	assert.False(t, Filter{"n": "1"}.matches(meta))
	assert.False(t, Filter{"missing": "x"}.matches(meta))
}

// ==========================
// Seeding Tests
// ==========================

func TestDescriptionDocuments(t *testing.T) {
	jd := models.JobDescription{
		ID:                    "42",
		Slug:                  "backend",
		Title:                 "Backend Engineer",
		Description:           "Build APIs",
		TechnicalRequirements: []string{"Go", "PostgreSQL"},
		ScoringWeights:        models.ScoringWeights{"technicalSkillsMatch": 0.6, "culturalFit": 0.4},
	}

	docs := DescriptionDocuments(jd)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"job-42", "job-tech-42", "rubric-42-culturalFit", "rubric-42-technicalSkillsMatch"}, ids)
	assert.Equal(t, TypeJobDescription, docs[0].Metadata["type"])
	assert.Equal(t, TypeScoringRubric, docs[2].Metadata["type"])
	assert.Contains(t, docs[1].Text, "- PostgreSQL")

	// same input, same ids
	assert.Equal(t, docs, DescriptionDocuments(jd))
}

func TestCandidateDocument(t *testing.T) {
	d := CandidateDocument("doc-7", "job-1", "text")
	assert.Equal(t, "cv-doc-7", d.ID)
	assert.Equal(t, TypeCandidate, d.Metadata["type"])
	assert.Equal(t, []string{"a", "b"}, Texts([]Match{{Text: "a"}, {Text: "b"}}))
}
