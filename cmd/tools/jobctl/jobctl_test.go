// cmd/tools/jobctl/jobctl_test.go
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cv-pipeline/internal/models"
	"cv-pipeline/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

// ==========================
// Command Tests
// ==========================

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jobctl version: unknown\n", out)
}

func TestPipelinesCommand(t *testing.T) {
	out, err := runCommand(t, "pipelines")
	require.NoError(t, err)
	assert.Contains(t, out, "evaluation")
	assert.Contains(t, out, "cv-matcher")
	assert.Contains(t, out, " -> ")
}

func TestPipelinesExportAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipelines.json")

	out, err := runCommand(t, "pipelines", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = runCommand(t, "pipelines", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 pipelines")

	broken := registry.Default()
	broken.Pipelines[1].Stages = nil
	require.NoError(t, registry.Save(broken, path))
	_, err = runCommand(t, "pipelines", "validate", path)
	assert.Error(t, err)
}

// ==========================
// Helper Tests
// ==========================

func TestPayloads(t *testing.T) {
	raw, err := json.Marshal(evaluationPayload(" cv-1 ", "backend-engineer", "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"cvDocumentId":"cv-1","jobDescriptionId":"backend-engineer"}`, string(raw))

	raw, err = json.Marshal(evaluationPayload("cv-1", "backend-engineer", "", " proj-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"cvDocumentId":"cv-1","jobDescriptionId":"backend-engineer","projectDocumentId":"proj-1"}`, string(raw))

	raw, err = json.Marshal(matchPayload("cv-1", " Jakarta"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"cvDocumentId":"cv-1","location":"Jakarta"}`, string(raw))
}

func TestListFilter(t *testing.T) {
	f := listFilter("matcher", []string{"failed", "completed"}, 5)
	assert.Equal(t, models.JobTypeMatcher, f.Type)
	assert.Equal(t, []models.JobStatus{models.StatusFailed, models.StatusCompleted}, f.Statuses)
	assert.Equal(t, 5, f.Limit)
}

func TestParseDescriptions(t *testing.T) {
	items, err := parseDescriptions([]byte(`[
		{"id":"jd-1","title":"Senior Backend Engineer (Go)","technicalRequirements":["Go"],"scoringWeights":{"technicalSkillsMatch":0.5}},
		{"id":"jd-2","slug":"data-eng","title":"Data Engineer"}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "senior-backend-engineer-go", items[0].Slug)
	assert.Equal(t, 0.5, items[0].ScoringWeights["technicalSkillsMatch"])
	assert.Equal(t, 0.25, items[0].ScoringWeights["experienceLevel"])
	assert.Equal(t, "data-eng", items[1].Slug)
	assert.Equal(t, models.DefaultScoringWeights(), items[1].ScoringWeights)

	_, err = parseDescriptions([]byte(`[{"title":"No id"}]`))
	assert.Error(t, err)
	_, err = parseDescriptions([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestDocumentFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	doc, err := documentFromFile(path, models.DocumentKindCV, "cv-1")
	require.NoError(t, err)
	assert.Equal(t, "cv-1", doc.ID)
	assert.Equal(t, "cv.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, int64(8), doc.Size)

	doc, err = documentFromFile(path, models.DocumentKindProject, "")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	_, err = documentFromFile(path, "resume", "")
	assert.Error(t, err)
	_, err = documentFromFile(dir, models.DocumentKindCV, "")
	assert.Error(t, err)
	_, err = documentFromFile(filepath.Join(dir, "missing.pdf"), models.DocumentKindCV, "")
	assert.Error(t, err)
}
