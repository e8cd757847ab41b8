// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())

	eval, ok := reg.Find("evaluation")
	require.True(t, ok)
	assert.Equal(t, []string{"resolve_document", "extract_profile", "evaluate", "evaluate_project", "score", "summarize"}, eval.Stages)
	assert.Equal(t, []interface{}{"cvDocumentId", "jobDescriptionId"}, eval.InputSchema["required"])

	match, ok := reg.Find("matcher")
	require.True(t, ok)
	assert.Len(t, match.Stages, 6)

	_, ok = reg.Find("unknown")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := func() Pipeline {
		return Pipeline{JobType: "evaluation", TaskType: "cv-evaluation", Stages: []string{"score"}, Timeout: "5m"}
	}

	tests := []struct {
		name    string
		mutate  func(r *PipelineRegistry)
		wantErr string
	}{
		{"valid", func(r *PipelineRegistry) {}, ""},
		{"empty", func(r *PipelineRegistry) { r.Pipelines = nil }, "no pipelines"},
		{"missing job type", func(r *PipelineRegistry) { r.Pipelines[0].JobType = "" }, "jobType"},
		{"duplicate", func(r *PipelineRegistry) { r.Pipelines = append(r.Pipelines, valid()) }, "duplicate"},
		{"missing task type", func(r *PipelineRegistry) { r.Pipelines[0].TaskType = "" }, "taskType"},
		{"no stages", func(r *PipelineRegistry) { r.Pipelines[0].Stages = nil }, "no stages"},
		{"bad timeout", func(r *PipelineRegistry) { r.Pipelines[0].Timeout = "soon" }, "invalid timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &PipelineRegistry{Pipelines: []Pipeline{valid()}}
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipelines.json")
	require.NoError(t, Save(Default(), path))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.LastUpdated)
	assert.Len(t, reg.Pipelines, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	embedded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", embedded.Version)
}
