// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

//go:embed pipelines.json
var defaultRegistry []byte

// Default returns the registry compiled into the binary.
func Default() *PipelineRegistry {
	var reg PipelineRegistry
	if err := json.Unmarshal(defaultRegistry, &reg); err != nil {
		panic(fmt.Sprintf("embedded pipeline registry: %v", err))
	}
	return &reg
}

func LoadRegistry(path string) (*PipelineRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg PipelineRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Load reads path, or returns the embedded registry when path is empty.
func Load(path string) (*PipelineRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *PipelineRegistry) Find(jobType string) (*Pipeline, bool) {
	for i := range r.Pipelines {
		if r.Pipelines[i].JobType == jobType {
			return &r.Pipelines[i], true
		}
	}
	return nil, false
}

func (r *PipelineRegistry) Validate() error {
	if len(r.Pipelines) == 0 {
		return fmt.Errorf("registry contains no pipelines")
	}

	seen := make(map[string]bool)
	for _, p := range r.Pipelines {
		if p.JobType == "" {
			return fmt.Errorf("pipeline missing required field: jobType")
		}
		if seen[p.JobType] {
			return fmt.Errorf("duplicate pipeline jobType: %s", p.JobType)
		}
		seen[p.JobType] = true

		if p.TaskType == "" {
			return fmt.Errorf("pipeline %s missing required field: taskType", p.JobType)
		}
		if len(p.Stages) == 0 {
			return fmt.Errorf("pipeline %s has no stages", p.JobType)
		}
		if p.Timeout != "" {
			if _, err := time.ParseDuration(p.Timeout); err != nil {
				return fmt.Errorf("pipeline %s has invalid timeout %q: %w", p.JobType, p.Timeout, err)
			}
		}
	}
	return nil
}

// Save writes the registry as indented JSON, stamping LastUpdated.
func Save(reg *PipelineRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
