// Package pipeline runs a job's stages in order and owns its status
// transitions in the job store.
package pipeline

import (
	"context"

	"cv-pipeline/internal/models"
)

// Step is one stage of a planned job. Do returns the partial result that is
// persisted under the stage name.
type Step struct {
	Stage string
	Do    func(ctx context.Context) (interface{}, error)
}

// Execution is a job's planned stage sequence. Steps share state through the
// value that built them; Result is read after the last step succeeds.
type Execution struct {
	Steps  []Step
	Result func() interface{}
}

// Pipeline plans executions for one job type. Plan must not call external
// collaborators; a bad input reference is a validation error.
type Pipeline interface {
	JobType() models.JobType
	Stages() []string
	Plan(job *models.Job) (*Execution, error)
}
