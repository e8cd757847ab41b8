// internal/models/job.go
package models

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeEvaluation JobType = "evaluation"
	JobTypeMatcher    JobType = "matcher"
)

func (t JobType) Valid() bool {
	return t == JobTypeEvaluation || t == JobTypeMatcher
}

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition encodes queued -> processing -> {completed | failed}.
// processing -> processing is the re-claim of a retried attempt.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Job is the single coordination record for one pipeline run.
type Job struct {
	ID          string                     `json:"id"`
	Type        JobType                    `json:"type"`
	Status      JobStatus                  `json:"status"`
	InputRefs   json.RawMessage            `json:"inputRefs"`
	Result      json.RawMessage            `json:"result,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Attempts    int                        `json:"attempts"`
	Stage       string                     `json:"stage,omitempty"`
	Progress    map[string]json.RawMessage `json:"progress,omitempty"`
	ProgressPct int                        `json:"progressPct"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// EvaluationInput references the documents an evaluation job runs on.
type EvaluationInput struct {
	CVDocumentID      string `json:"cvDocumentId"`
	JobDescriptionID  string `json:"jobDescriptionId"`
	CandidateName     string `json:"candidateName,omitempty"`
	ProjectDocumentID string `json:"projectDocumentId,omitempty"` // adds a project submission review
}

// MatcherInput references the CV a matcher job runs on.
type MatcherInput struct {
	CVDocumentID string `json:"cvDocumentId"`
	Location     string `json:"location,omitempty"`
}
