// internal/workers/evaluation/models.go
package evaluation

import (
	"context"

	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/reasoning"
)

// Stage names, in execution order.
const (
	StageResolveDocument = "resolve_document"
	StageExtractProfile  = "extract_profile"
	StageEvaluate        = "evaluate"
	StageEvaluateProject = "evaluate_project" // only planned with a project document
	StageScore           = "score"
	StageSummarize       = "summarize"
)

var stages = []string{StageResolveDocument, StageExtractProfile, StageEvaluate, StageEvaluateProject, StageScore, StageSummarize}

type DocumentResolver interface {
	Resolve(ctx context.Context, documentID string) (*documents.Resolution, error)
}

type DescriptionGetter interface {
	Get(ctx context.Context, idOrSlug string) (*models.JobDescription, error)
}

type Reasoner interface {
	ExtractProfile(ctx context.Context, cvText string) (reasoning.ExtractionResult, error)
	Evaluate(ctx context.Context, profile models.CandidateProfile, jd models.JobDescription, retrieved []string) (reasoning.EvaluationResult, error)
	EvaluateProject(ctx context.Context, projectText string) (reasoning.ProjectEvaluation, error)
	Summarize(ctx context.Context, evaluation interface{}) (reasoning.FinalSummary, error)
}

// ResolvedDocument is the partial result of the resolve stage.
type ResolvedDocument struct {
	DocumentID string `json:"documentId"`
	Origin     string `json:"origin"`
	Characters int    `json:"characters"`
}

// ScoreResult is the partial result of the score stage.
type ScoreResult struct {
	CompositeScore float64         `json:"composite_score"`
	CVMatchRate    float64         `json:"cv_match_rate"`
	Feedback       models.Feedback `json:"feedback"`
}

// ProjectResult is the partial result of the project stage.
type ProjectResult struct {
	DocumentID string             `json:"documentId"`
	Score      float64            `json:"project_score"` // 0-10
	Feedback   string             `json:"project_feedback"`
	Scores     map[string]float64 `json:"scores"`
}
