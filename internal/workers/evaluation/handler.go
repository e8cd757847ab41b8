// internal/workers/evaluation/handler.go
package evaluation

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/pipeline"
	"cv-pipeline/internal/reasoning"
	"cv-pipeline/internal/scoring"
	"cv-pipeline/internal/vectorstore"
)

type Dependencies struct {
	Documents    DocumentResolver
	Descriptions DescriptionGetter
	Reasoning    Reasoner
	Vectors      vectorstore.Store // optional
	Guard        pipeline.Guard    // optional
}

// Handler plans evaluation jobs: a CV scored against one job description.
type Handler struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"jobType": string(models.JobTypeEvaluation)}),
	}
}

func (h *Handler) JobType() models.JobType { return models.JobTypeEvaluation }

func (h *Handler) Stages() []string { return append([]string(nil), stages...) }

func (h *Handler) Plan(job *models.Job) (*pipeline.Execution, error) {
	var input models.EvaluationInput
	if err := json.Unmarshal(job.InputRefs, &input); err != nil {
		return nil, apperrors.NewValidationError("inputRefs: " + err.Error())
	}
	if strings.TrimSpace(input.CVDocumentID) == "" {
		return nil, apperrors.NewValidationError("cvDocumentId is required")
	}
	if strings.TrimSpace(input.JobDescriptionID) == "" {
		return nil, apperrors.NewValidationError("jobDescriptionId is required")
	}

	input.ProjectDocumentID = strings.TrimSpace(input.ProjectDocumentID)

	r := &run{
		h:     h,
		jobID: job.ID,
		input: input,
		log:   h.logger.WithFields(map[string]interface{}{"jobId": job.ID}),
	}
	steps := []pipeline.Step{
		{Stage: StageResolveDocument, Do: r.resolveDocument},
		{Stage: StageExtractProfile, Do: r.extractProfile},
		{Stage: StageEvaluate, Do: r.evaluate},
	}
	if input.ProjectDocumentID != "" {
		steps = append(steps, pipeline.Step{Stage: StageEvaluateProject, Do: r.evaluateProject})
	}
	steps = append(steps,
		pipeline.Step{Stage: StageScore, Do: r.score},
		pipeline.Step{Stage: StageSummarize, Do: r.summarize},
	)
	return &pipeline.Execution{Steps: steps, Result: r.report}, nil
}

// run holds one attempt's intermediate state. Every attempt gets a fresh run.
type run struct {
	h     *Handler
	jobID string
	input models.EvaluationInput
	log   logger.Logger

	text       string
	profile    models.CandidateProfile
	jd         *models.JobDescription
	evaluation reasoning.EvaluationResult
	project    *ProjectResult
	scores     ScoreResult
	summary    reasoning.FinalSummary
}

func (r *run) resolveDocument(ctx context.Context) (interface{}, error) {
	res, err := r.h.deps.Documents.Resolve(ctx, r.input.CVDocumentID)
	if err != nil {
		return nil, err
	}
	if res.Origin != documents.OriginExtracted {
		metrics.FallbackActivations.WithLabelValues(string(models.JobTypeEvaluation), "cached_text").Inc()
	}
	r.text = res.Text
	return ResolvedDocument{DocumentID: r.input.CVDocumentID, Origin: res.Origin, Characters: len(res.Text)}, nil
}

func (r *run) extractProfile(ctx context.Context) (interface{}, error) {
	profile, err := r.h.deps.Reasoning.ExtractProfile(ctx, r.text)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(r.input.CandidateName); name != "" {
		profile.Name = name
	}
	r.profile = profile

	r.index(ctx)
	return profile, nil
}

// index stores the CV text for retrieval. Guarded per job so a retried
// attempt does not upsert again; failures only degrade retrieval.
func (r *run) index(ctx context.Context) {
	if r.h.deps.Vectors == nil {
		return
	}
	_, err := pipeline.Once(ctx, r.h.deps.Guard, r.jobID, StageExtractProfile, func(ctx context.Context) error {
		doc := vectorstore.CandidateDocument(r.input.CVDocumentID, r.jobID, r.text)
		if err := r.h.deps.Vectors.Upsert(ctx, []vectorstore.Document{doc}); err != nil {
			return apperrors.NewVectorStoreError("upsert", err)
		}
		return nil
	})
	if err != nil {
		metrics.FallbackActivations.WithLabelValues(string(models.JobTypeEvaluation), "vector_upsert").Inc()
		r.log.Warn("Failed to index CV text", map[string]interface{}{"error": err.Error()})
	}
}

func (r *run) evaluate(ctx context.Context) (interface{}, error) {
	jd, err := r.h.deps.Descriptions.Get(ctx, r.input.JobDescriptionID)
	if err != nil {
		return nil, err
	}
	r.jd = jd

	result, err := r.h.deps.Reasoning.Evaluate(ctx, r.profile, *jd, r.retrieve(ctx))
	if err != nil {
		return nil, err
	}
	for name, v := range result.Scores {
		result.Scores[name] = scoring.ClampCriterion(v)
	}
	r.evaluation = result
	return result, nil
}

// retrieve returns reference snippets for the job description. An empty
// result is fine; the evaluation prompt works without them.
func (r *run) retrieve(ctx context.Context) []string {
	if r.h.deps.Vectors == nil || r.h.config.RetrievalTopK <= 0 {
		return nil
	}

	key := r.jd.ID
	if key == "" {
		key = r.jd.Slug
	}
	query := r.jd.Title + "\n" + strings.Join(r.profile.Skills, ", ")
	matches, err := r.h.deps.Vectors.Search(ctx, query, r.h.config.RetrievalTopK, vectorstore.Filter{
		"type":             vectorstore.TypeJobDescription,
		"jobDescriptionId": key,
	})
	if err != nil {
		metrics.FallbackActivations.WithLabelValues(string(models.JobTypeEvaluation), "retrieval").Inc()
		r.log.Warn("Retrieval failed, evaluating without context", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return vectorstore.Texts(matches)
}

// evaluateProject reviews the project submission. Its criteria use their own
// fixed weights and a 0-10 scale, separate from the CV match rate.
func (r *run) evaluateProject(ctx context.Context) (interface{}, error) {
	res, err := r.h.deps.Documents.Resolve(ctx, r.input.ProjectDocumentID)
	if err != nil {
		return nil, err
	}
	if res.Origin != documents.OriginExtracted {
		metrics.FallbackActivations.WithLabelValues(string(models.JobTypeEvaluation), "cached_text").Inc()
	}

	result, err := r.h.deps.Reasoning.EvaluateProject(ctx, res.Text)
	if err != nil {
		return nil, err
	}
	r.project = &ProjectResult{
		DocumentID: r.input.ProjectDocumentID,
		Score:      scoring.ProjectScore(result.Scores),
		Feedback:   result.Feedback,
		Scores:     result.Scores,
	}
	return r.project, nil
}

func (r *run) score(ctx context.Context) (interface{}, error) {
	composite := scoring.CompositeScore(r.evaluation.Scores, r.jd.ScoringWeights)
	r.scores = ScoreResult{
		CompositeScore: composite,
		CVMatchRate:    scoring.ToPercent(composite),
		Feedback:       scoring.DetailedFeedback(r.evaluation.Scores),
	}
	return r.scores, nil
}

func (r *run) summarize(ctx context.Context) (interface{}, error) {
	input := map[string]interface{}{
		"candidate":       r.profile.Name,
		"job_title":       r.jd.Title,
		"cv_match_rate":   r.scores.CVMatchRate,
		"detailed_scores": r.evaluation.Scores,
		"strengths":       r.evaluation.Strengths,
		"gaps":            r.evaluation.Gaps,
		"feedback":        r.evaluation.Feedback,
	}
	if r.project != nil {
		input["project_score"] = r.project.Score
		input["project_feedback"] = r.project.Feedback
	}
	summary, err := r.h.deps.Reasoning.Summarize(ctx, input)
	if err != nil {
		return nil, err
	}
	r.summary = summary
	return summary, nil
}

func (r *run) report() interface{} {
	report := models.EvaluationReport{
		CandidateName:    r.profile.Name,
		JobDescriptionID: r.input.JobDescriptionID,
		CVMatchRate:      r.scores.CVMatchRate,
		CompositeScore:   r.scores.CompositeScore,
		DetailedScores:   r.evaluation.Scores,
		Strengths:        r.evaluation.Strengths,
		Gaps:             r.evaluation.Gaps,
		CVFeedback:       r.evaluation.Feedback,
		Feedback:         r.scores.Feedback,
		OverallSummary:   r.summary.OverallSummary,
		Recommendation:   r.summary.Recommendation,
	}
	if r.project != nil {
		score := r.project.Score
		report.ProjectScore = &score
		report.ProjectFeedback = r.project.Feedback
		detailed := make(map[string]float64, len(report.DetailedScores)+len(r.project.Scores))
		for k, v := range report.DetailedScores {
			detailed[k] = v
		}
		for k, v := range r.project.Scores {
			detailed[k] = v
		}
		report.DetailedScores = detailed
	}
	return report
}
