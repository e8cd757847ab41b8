// internal/reasoning/service.go
package reasoning

import (
	"context"
	"strings"
	"time"

	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"
)

// Service runs the typed reasoning calls the pipelines need. Adapter errors
// propagate; unparseable output degrades to the documented defaults.
type Service struct {
	adapter Adapter
	timeout time.Duration
	logger  logger.Logger
}

func NewService(adapter Adapter, timeout time.Duration, log logger.Logger) *Service {
	return &Service{
		adapter: adapter,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "reasoning"}),
	}
}

func (s *Service) complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.adapter.Complete(ctx, prompt, opts)
}

func (s *Service) warnFallback(call string, text string, err error) {
	s.logger.Warn("Model output unusable, using default", map[string]interface{}{
		"call":    call,
		"reason":  err.Error(),
		"preview": preview(text),
	})
}

// ExtractProfile turns raw CV text into a structured profile.
func (s *Service) ExtractProfile(ctx context.Context, cvText string) (ExtractionResult, error) {
	text, err := s.complete(ctx, extractionPrompt(cvText), Options{
		SystemPrompt: extractionSystem,
		Temperature:  extractionTemperature,
	})
	if err != nil {
		return ExtractionResult{}, err
	}

	profile, err := Decode(text, extractionSchema, DefaultExtraction)
	if err != nil {
		s.warnFallback("extract_profile", text, err)
	}
	return normalizeExtraction(profile), nil
}

// Evaluate scores a profile against a job description, optionally with
// retrieved reference snippets.
func (s *Service) Evaluate(ctx context.Context, profile models.CandidateProfile, jd models.JobDescription, retrieved []string) (EvaluationResult, error) {
	text, err := s.complete(ctx, evaluationPrompt(profile, jd, retrieved), Options{
		SystemPrompt: evaluationSystem,
		Temperature:  evaluationTemperature,
	})
	if err != nil {
		return EvaluationResult{}, err
	}

	result, err := Decode(text, evaluationSchema, DefaultEvaluation)
	if err != nil {
		s.warnFallback("evaluate", text, err)
	}
	return result.normalize(), nil
}

func (s *Service) EvaluateProject(ctx context.Context, projectText string) (ProjectEvaluation, error) {
	text, err := s.complete(ctx, projectPrompt(projectText), Options{
		SystemPrompt: projectSystem,
		Temperature:  evaluationTemperature,
	})
	if err != nil {
		return ProjectEvaluation{}, err
	}

	result, err := Decode(text, projectSchema, DefaultProjectEvaluation)
	if err != nil {
		s.warnFallback("evaluate_project", text, err)
	}
	return result.normalize(), nil
}

// Summarize produces the narrative summary and recommendation label. A plain
// prose answer is kept as the summary.
func (s *Service) Summarize(ctx context.Context, evaluation interface{}) (FinalSummary, error) {
	text, err := s.complete(ctx, finalSummaryPrompt(evaluation), Options{
		SystemPrompt: finalSummarySystem,
		Temperature:  summaryTemperature,
		MaxTokens:    summaryMaxTokens,
	})
	if err != nil {
		return FinalSummary{}, err
	}

	summary, err := Decode(text, finalSummarySchema, DefaultFinalSummary)
	if err != nil {
		s.warnFallback("summarize", text, err)
		if _, isJSON := ExtractJSON(text); !isJSON && strings.TrimSpace(text) != "" {
			summary.OverallSummary = strings.TrimSpace(text)
		}
	}
	summary.Recommendation = NormalizeRecommendation(summary.Recommendation)
	return summary, nil
}

func (s *Service) SuggestRoles(ctx context.Context, profile models.CandidateProfile) (RoleSuggestion, error) {
	text, err := s.complete(ctx, roleSuggestionPrompt(profile), Options{
		SystemPrompt: roleSuggestionSystem,
		Temperature:  evaluationTemperature,
	})
	if err != nil {
		return RoleSuggestion{}, err
	}

	roles, err := Decode(text, roleSuggestionSchema, DefaultRoleSuggestion)
	if err != nil {
		s.warnFallback("suggest_roles", text, err)
	}

	cleaned := make([]string, 0, len(roles.SuggestedRoles))
	for _, r := range roles.SuggestedRoles {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	roles.SuggestedRoles = cleaned
	roles.Seniority = strings.TrimSpace(roles.Seniority)
	return roles, nil
}

func (s *Service) SummarizeMatches(ctx context.Context, profile models.CandidateProfile, roles RoleSuggestion, jobs []models.MatchResult) (MatchSummary, error) {
	text, err := s.complete(ctx, matchSummaryPrompt(profile, roles, jobs), Options{
		SystemPrompt: matchSummarySystem,
		Temperature:  summaryTemperature,
	})
	if err != nil {
		return MatchSummary{}, err
	}

	summary, err := Decode(text, matchSummarySchema, DefaultMatchSummary)
	if err != nil {
		s.warnFallback("summarize_matches", text, err)
	}
	return summary.normalize(), nil
}

// ScoreSkills asks the model for a 0-100 skill match. ok is false when the
// call fails or the answer is not a valid score; callers then use overlap.
func (s *Service) ScoreSkills(ctx context.Context, skills, requirements []string) (float64, bool) {
	if len(skills) == 0 || len(requirements) == 0 {
		return 0, false
	}

	text, err := s.complete(ctx, skillScorePrompt(skills, requirements), Options{
		SystemPrompt: skillScoreSystem,
		Temperature:  extractionTemperature,
	})
	if err != nil {
		s.logger.Warn("Skill scoring call failed", map[string]interface{}{"error": err.Error()})
		return 0, false
	}

	score, err := Decode(text, skillScoreSchema, func() SkillScore { return SkillScore{Score: -1} })
	if err != nil {
		s.warnFallback("score_skills", text, err)
		return 0, false
	}
	return score.Score, true
}
