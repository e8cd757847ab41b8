// internal/reasoning/results.go
package reasoning

import (
	"strings"

	"cv-pipeline/internal/common/validation"
	"cv-pipeline/internal/models"
)

// ExtractionResult is the structured profile pulled out of raw CV text.
type ExtractionResult = models.CandidateProfile

// DefaultExtraction is used when the model output cannot be parsed.
func DefaultExtraction() ExtractionResult {
	return normalizeExtraction(ExtractionResult{Name: "Unknown"})
}

func normalizeExtraction(p ExtractionResult) ExtractionResult {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.WorkExperience == nil {
		p.WorkExperience = []models.WorkExperience{}
	}
	if p.Education == nil {
		p.Education = []models.Education{}
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Seniority = strings.TrimSpace(p.Seniority)
	return p
}

// EvaluationResult holds per-criterion scores on the 0-5 scale.
type EvaluationResult struct {
	MatchRate float64            `json:"match_rate"`
	Strengths []string           `json:"strengths"`
	Gaps      []string           `json:"gaps"`
	Feedback  string             `json:"feedback"`
	Scores    map[string]float64 `json:"scores"`
}

func DefaultEvaluation() EvaluationResult {
	return EvaluationResult{
		MatchRate: 0.5,
		Strengths: []string{},
		Gaps:      []string{},
		Feedback:  "Unable to evaluate",
		Scores:    map[string]float64{},
	}
}

func (r EvaluationResult) normalize() EvaluationResult {
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Gaps == nil {
		r.Gaps = []string{}
	}
	if r.Scores == nil {
		r.Scores = map[string]float64{}
	}
	return r
}

// ProjectEvaluation scores a project submission; criteria are on 1-5.
type ProjectEvaluation struct {
	Score        float64            `json:"score"`
	Feedback     string             `json:"feedback"`
	Strengths    []string           `json:"strengths"`
	Improvements []string           `json:"improvements"`
	Scores       map[string]float64 `json:"scores"`
}

func DefaultProjectEvaluation() ProjectEvaluation {
	return ProjectEvaluation{
		Score:        3.0,
		Feedback:     "Unable to evaluate",
		Strengths:    []string{},
		Improvements: []string{},
		Scores: map[string]float64{
			"correctness":   3,
			"codeQuality":   3,
			"resilience":    3,
			"documentation": 3,
			"creativity":    3,
		},
	}
}

func (r ProjectEvaluation) normalize() ProjectEvaluation {
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Improvements == nil {
		r.Improvements = []string{}
	}
	scores := make(map[string]float64, len(r.Scores))
	for name, v := range r.Scores {
		switch {
		case v < 1:
			v = 1
		case v > 5:
			v = 5
		}
		scores[name] = v
	}
	r.Scores = scores
	return r
}

// Recommendation labels for the final summary.
const (
	RecommendationStrongYes   = "STRONG_YES"
	RecommendationYes         = "YES"
	RecommendationConditional = "CONDITIONAL"
	RecommendationNo          = "NO"
)

// NormalizeRecommendation maps anything outside the known labels to CONDITIONAL.
func NormalizeRecommendation(label string) string {
	switch l := strings.ToUpper(strings.TrimSpace(label)); l {
	case RecommendationStrongYes, RecommendationYes, RecommendationConditional, RecommendationNo:
		return l
	}
	return RecommendationConditional
}

type FinalSummary struct {
	OverallSummary string `json:"overall_summary"`
	Recommendation string `json:"recommendation"`
}

func DefaultFinalSummary() FinalSummary {
	return FinalSummary{
		OverallSummary: "Summary unavailable",
		Recommendation: RecommendationConditional,
	}
}

type RoleSuggestion struct {
	SuggestedRoles []string `json:"suggested_roles"`
	Seniority      string   `json:"seniority"`
}

func DefaultRoleSuggestion() RoleSuggestion {
	return RoleSuggestion{SuggestedRoles: []string{}}
}

type MatchSummary struct {
	Summary models.CareerSummary `json:"summary"`
}

func DefaultMatchSummary() MatchSummary {
	return MatchSummary{Summary: models.CareerSummary{
		Strengths:    []string{},
		Improvements: []string{},
		NextSteps:    []string{},
	}}
}

func (m MatchSummary) normalize() MatchSummary {
	if m.Summary.Strengths == nil {
		m.Summary.Strengths = []string{}
	}
	if m.Summary.Improvements == nil {
		m.Summary.Improvements = []string{}
	}
	if m.Summary.NextSteps == nil {
		m.Summary.NextSteps = []string{}
	}
	return m
}

// SkillScore is an externally judged skill match on 0-100.
type SkillScore struct {
	Score float64 `json:"score"`
}

// ==========================
// Output Schemas
// ==========================

var (
	extractionSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": ["string", "null"]},
    "email": {"type": ["string", "null"]},
    "skills": {"type": ["array", "null"], "items": {"type": "string"}},
    "experience_years": {"type": ["number", "null"]},
    "work_experience": {"type": ["array", "null"], "items": {"type": "object"}},
    "education": {"type": ["array", "null"], "items": {"type": "object"}},
    "seniority": {"type": ["string", "null"]}
  }
}`)

	evaluationSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["scores"],
  "properties": {
    "match_rate": {"type": "number"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "gaps": {"type": "array", "items": {"type": "string"}},
    "feedback": {"type": "string"},
    "scores": {"type": "object", "additionalProperties": {"type": "number"}}
  }
}`)

	projectSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["scores"],
  "properties": {
    "score": {"type": "number"},
    "feedback": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "scores": {"type": "object", "additionalProperties": {"type": "number"}}
  }
}`)

	finalSummarySchema = validation.MustCompile(`{
  "type": "object",
  "required": ["overall_summary"],
  "properties": {
    "overall_summary": {"type": "string", "minLength": 1},
    "recommendation": {"type": "string"}
  }
}`)

	roleSuggestionSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["suggested_roles"],
  "properties": {
    "suggested_roles": {"type": "array", "items": {"type": "string"}},
    "seniority": {"type": ["string", "null"]}
  }
}`)

	matchSummarySchema = validation.MustCompile(`{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": {
      "type": "object",
      "properties": {
        "strengths": {"type": "array", "items": {"type": "string"}},
        "improvements": {"type": "array", "items": {"type": "string"}},
        "next_steps": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`)

	skillScoreSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["score"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100}
  }
}`)
)
