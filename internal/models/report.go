// internal/models/report.go
package models

// Feedback holds canned sentences produced by the scoring engine.
type Feedback struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// EvaluationReport is the completed result of an evaluation job.
type EvaluationReport struct {
	CandidateName    string             `json:"candidate_name"`
	JobDescriptionID string             `json:"job_description_id"`
	CVMatchRate      float64            `json:"cv_match_rate"` // 0-100
	CompositeScore   float64            `json:"composite_score"`
	DetailedScores   map[string]float64 `json:"detailed_scores"`
	Strengths        []string           `json:"strengths"`
	Gaps             []string           `json:"gaps"`
	CVFeedback       string             `json:"cv_feedback"`
	Feedback         Feedback           `json:"feedback"`
	OverallSummary   string             `json:"overall_summary"`
	Recommendation   string             `json:"recommendation"`
	ProjectScore     *float64           `json:"project_score,omitempty"` // 0-10, only with a project document
	ProjectFeedback  string             `json:"project_feedback,omitempty"`
}

type UserProfile struct {
	Name          string   `json:"name"`
	Seniority     string   `json:"seniority"`
	PrimarySkills []string `json:"primary_skills"`
}

type CareerSummary struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	NextSteps    []string `json:"next_steps"`
}

// MatchReport is the completed result of a matcher job.
type MatchReport struct {
	UserProfile      UserProfile   `json:"user_profile"`
	SuggestedRoles   []string      `json:"suggested_roles"`
	Jobs             []MatchResult `json:"jobs"`
	Summary          CareerSummary `json:"summary"`
	FallbackListings bool          `json:"fallback_listings,omitempty"`
}
