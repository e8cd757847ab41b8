// internal/models/listing.go
package models

type JobListing struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	SalaryRange      string   `json:"salary_range"`
	JobType          string   `json:"job_type"`
	Seniority        string   `json:"seniority"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Description      string   `json:"job_description,omitempty"`
	PostedAt         string   `json:"posted_at"`
	Link             string   `json:"link"`
}

// MatchResult is a listing annotated with its similarity scores.
type MatchResult struct {
	JobListing
	SkillMatch          float64 `json:"skill_match"`
	ExperienceMatch     float64 `json:"experience_match"`
	ResponsibilityMatch float64 `json:"responsibility_match"`
	Score               float64 `json:"score"`
	Grade               string  `json:"grade"`
	Explanation         string  `json:"explanation"`
}
