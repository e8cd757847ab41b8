// internal/models/document.go
package models

import "time"

type DocumentKind string

const (
	DocumentKindCV      DocumentKind = "cv"
	DocumentKindProject DocumentKind = "project"
)

type Document struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	OriginalName string       `json:"originalName"`
	MimeType     string       `json:"mimeType"`
	Path         string       `json:"path"`
	Size         int64        `json:"size"`
	Kind         DocumentKind `json:"kind"`
	CachedText   string       `json:"-"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// ScoringWeights maps a criterion name to its weight.
type ScoringWeights map[string]float64

// DefaultScoringWeights returns a fresh copy of the default CV weights.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		"technicalSkillsMatch": 0.30,
		"experienceLevel":      0.25,
		"relevantAchievements": 0.20,
		"culturalFit":          0.15,
		"aiExperience":         0.10,
	}
}

type JobDescription struct {
	ID                    string         `json:"id"`
	Slug                  string         `json:"slug"`
	Title                 string         `json:"title"`
	Company               string         `json:"company"`
	Description           string         `json:"description"`
	TechnicalRequirements []string       `json:"technicalRequirements"`
	SoftSkillRequirements []string       `json:"softSkillRequirements"`
	ScoringWeights        ScoringWeights `json:"scoringWeights"`
}
