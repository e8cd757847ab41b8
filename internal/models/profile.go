// internal/models/profile.go
package models

import (
	"encoding/json"
	"strings"
)

// Seniority levels, lowest first.
const (
	SeniorityEntry     = "Entry-level"
	SeniorityJunior    = "Junior"
	SeniorityMid       = "Mid-level"
	SenioritySenior    = "Senior"
	SeniorityLead      = "Lead"
	SeniorityPrincipal = "Principal"
)

// CandidateProfile is the structured view of a CV.
type CandidateProfile struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone,omitempty"`
	Location        string           `json:"location,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	Skills          []string         `json:"skills"`
	ExperienceYears float64          `json:"experience_years,omitempty"`
	WorkExperience  []WorkExperience `json:"work_experience"`
	Education       []Education      `json:"education"`
	Projects        []Project        `json:"projects,omitempty"`
	Seniority       string           `json:"seniority"`
}

type WorkExperience struct {
	Company      string     `json:"company"`
	Position     string     `json:"position"`
	StartDate    string     `json:"start_date,omitempty"`
	EndDate      string     `json:"end_date,omitempty"`
	Description  string     `json:"description,omitempty"`
	Achievements StringList `json:"achievements,omitempty"`
	TechStack    []string   `json:"tech_stack,omitempty"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// ExperienceText joins every description and achievement, lowercased.
func (p CandidateProfile) ExperienceText() string {
	var parts []string
	for _, exp := range p.WorkExperience {
		if exp.Description != "" {
			parts = append(parts, exp.Description)
		}
		parts = append(parts, exp.Achievements...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// StringList accepts either a JSON string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if strings.TrimSpace(single) == "" {
		*s = nil
		return nil
	}
	*s = StringList{single}
	return nil
}
