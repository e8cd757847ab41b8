// Package matching scores a candidate profile against job listings.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cv-pipeline/internal/models"
)

// DefaultTopN is how many ranked listings a match keeps.
const DefaultTopN = 5

var seniorityLevels = map[string]int{
	"entry-level": 1,
	"junior":      2,
	"mid-level":   3,
	"mid":         3,
	"senior":      4,
	"lead":        5,
	"principal":   6,
}

// SeniorityLevel returns the ordinal for a label, or 0 when unmapped.
func SeniorityLevel(label string) int {
	return seniorityLevels[strings.ToLower(strings.TrimSpace(label))]
}

// Candidate is the part of a profile the engine looks at.
type Candidate struct {
	Skills         []string
	Seniority      string
	ExperienceText string // lowercased descriptions and achievements
}

// CandidateFrom builds a Candidate from an extracted profile.
func CandidateFrom(p models.CandidateProfile) Candidate {
	return Candidate{
		Skills:         p.Skills,
		Seniority:      p.Seniority,
		ExperienceText: p.ExperienceText(),
	}
}

// SkillScorer supplies an external skill similarity (0-100) for a listing.
// ok=false falls back to the overlap ratio.
type SkillScorer func(listing models.JobListing) (score float64, ok bool)

// SkillMatch is the share of requirements matched by any skill, 0-100.
// A skill matches when either string contains the other, ignoring case.
func SkillMatch(skills, requirements []string) float64 {
	if len(skills) == 0 || len(requirements) == 0 {
		return 0
	}

	lowered := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			lowered = append(lowered, s)
		}
	}

	matched := 0
	for _, req := range requirements {
		req = strings.ToLower(strings.TrimSpace(req))
		if req == "" {
			continue
		}
		for _, skill := range lowered {
			if strings.Contains(skill, req) || strings.Contains(req, skill) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(requirements)) * 100
}

// ExperienceMatch compares seniority ordinals.
func ExperienceMatch(candidate, listing string) float64 {
	c, l := SeniorityLevel(candidate), SeniorityLevel(listing)
	if c == 0 || l == 0 {
		return 0
	}
	switch {
	case c == l:
		return 100
	case c > l:
		return float64(90 - (c-l)*5)
	default:
		return float64(70 - (l-c)*15)
	}
}

// ResponsibilityMatch is the share of responsibilities with at least one word
// longer than three characters present in experienceText, 0-100.
func ResponsibilityMatch(experienceText string, responsibilities []string) float64 {
	if strings.TrimSpace(experienceText) == "" || len(responsibilities) == 0 {
		return 0
	}
	text := strings.ToLower(experienceText)

	matched := 0
	for _, resp := range responsibilities {
		for _, word := range strings.Fields(strings.ToLower(resp)) {
			if len(word) > 3 && strings.Contains(text, word) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(responsibilities)) * 100
}

// Grade maps an unrounded score onto A-F.
func Grade(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// Explanation renders the three qualitative buckets.
func Explanation(skill, experience, responsibility float64) string {
	skillLevel := "weak"
	switch {
	case skill >= 70:
		skillLevel = "strong"
	case skill >= 50:
		skillLevel = "moderate"
	}

	experienceLevel := "misaligned"
	switch {
	case experience >= 85:
		experienceLevel = "well-aligned"
	case experience >= 70:
		experienceLevel = "aligned"
	}

	responsibilityLevel := "somewhat relevant"
	switch {
	case responsibility >= 70:
		responsibilityLevel = "highly relevant"
	case responsibility >= 50:
		responsibilityLevel = "relevant"
	}

	return fmt.Sprintf(
		"Skills match is %s (%.1f%%), experience level is %s (%.1f%%), and past responsibilities are %s (%.1f%%).",
		skillLevel, skill, experienceLevel, experience, responsibilityLevel, responsibility,
	)
}

// Match scores a single listing.
func Match(c Candidate, listing models.JobListing, skillScorer SkillScorer) models.MatchResult {
	skill := SkillMatch(c.Skills, listing.Requirements)
	if skillScorer != nil {
		if external, ok := skillScorer(listing); ok {
			skill = external
		}
	}
	skill = sanitize(skill)
	experience := sanitize(ExperienceMatch(c.Seniority, listing.Seniority))
	responsibility := sanitize(ResponsibilityMatch(c.ExperienceText, listing.Responsibilities))

	score := sanitize((skill + experience + responsibility) / 3)

	return models.MatchResult{
		JobListing:          listing,
		SkillMatch:          round2(skill),
		ExperienceMatch:     round2(experience),
		ResponsibilityMatch: round2(responsibility),
		Score:               round2(score),
		Grade:               Grade(score),
		Explanation:         Explanation(skill, experience, responsibility),
	}
}

// Rank scores every listing, sorts by score descending (ties keep provider
// order) and keeps topN. topN <= 0 means DefaultTopN.
func Rank(c Candidate, listings []models.JobListing, topN int, skillScorer SkillScorer) []models.MatchResult {
	if topN <= 0 {
		topN = DefaultTopN
	}

	results := make([]models.MatchResult, 0, len(listings))
	for _, listing := range listings {
		results = append(results, Match(c, listing, skillScorer))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results
}

// sanitize clamps to [0,100] and maps NaN/Inf to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
