// internal/matching/engine_test.go
package matching

import (
	"math"
	"testing"

	"cv-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Sub-score Tests
// ==========================

func TestSkillMatch(t *testing.T) {
	tests := []struct {
		name         string
		skills       []string
		requirements []string
		expected     float64
	}{
		{"half overlap", []string{"Node.js", "MongoDB"}, []string{"Node.js", "Express", "MongoDB", "Docker"}, 50},
		{"case insensitive", []string{"node.js"}, []string{"NODE.JS"}, 100},
		{"skill contains requirement", []string{"Express.js"}, []string{"Express"}, 100},
		{"requirement contains skill", []string{"SQL"}, []string{"Basic SQL", "Git"}, 50},
		{"blank skills ignored", []string{"", "  "}, []string{"Go"}, 0},
		{"no skills", nil, []string{"Go"}, 0},
		{"no requirements", []string{"Go"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SkillMatch(tt.skills, tt.requirements), 1e-9)
		})
	}
}

func TestExperienceMatch(t *testing.T) {
	tests := []struct {
		candidate string
		listing   string
		expected  float64
	}{
		{"Mid-level", "Senior", 55},
		{"mid", "mid-level", 100},
		{" SENIOR ", "senior", 100},
		{"Senior", "Junior", 80},
		{"Principal", "Entry-level", 65},
		{"Junior", "Lead", 25},
		{"Entry-level", "Principal", -5}, // clamped later by Match
		{"wizard", "Senior", 0},
		{"Senior", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.candidate+"_vs_"+tt.listing, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExperienceMatch(tt.candidate, tt.listing))
		})
	}
}

func TestResponsibilityMatch(t *testing.T) {
	text := "designed restful apis and mentored interns"
	resp := []string{
		"Design and implement RESTful APIs", // "restful"
		"Mentor junior engineers",           // "mentor" in "mentored"
		"Fix bugs",                          // no word longer than 3 chars matches
		"Own the CI/CD pipeline",
	}
	assert.InDelta(t, 50.0, ResponsibilityMatch(text, resp), 1e-9)
	assert.Equal(t, 0.0, ResponsibilityMatch("", resp))
	assert.Equal(t, 0.0, ResponsibilityMatch(text, nil))
}

// ==========================
// Grade & Explanation Tests
// ==========================

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{100, "A"},
		{85, "A"},
		{84.999, "B"},
		{70, "B"},
		{69.999, "C"},
		{55, "C"},
		{54.999, "D"},
		{40, "D"},
		{39.999, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Grade(tt.score), "score %v", tt.score)
	}
}

func TestMatch_GradeUsesUnroundedScore(t *testing.T) {
	// (54.997 + 100 + 100) / 3 = 84.999, reported as 85 but graded B
	scorer := func(models.JobListing) (float64, bool) { return 54.997, true }
	c := Candidate{Seniority: "Senior", ExperienceText: "lead teams"}
	listing := models.JobListing{Seniority: "Senior", Responsibilities: []string{"Leading teams"}}

	r := Match(c, listing, scorer)
	assert.Equal(t, 85.0, r.Score)
	assert.Equal(t, "B", r.Grade)
	assert.Equal(t, 55.0, r.SkillMatch)
	assert.Equal(t, 100.0, r.ResponsibilityMatch)
}

func TestExplanation(t *testing.T) {
	assert.Equal(t,
		"Skills match is moderate (50.0%), experience level is misaligned (55.0%), and past responsibilities are highly relevant (75.0%).",
		Explanation(50, 55, 75))
	assert.Equal(t,
		"Skills match is strong (70.0%), experience level is well-aligned (100.0%), and past responsibilities are relevant (50.0%).",
		Explanation(70, 100, 50))
	assert.Equal(t,
		"Skills match is weak (0.0%), experience level is aligned (70.0%), and past responsibilities are somewhat relevant (25.0%).",
		Explanation(0, 70, 25))
}

// ==========================
// Match & Rank Tests
// ==========================

func TestMatch_ClampsAndSanitizes(t *testing.T) {
	c := Candidate{Skills: []string{"Go"}, Seniority: "Entry-level"}
	listing := models.JobListing{Requirements: []string{"Go"}, Seniority: "Principal"}

	r := Match(c, listing, func(models.JobListing) (float64, bool) { return math.NaN(), true })
	assert.Equal(t, 0.0, r.SkillMatch)
	assert.Equal(t, 0.0, r.ExperienceMatch) // -5 clamped
	assert.Equal(t, "F", r.Grade)

	r = Match(c, listing, func(models.JobListing) (float64, bool) { return 250, true })
	assert.Equal(t, 100.0, r.SkillMatch)
}

func TestMatch_ScorerDeclines(t *testing.T) {
	c := Candidate{Skills: []string{"Node.js", "MongoDB"}}
	listing := models.JobListing{Requirements: []string{"Node.js", "Express", "MongoDB", "Docker"}}

	r := Match(c, listing, func(models.JobListing) (float64, bool) { return 0, false })
	assert.Equal(t, 50.0, r.SkillMatch)
}

func TestMatch_RoundsToTwoDecimals(t *testing.T) {
	c := Candidate{Skills: []string{"a"}, Seniority: "Senior", ExperienceText: "alpha"}
	listing := models.JobListing{
		Requirements:     []string{"a", "b", "c"},
		Seniority:        "Senior",
		Responsibilities: []string{"alpha", "beta", "gamma"},
	}
	r := Match(c, listing, nil)
	assert.Equal(t, 33.33, r.SkillMatch)
	assert.Equal(t, 33.33, r.ResponsibilityMatch)
	assert.Equal(t, 55.56, r.Score)
	assert.Equal(t, "C", r.Grade)
}

func TestRank_StableTopFive(t *testing.T) {
	listings := make([]models.JobListing, 7)
	for i := range listings {
		listings[i] = models.JobListing{Title: string(rune('A' + i)), Seniority: "Senior"}
	}
	listings[6].Seniority = "Lead" // candidate below: 55

	ranked := Rank(Candidate{Seniority: "Senior"}, listings, 0, nil)
	require.Len(t, ranked, DefaultTopN)

	titles := make([]string, 0, len(ranked))
	for _, r := range ranked {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, titles)
}

func TestRank_FallbackListings(t *testing.T) {
	profile := models.CandidateProfile{
		Skills:    []string{"Node.js", "Express", "MongoDB", "Docker"},
		Seniority: "Mid-level",
		WorkExperience: []models.WorkExperience{
			{Description: "Designed RESTful APIs and backend services", Achievements: models.StringList{"Wrote integration tests"}},
		},
	}

	ranked := Rank(CandidateFrom(profile), FallbackListings(), DefaultTopN, nil)
	require.Len(t, ranked, 5)
	assert.Equal(t, "Tokopedia", ranked[0].Company)
	assert.Equal(t, "A", ranked[0].Grade)

	for i, r := range ranked {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
		}
	}
}

func TestFallbackListings_FreshCopy(t *testing.T) {
	a := FallbackListings()
	a[0].Title = "mutated"
	assert.Equal(t, "Backend Engineer", FallbackListings()[0].Title)
	assert.Len(t, FallbackListings(), 5)
}
