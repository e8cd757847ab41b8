package scoring

import "math"

type Bucket string

const (
	BucketStrong   Bucket = "strong"
	BucketAdequate Bucket = "adequate"
	BucketWeak     Bucket = "weak"
)

// BucketFor rounds to the nearest integer first: 3.5 is strong, 2.4 is weak.
func BucketFor(score float64) Bucket {
	rounded := math.Round(score)
	switch {
	case rounded >= 4:
		return BucketStrong
	case rounded == 3:
		return BucketAdequate
	default:
		return BucketWeak
	}
}

type feedbackEntry struct {
	strength       string
	improvement    string
	recommendation string
}

var feedbackTable = map[string]map[Bucket]feedbackEntry{
	"technicalSkillsMatch": {
		BucketStrong:   {strength: "Strong technical skills alignment with job requirements"},
		BucketAdequate: {recommendation: "Deepen expertise in the core stack listed in the job requirements"},
		BucketWeak: {
			improvement:    "Technical skills need strengthening in required areas",
			recommendation: "Build hands-on projects with the required technologies",
		},
	},
	"experienceLevel": {
		BucketStrong:   {strength: "Excellent experience level for the position"},
		BucketAdequate: {recommendation: "Take ownership of larger, more complex projects"},
		BucketWeak: {
			improvement:    "Would benefit from more relevant experience",
			recommendation: "Seek roles or contributions that add production experience",
		},
	},
	"relevantAchievements": {
		BucketStrong:   {strength: "Track record of measurable, high-impact achievements"},
		BucketAdequate: {recommendation: "Quantify the impact of past work in the CV"},
		BucketWeak: {
			improvement:    "Few clear achievements are demonstrated",
			recommendation: "Highlight outcomes such as scaling, performance or adoption gains",
		},
	},
	"culturalFit": {
		BucketStrong:   {strength: "Communication, learning mindset and teamwork are well demonstrated"},
		BucketAdequate: {recommendation: "Show more evidence of collaboration and leadership"},
		BucketWeak: {
			improvement:    "Cultural fit signals are not demonstrated",
			recommendation: "Describe teamwork, mentoring or knowledge sharing explicitly",
		},
	},
	"aiExperience": {
		BucketStrong:   {strength: "Solid hands-on exposure to AI/LLM systems"},
		BucketAdequate: {recommendation: "Extend AI/LLM experience beyond prototypes"},
		BucketWeak: {
			improvement:    "Limited AI/LLM experience",
			recommendation: "Build a small RAG or LLM-integrated project",
		},
	},
	"correctness": {
		BucketStrong:   {strength: "Prompt design and LLM chaining are implemented correctly"},
		BucketAdequate: {recommendation: "Complete the missing parts of the prompt and chaining flow"},
		BucketWeak: {
			improvement:    "Core requirements are not implemented correctly",
			recommendation: "Revisit the requirements and verify each one end to end",
		},
	},
	"codeQuality": {
		BucketStrong:   {strength: "High code quality and good architectural decisions"},
		BucketAdequate: {recommendation: "Add tests and tighten module boundaries"},
		BucketWeak: {
			improvement:    "Code quality needs improvement",
			recommendation: "Refactor towards smaller, tested modules",
		},
	},
	"resilience": {
		BucketStrong:   {strength: "Excellent error handling and system resilience"},
		BucketAdequate: {recommendation: "Cover more failure modes such as timeouts and provider errors"},
		BucketWeak: {
			improvement:    "Error handling and retry mechanisms need work",
			recommendation: "Add retries with backoff around external calls",
		},
	},
	"documentation": {
		BucketStrong:   {strength: "Clear documentation with well explained trade-offs"},
		BucketAdequate: {recommendation: "Document setup steps and design trade-offs in more depth"},
		BucketWeak: {
			improvement:    "Documentation is missing or minimal",
			recommendation: "Write a README with setup instructions and design notes",
		},
	},
	"creativity": {
		BucketStrong:   {strength: "Creative enhancements beyond the requirements"},
		BucketAdequate: {recommendation: "Consider features that go beyond the baseline requirements"},
		BucketWeak:     {improvement: "Little beyond the baseline requirements"},
	},
}
