// Package scoring aggregates per-criterion scores (0-5) into composite rates
// and canned feedback.
package scoring

import (
	"math"
	"sort"

	"cv-pipeline/internal/models"
)

const (
	MaxCriterionScore = 5.0
	// NeutralComposite is returned when scores and weights share no criterion.
	NeutralComposite = 2.5
	// NeutralProjectScore is the 0-10 project score without usable input.
	NeutralProjectScore = 5.0
)

// ProjectWeights are the fixed weights for project submissions.
var ProjectWeights = map[string]float64{
	"correctness":   0.30,
	"codeQuality":   0.25,
	"resilience":    0.20,
	"documentation": 0.15,
	"creativity":    0.10,
}

// CompositeScore is the weighted mean of the criteria present in both maps,
// on the 0-5 scale.
func CompositeScore(scores map[string]float64, weights map[string]float64) float64 {
	// iterate in sorted order so float accumulation is reproducible
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	var total, totalWeight float64
	for _, name := range names {
		score := scores[name]
		weight, ok := weights[name]
		if !ok || !finite(score) || !finite(weight) || weight <= 0 {
			continue
		}
		total += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return NeutralComposite
	}
	return total / totalWeight
}

// ToPercent converts a 0-5 composite to the canonical 0-100 scale.
func ToPercent(composite float64) float64 {
	return clamp(composite*20, 0, 100)
}

// ToUnit converts a 0-5 composite to 0-1.
func ToUnit(composite float64) float64 {
	return clamp(composite/MaxCriterionScore, 0, 1)
}

// ProjectScore combines project criteria with ProjectWeights on a 0-10 scale.
func ProjectScore(scores map[string]float64) float64 {
	present := 0
	for name, score := range scores {
		if _, ok := ProjectWeights[name]; ok && finite(score) {
			present++
		}
	}
	if present == 0 {
		return NeutralProjectScore
	}
	return CompositeScore(scores, ProjectWeights) * 2
}

// ClampCriterion bounds a criterion score to [0,5]; non-finite becomes 0.
func ClampCriterion(score float64) float64 {
	if !finite(score) {
		return 0
	}
	return clamp(score, 0, MaxCriterionScore)
}

// DetailedFeedback buckets each criterion and collects the canned sentences.
func DetailedFeedback(scores map[string]float64) models.Feedback {
	fb := models.Feedback{
		Strengths:       []string{},
		Improvements:    []string{},
		Recommendations: []string{},
	}

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	for _, name := range names {
		score := scores[name]
		if !finite(score) {
			continue
		}
		b := BucketFor(score)
		entry, ok := feedbackTable[name][b]
		if !ok {
			continue
		}
		key := name + ":" + string(b)
		if seen[key] {
			continue
		}
		seen[key] = true

		if entry.strength != "" {
			fb.Strengths = append(fb.Strengths, entry.strength)
		}
		if entry.improvement != "" {
			fb.Improvements = append(fb.Improvements, entry.improvement)
		}
		if entry.recommendation != "" {
			fb.Recommendations = append(fb.Recommendations, entry.recommendation)
		}
	}
	return fb
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
