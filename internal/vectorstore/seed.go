// internal/vectorstore/seed.go
package vectorstore

import (
	"fmt"
	"sort"
	"strings"

	"cv-pipeline/internal/models"
)

// Document ids are derived from the source record so that re-running a
// pipeline overwrites instead of duplicating.

func CandidateDocID(documentID string) string { return "cv-" + documentID }

func descriptionKey(jd models.JobDescription) string {
	if jd.ID != "" {
		return jd.ID
	}
	return jd.Slug
}

// CandidateDocument wraps extracted CV text for indexing.
func CandidateDocument(documentID, jobID, text string) Document {
	return Document{
		ID:   CandidateDocID(documentID),
		Text: text,
		Metadata: map[string]interface{}{
			"type":       TypeCandidate,
			"documentId": documentID,
			"jobId":      jobID,
		},
	}
}

// DescriptionDocuments splits a job description into the overview, the
// technical requirements, the soft skills and one rubric entry per weight.
func DescriptionDocuments(jd models.JobDescription) []Document {
	key := descriptionKey(jd)
	meta := func(typ, section string) map[string]interface{} {
		return map[string]interface{}{
			"type":             typ,
			"section":          section,
			"jobDescriptionId": key,
			"title":            jd.Title,
		}
	}

	var docs []Document
	overview := strings.TrimSpace(strings.Join([]string{jd.Title, jd.Company, jd.Description}, "\n"))
	if overview != "" {
		docs = append(docs, Document{ID: "job-" + key, Text: overview, Metadata: meta(TypeJobDescription, "overview")})
	}
	if len(jd.TechnicalRequirements) > 0 {
		docs = append(docs, Document{
			ID:       "job-tech-" + key,
			Text:     jd.Title + " technical requirements:\n- " + strings.Join(jd.TechnicalRequirements, "\n- "),
			Metadata: meta(TypeJobDescription, "technical"),
		})
	}
	if len(jd.SoftSkillRequirements) > 0 {
		docs = append(docs, Document{
			ID:       "job-soft-" + key,
			Text:     jd.Title + " soft skills:\n- " + strings.Join(jd.SoftSkillRequirements, "\n- "),
			Metadata: meta(TypeJobDescription, "soft_skills"),
		})
	}

	for _, name := range sortedKeys(jd.ScoringWeights) {
		docs = append(docs, Document{
			ID:       fmt.Sprintf("rubric-%s-%s", key, name),
			Text:     fmt.Sprintf("Criterion %s carries weight %.2f for %s", name, jd.ScoringWeights[name], jd.Title),
			Metadata: meta(TypeScoringRubric, name),
		})
	}
	return docs
}

func sortedKeys(m models.ScoringWeights) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Texts returns the text of each match in order.
func Texts(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out
}
