// internal/reasoning/prompts.go
package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"cv-pipeline/internal/models"
)

// Sampling settings per call kind.
const (
	extractionTemperature = 0.1
	evaluationTemperature = 0.3
	summaryTemperature    = 0.4
	summaryMaxTokens      = 500
)

const jsonOnly = "Respond with a single JSON document and nothing else: no markdown fences, no commentary."

const extractionSystem = `You parse CVs from any industry into structured data.
The candidate's full name matters most. It is usually the first prominent line, often right after a "Resume" or "CV" heading and before contact details.
` + jsonOnly

const evaluationSystem = `You are a recruiter scoring a candidate against a job description.
Score every criterion from 0.0 to 5.0 using this guide:

technicalSkillsMatch: 1 unrelated skills, 2 little overlap, 3 partial match, 4 strong match, 5 excellent match including AI/LLM exposure.
experienceLevel: 1 under a year or trivial work, 2 one to two years, 3 three to four years on mid-size projects, 4 five to six years with a solid record, 5 six or more years or high-impact work.
relevantAchievements: 1 none stated, 2 minor improvements, 3 some measurable outcomes, 4 significant contributions, 5 major measurable impact.
culturalFit: 1 not shown, 2 minimal, 3 average, 4 good, 5 excellent and well evidenced (communication, learning, teamwork, leadership).
aiExperience: 1 none, 3 some hands-on use, 5 shipped AI/LLM features.

match_rate is the weighted average of the scores using the supplied scoringWeights.
` + jsonOnly

const projectSystem = `You are a senior engineer reviewing a technical project submission.
Score each criterion from 1 to 5:
correctness (prompt design, chaining, retrieval context), codeQuality (modularity, tests), resilience (retries, long jobs, API failures), documentation (setup, trade-offs), creativity (useful extras).
` + jsonOnly

const finalSummarySystem = `You are a hiring manager writing the final call on a candidate.
The overall summary is three to five sentences covering strengths, gaps and a recommendation.
` + jsonOnly

const roleSuggestionSystem = `You are a career advisor familiar with every industry, not only software.
Seniority bands: Entry-level or Junior up to 2 years, Mid-level 2 to 5, Senior 5 to 8, Lead or Principal beyond 8.
` + jsonOnly

const matchSummarySystem = `You are a career advisor turning job-match results into short, concrete advice.
` + jsonOnly

const skillScoreSystem = `You are a recruiter judging how well a candidate's skills cover a job's requirements.
Count direct matches, transferable skills and equivalent tools. Bands: 90-100 excellent, 70-89 strong, 50-69 moderate, 30-49 weak, 0-29 poor.
` + jsonOnly

func extractionPrompt(cvText string) string {
	var b strings.Builder
	b.WriteString("Extract the candidate profile from the CV text below.\n\n\"\"\"\n")
	b.WriteString(cvText)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString(`Rules:
- name is mandatory; only leave it empty if no name-like text exists at all
- list every skill relevant to the candidate's own field, including tools and soft skills
- seniority from total experience: 0-2 years Junior, 2-5 Mid-level, 5+ Senior, 8+ Lead

Shape:
{
  "name": "",
  "email": "",
  "phone": "",
  "location": "",
  "summary": "",
  "skills": [],
  "experience_years": 0,
  "work_experience": [{"company": "", "position": "", "start_date": "", "end_date": "", "description": "", "achievements": [], "tech_stack": []}],
  "education": [{"institution": "", "degree": "", "start_date": "", "end_date": ""}],
  "projects": [{"name": "", "description": "", "technologies": []}],
  "seniority": "Entry-level|Junior|Mid-level|Senior|Lead|Principal"
}`)
	return b.String()
}

func evaluationPrompt(profile models.CandidateProfile, jd models.JobDescription, retrieved []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job description:\n%s\n\n", toJSON(jd))
	if len(retrieved) > 0 {
		b.WriteString("Related reference material:\n")
		for i, doc := range retrieved {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Candidate:\n%s\n\n", toJSON(profile))
	b.WriteString(`Shape:
{
  "match_rate": 0.0,
  "strengths": [],
  "gaps": [],
  "feedback": "one paragraph",
  "scores": {"technicalSkillsMatch": 0.0, "experienceLevel": 0.0, "relevantAchievements": 0.0, "culturalFit": 0.0, "aiExperience": 0.0}
}`)
	return b.String()
}

func projectPrompt(projectText string) string {
	return fmt.Sprintf(`Review this project submission.

%s

Shape:
{
  "score": 0.0,
  "feedback": "",
  "strengths": [],
  "improvements": [],
  "scores": {"correctness": 1, "codeQuality": 1, "resilience": 1, "documentation": 1, "creativity": 1}
}`, projectText)
}

func finalSummaryPrompt(evaluation interface{}) string {
	return fmt.Sprintf(`Give the final assessment for this evaluation.

%s

Shape:
{"overall_summary": "", "recommendation": "STRONG_YES|YES|CONDITIONAL|NO"}`, toJSON(evaluation))
}

func roleSuggestionPrompt(profile models.CandidateProfile) string {
	return fmt.Sprintf(`Suggest the three job titles that best fit this candidate within their own field, and confirm or adjust their seniority.

%s

Shape:
{"suggested_roles": ["", "", ""], "seniority": "Entry-level|Junior|Mid-level|Senior|Lead|Principal"}`, toJSON(profile))
}

func matchSummaryPrompt(profile models.CandidateProfile, roles RoleSuggestion, jobs []models.MatchResult) string {
	return fmt.Sprintf(`Candidate:
%s

Suggested roles:
%s

Job matches:
%s

Give three strengths, three improvement areas and three next steps, one sentence each.

Shape:
{"summary": {"strengths": [], "improvements": [], "next_steps": []}}`, toJSON(profile), toJSON(roles), toJSON(jobs))
}

func skillScorePrompt(skills, requirements []string) string {
	return fmt.Sprintf(`Candidate skills:
%s

Job requirements:
%s

Shape:
{"score": 0}

score must be a number from 0 to 100.`, toJSON(skills), toJSON(requirements))
}

func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
