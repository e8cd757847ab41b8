// internal/workers/matcher/models.go
package matcher

import (
	"context"

	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/reasoning"
)

// Stage names, in execution order.
const (
	StageResolveDocument = "resolve_document"
	StageExtractProfile  = "extract_profile"
	StageSuggestRoles    = "suggest_roles"
	StageFetchListings   = "fetch_listings"
	StageRank            = "rank"
	StageSummarize       = "summarize"
)

var stages = []string{StageResolveDocument, StageExtractProfile, StageSuggestRoles, StageFetchListings, StageRank, StageSummarize}

type DocumentResolver interface {
	Resolve(ctx context.Context, documentID string) (*documents.Resolution, error)
}

type Reasoner interface {
	ExtractProfile(ctx context.Context, cvText string) (reasoning.ExtractionResult, error)
	SuggestRoles(ctx context.Context, profile models.CandidateProfile) (reasoning.RoleSuggestion, error)
	SummarizeMatches(ctx context.Context, profile models.CandidateProfile, roles reasoning.RoleSuggestion, jobs []models.MatchResult) (reasoning.MatchSummary, error)
	ScoreSkills(ctx context.Context, skills, requirements []string) (float64, bool)
}

type ResolvedDocument struct {
	DocumentID string `json:"documentId"`
	Origin     string `json:"origin"`
	Characters int    `json:"characters"`
}

// ListingsFetched is the partial result of the fetch stage.
type ListingsFetched struct {
	Count    int    `json:"count"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}
