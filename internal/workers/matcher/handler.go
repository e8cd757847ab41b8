// internal/workers/matcher/handler.go
package matcher

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/listings"
	"cv-pipeline/internal/matching"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/pipeline"
	"cv-pipeline/internal/reasoning"
)

const primarySkillCount = 5

type Dependencies struct {
	Documents DocumentResolver
	Reasoning Reasoner
	Listings  listings.Provider // nil always uses the fallback set
}

// Handler plans matcher jobs: a CV ranked against live job listings.
type Handler struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"jobType": string(models.JobTypeMatcher)}),
	}
}

func (h *Handler) JobType() models.JobType { return models.JobTypeMatcher }

func (h *Handler) Stages() []string { return append([]string(nil), stages...) }

func (h *Handler) Plan(job *models.Job) (*pipeline.Execution, error) {
	var input models.MatcherInput
	if err := json.Unmarshal(job.InputRefs, &input); err != nil {
		return nil, apperrors.NewValidationError("inputRefs: " + err.Error())
	}
	if strings.TrimSpace(input.CVDocumentID) == "" {
		return nil, apperrors.NewValidationError("cvDocumentId is required")
	}

	r := &run{
		h:     h,
		input: input,
		log:   h.logger.WithFields(map[string]interface{}{"jobId": job.ID}),
	}
	return &pipeline.Execution{
		Steps: []pipeline.Step{
			{Stage: StageResolveDocument, Do: r.resolveDocument},
			{Stage: StageExtractProfile, Do: r.extractProfile},
			{Stage: StageSuggestRoles, Do: r.suggestRoles},
			{Stage: StageFetchListings, Do: r.fetchListings},
			{Stage: StageRank, Do: r.rank},
			{Stage: StageSummarize, Do: r.summarize},
		},
		Result: r.report,
	}, nil
}

type run struct {
	h     *Handler
	input models.MatcherInput
	log   logger.Logger

	text     string
	profile  models.CandidateProfile
	roles    reasoning.RoleSuggestion
	listings []models.JobListing
	fallback bool
	ranked   []models.MatchResult
	summary  reasoning.MatchSummary
}

func (r *run) fallbackUsed(name string) {
	metrics.FallbackActivations.WithLabelValues(string(models.JobTypeMatcher), name).Inc()
}

func (r *run) resolveDocument(ctx context.Context) (interface{}, error) {
	res, err := r.h.deps.Documents.Resolve(ctx, r.input.CVDocumentID)
	if err != nil {
		return nil, err
	}
	if res.Origin != documents.OriginExtracted {
		r.fallbackUsed("cached_text")
	}
	r.text = res.Text
	return ResolvedDocument{DocumentID: r.input.CVDocumentID, Origin: res.Origin, Characters: len(res.Text)}, nil
}

func (r *run) extractProfile(ctx context.Context) (interface{}, error) {
	profile, err := r.h.deps.Reasoning.ExtractProfile(ctx, r.text)
	if err != nil {
		return nil, err
	}

	name := CandidateName(profile.Name, r.text)
	if IsPlaceholderName(profile.Name) {
		r.fallbackUsed("candidate_name")
		r.log.Warn("Extracted name rejected, derived from text", map[string]interface{}{
			"extracted": profile.Name,
			"derived":   name,
		})
	}
	profile.Name = name
	r.profile = profile
	return profile, nil
}

func (r *run) suggestRoles(ctx context.Context) (interface{}, error) {
	roles, err := r.h.deps.Reasoning.SuggestRoles(ctx, r.profile)
	if err != nil {
		return nil, err
	}
	if roles.Seniority == "" {
		roles.Seniority = r.profile.Seniority
	}
	r.roles = roles
	return roles, nil
}

// fetchListings never fails: provider errors and empty results switch to the
// fixed fallback set.
func (r *run) fetchListings(ctx context.Context) (interface{}, error) {
	location := strings.TrimSpace(r.input.Location)
	if location == "" {
		location = r.h.config.DefaultLocation
	}

	var (
		got    []models.JobListing
		reason string
	)
	if r.h.deps.Listings == nil {
		reason = listings.ErrNotConfigured.Error()
	} else {
		var err error
		got, err = r.h.deps.Listings.Fetch(ctx, r.roles.SuggestedRoles, r.roles.Seniority, location)
		switch {
		case err != nil:
			reason = err.Error()
		case len(got) == 0:
			reason = "no listings returned"
		}
	}

	if reason != "" {
		r.fallbackUsed("listings")
		r.log.Warn("Using fallback listings", map[string]interface{}{
			"reason":   reason,
			"roles":    r.roles.SuggestedRoles,
			"location": location,
		})
		r.listings = matching.FallbackListings()
		r.fallback = true
		return ListingsFetched{Count: len(r.listings), Fallback: true, Reason: reason}, nil
	}

	r.listings = got
	return ListingsFetched{Count: len(got)}, nil
}

func (r *run) rank(ctx context.Context) (interface{}, error) {
	candidate := matching.CandidateFrom(r.profile)
	if r.roles.Seniority != "" {
		candidate.Seniority = r.roles.Seniority
	}

	var scorer matching.SkillScorer
	if r.h.config.ExternalSkillScore {
		scorer = func(listing models.JobListing) (float64, bool) {
			return r.h.deps.Reasoning.ScoreSkills(ctx, candidate.Skills, listing.Requirements)
		}
	}

	r.ranked = matching.Rank(candidate, r.listings, r.h.config.TopN, scorer)
	return r.ranked, nil
}

func (r *run) summarize(ctx context.Context) (interface{}, error) {
	summary, err := r.h.deps.Reasoning.SummarizeMatches(ctx, r.profile, r.roles, r.ranked)
	if err != nil {
		return nil, err
	}
	r.summary = summary
	return summary, nil
}

func (r *run) report() interface{} {
	skills := r.profile.Skills
	if len(skills) > primarySkillCount {
		skills = skills[:primarySkillCount]
	}
	return models.MatchReport{
		UserProfile: models.UserProfile{
			Name:          r.profile.Name,
			Seniority:     r.roles.Seniority,
			PrimarySkills: append([]string{}, skills...),
		},
		SuggestedRoles:   append([]string{}, r.roles.SuggestedRoles...),
		Jobs:             r.ranked,
		Summary:          r.summary.Summary,
		FallbackListings: r.fallback,
	}
}
