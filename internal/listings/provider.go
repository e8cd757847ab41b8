// internal/listings/provider.go
package listings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	httpclient "cv-pipeline/internal/common/http"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"
)

const providerName = "listings"

var ErrNotConfigured = errors.New("LISTINGS_NOT_CONFIGURED")

// Provider returns open job listings for the suggested roles.
type Provider interface {
	Fetch(ctx context.Context, roles []string, seniority, location string) ([]models.JobListing, error)
}

type HTTPProvider struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	logger  logger.Logger
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		client:  httpclient.NewClient(timeout, httpclient.WithRetry(2, 500*time.Millisecond)),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  log.WithFields(map[string]interface{}{"component": "listings"}),
	}
}

// listing mirrors the provider payload; providers disagree on the salary and link keys.
type listing struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	SalaryRange      string   `json:"salary_range"`
	Salary           string   `json:"salary"`
	JobType          string   `json:"job_type"`
	Seniority        string   `json:"seniority"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Description      string   `json:"job_description"`
	PostedAt         string   `json:"posted_at"`
	Link             string   `json:"link"`
	URL              string   `json:"url"`
}

type response struct {
	Jobs []listing `json:"jobs"`
}

func (p *HTTPProvider) Fetch(ctx context.Context, roles []string, seniority, location string) ([]models.JobListing, error) {
	if p.baseURL == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	if len(roles) > 0 {
		q.Set("roles", strings.Join(roles, ","))
	}
	if seniority != "" {
		q.Set("seniority", seniority)
	}
	if location != "" {
		q.Set("location", location)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var resp response
	if err := p.client.GetJSON(ctx, p.baseURL+"/jobs?"+q.Encode(), headers, &resp); err != nil {
		var se *httpclient.StatusError
		switch {
		case errors.As(err, &se) && se.StatusCode == 429:
			return nil, apperrors.NewRateLimitError(providerName, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewProviderTimeoutError(providerName, err)
		default:
			return nil, apperrors.NewProviderError(providerName, fmt.Errorf("fetch listings: %w", err))
		}
	}

	out := make([]models.JobListing, 0, len(resp.Jobs))
	for _, l := range resp.Jobs {
		if strings.TrimSpace(l.Title) == "" {
			continue
		}
		out = append(out, toModel(l))
	}

	p.logger.Debug("Fetched listings", map[string]interface{}{"roles": roles, "count": len(out)})
	return out, nil
}

func toModel(l listing) models.JobListing {
	salary := l.SalaryRange
	if salary == "" {
		salary = l.Salary
	}
	link := l.Link
	if link == "" {
		link = l.URL
	}
	return models.JobListing{
		Title:            l.Title,
		Company:          l.Company,
		Location:         l.Location,
		SalaryRange:      salary,
		JobType:          l.JobType,
		Seniority:        l.Seniority,
		Requirements:     nonNil(l.Requirements),
		Responsibilities: nonNil(l.Responsibilities),
		Description:      l.Description,
		PostedAt:         l.PostedAt,
		Link:             link,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
