// internal/documents/descriptions.go
package documents

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDescriptionSlug is used when a job does not name a description.
const DefaultDescriptionSlug = "default"

type DescriptionRepository interface {
	Get(ctx context.Context, idOrSlug string) (*models.JobDescription, error)
	Upsert(ctx context.Context, jd *models.JobDescription) error
	List(ctx context.Context) ([]models.JobDescription, error)
}

type jobDescriptionRecord struct {
	ID                    string             `gorm:"primaryKey;size:64"`
	Slug                  string             `gorm:"uniqueIndex;size:128"`
	Title                 string             `gorm:"size:255"`
	Company               string             `gorm:"size:255"`
	Description           string             `gorm:"type:text"`
	TechnicalRequirements []string           `gorm:"serializer:json;type:text"`
	SoftSkillRequirements []string           `gorm:"serializer:json;type:text"`
	ScoringWeights        map[string]float64 `gorm:"serializer:json;type:text"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (jobDescriptionRecord) TableName() string { return "job_descriptions" }

func (r jobDescriptionRecord) toModel() *models.JobDescription {
	return &models.JobDescription{
		ID:                    r.ID,
		Slug:                  r.Slug,
		Title:                 r.Title,
		Company:               r.Company,
		Description:           r.Description,
		TechnicalRequirements: r.TechnicalRequirements,
		SoftSkillRequirements: r.SoftSkillRequirements,
		ScoringWeights:        WithDefaultWeights(r.ScoringWeights),
	}
}

func recordFromModel(jd *models.JobDescription) jobDescriptionRecord {
	return jobDescriptionRecord{
		ID:                    jd.ID,
		Slug:                  jd.Slug,
		Title:                 jd.Title,
		Company:               jd.Company,
		Description:           jd.Description,
		TechnicalRequirements: jd.TechnicalRequirements,
		SoftSkillRequirements: jd.SoftSkillRequirements,
		ScoringWeights:        jd.ScoringWeights,
	}
}

// WithDefaultWeights fills every default criterion whose weight is missing or zero.
func WithDefaultWeights(weights map[string]float64) models.ScoringWeights {
	out := models.DefaultScoringWeights()
	for name, w := range weights {
		if w > 0 {
			out[name] = w
		}
	}
	return out
}

func lookupKey(idOrSlug string) string {
	if key := strings.TrimSpace(idOrSlug); key != "" {
		return key
	}
	return DefaultDescriptionSlug
}

// GormDescriptionRepository stores job descriptions in MySQL.
type GormDescriptionRepository struct {
	db *gorm.DB
}

func NewGormDescriptionRepository(db *gorm.DB) *GormDescriptionRepository {
	return &GormDescriptionRepository{db: db}
}

func (r *GormDescriptionRepository) Get(ctx context.Context, idOrSlug string) (*models.JobDescription, error) {
	key := lookupKey(idOrSlug)

	var rec jobDescriptionRecord
	err := r.db.WithContext(ctx).Where("id = ? OR slug = ?", key, key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("job description", key)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get_job_description", err)
	}
	return rec.toModel(), nil
}

func (r *GormDescriptionRepository) Upsert(ctx context.Context, jd *models.JobDescription) error {
	rec := recordFromModel(jd)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return apperrors.NewStoreError("upsert_job_description", err)
	}
	return nil
}

func (r *GormDescriptionRepository) List(ctx context.Context) ([]models.JobDescription, error) {
	var recs []jobDescriptionRecord
	if err := r.db.WithContext(ctx).Order("slug").Find(&recs).Error; err != nil {
		return nil, apperrors.NewStoreError("list_job_descriptions", err)
	}
	out := make([]models.JobDescription, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toModel())
	}
	return out, nil
}

type MemoryDescriptionRepository struct {
	mu    sync.RWMutex
	items map[string]models.JobDescription
}

func NewMemoryDescriptionRepository(items ...models.JobDescription) *MemoryDescriptionRepository {
	r := &MemoryDescriptionRepository{items: make(map[string]models.JobDescription)}
	for i := range items {
		_ = r.Upsert(context.Background(), &items[i])
	}
	return r
}

func (r *MemoryDescriptionRepository) Get(ctx context.Context, idOrSlug string) (*models.JobDescription, error) {
	key := lookupKey(idOrSlug)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, jd := range r.items {
		if jd.ID == key || jd.Slug == key {
			out := jd
			out.ScoringWeights = WithDefaultWeights(jd.ScoringWeights)
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFoundError("job description", key)
}

func (r *MemoryDescriptionRepository) Upsert(ctx context.Context, jd *models.JobDescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[jd.ID] = *jd
	return nil
}

func (r *MemoryDescriptionRepository) List(ctx context.Context) ([]models.JobDescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.JobDescription, 0, len(r.items))
	for _, jd := range r.items {
		jd.ScoringWeights = WithDefaultWeights(jd.ScoringWeights)
		out = append(out, jd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
