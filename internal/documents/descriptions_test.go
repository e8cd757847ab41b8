// internal/documents/descriptions_test.go
package documents

import (
	"context"
	"testing"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var descriptionColumns = []string{
	"id", "slug", "title", "company", "description",
	"technical_requirements", "soft_skill_requirements", "scoring_weights",
	"created_at", "updated_at",
}

func TestGormDescriptionRepository_Get(t *testing.T) {
	gdb, mock := setupGorm(t)
	now := time.Now()

	rows := sqlmock.NewRows(descriptionColumns).AddRow(
		"jd-1", "backend-engineer", "Senior Backend Engineer", "Tech Company", "Build APIs",
		`["Go","PostgreSQL"]`, `["Communication"]`, `{"technicalSkillsMatch":0.5,"culturalFit":0}`,
		now, now,
	)
	mock.ExpectQuery("SELECT \\* FROM `job_descriptions` WHERE .*id = \\? OR slug = \\?").WillReturnRows(rows)

	jd, err := NewGormDescriptionRepository(gdb).Get(context.Background(), "backend-engineer")
	require.NoError(t, err)
	assert.Equal(t, "jd-1", jd.ID)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, jd.TechnicalRequirements)
	assert.Equal(t, 0.5, jd.ScoringWeights["technicalSkillsMatch"])
	assert.Equal(t, 0.15, jd.ScoringWeights["culturalFit"], "zero weight takes the default")
	assert.Equal(t, 0.25, jd.ScoringWeights["experienceLevel"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDescriptionRepository_Get_NotFound(t *testing.T) {
	gdb, mock := setupGorm(t)
	mock.ExpectQuery("SELECT \\* FROM `job_descriptions`").WillReturnRows(sqlmock.NewRows(descriptionColumns))

	_, err := NewGormDescriptionRepository(gdb).Get(context.Background(), "")
	require.Error(t, err)
	stdErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.ErrCodeNotFound, stdErr.Code)
	assert.Contains(t, stdErr.Details, DefaultDescriptionSlug)
}

func TestGormDescriptionRepository_Upsert(t *testing.T) {
	gdb, mock := setupGorm(t)
	mock.ExpectExec("INSERT INTO `job_descriptions` .*ON DUPLICATE KEY UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewGormDescriptionRepository(gdb).Upsert(context.Background(), &models.JobDescription{
		ID: "jd-1", Slug: "default", Title: "Backend Engineer",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryDescriptionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDescriptionRepository(
		models.JobDescription{ID: "jd-2", Slug: "fullstack"},
		models.JobDescription{ID: "jd-1", Slug: DefaultDescriptionSlug, ScoringWeights: models.ScoringWeights{"aiExperience": 0.4}},
	)

	jd, err := repo.Get(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, "jd-1", jd.ID)
	assert.Equal(t, 0.4, jd.ScoringWeights["aiExperience"])
	assert.Equal(t, 0.30, jd.ScoringWeights["technicalSkillsMatch"])

	jd, err = repo.Get(ctx, "jd-2")
	require.NoError(t, err)
	assert.Equal(t, "fullstack", jd.Slug)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DefaultDescriptionSlug, list[0].Slug)

	_, err = repo.Get(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestWithDefaultWeights(t *testing.T) {
	w := WithDefaultWeights(nil)
	assert.Equal(t, models.DefaultScoringWeights(), w)

	w = WithDefaultWeights(map[string]float64{"leadership": 0.2, "experienceLevel": -1})
	assert.Equal(t, 0.2, w["leadership"])
	assert.Equal(t, 0.25, w["experienceLevel"])
}
