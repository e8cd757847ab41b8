// internal/listings/provider_test.go
package listings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	httpclient "cv-pipeline/internal/common/http"
	"cv-pipeline/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "Backend Engineer,Platform Engineer", r.URL.Query().Get("roles"))
		assert.Equal(t, "Senior", r.URL.Query().Get("seniority"))
		assert.Equal(t, "Jakarta", r.URL.Query().Get("location"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs": [
			{"title": "Backend Engineer", "company": "Acme", "salary": "IDR 20-30jt", "url": "https://jobs/1", "requirements": ["Go"]},
			{"title": "  ", "company": "Skipped"}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", "secret", time.Second, logger.NewTestLogger(t))
	got, err := p.Fetch(context.Background(), []string{"Backend Engineer", "Platform Engineer"}, "Senior", "Jakarta")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "IDR 20-30jt", got[0].SalaryRange)
	assert.Equal(t, "https://jobs/1", got[0].Link)
	assert.Equal(t, []string{"Go"}, got[0].Requirements)
	assert.NotNil(t, got[0].Responsibilities)
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   apperrors.ErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrCodeRateLimit},
		{"server error", http.StatusInternalServerError, apperrors.ErrCodeProvider},
		{"client error", http.StatusNotFound, apperrors.ErrCodeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, "", time.Second, logger.NewNoOpLogger())
			p.client = httpclient.NewClient(time.Second)
			_, err := p.Fetch(context.Background(), []string{"x"}, "", "")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestHTTPProvider_NotConfigured(t *testing.T) {
	p := NewHTTPProvider("", "", time.Second, logger.NewNoOpLogger())
	_, err := p.Fetch(context.Background(), nil, "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
