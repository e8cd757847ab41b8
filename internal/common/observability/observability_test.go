package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cv-pipeline/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsJobMetrics(t *testing.T) {
	reg := promclient.NewRegistry()
	o := New("cv-pipeline-test", Options{Registerer: reg}, logger.NewTestLogger(t))
	defer o.Shutdown()

	ctx := context.Background()
	o.RecordJobProcessed(ctx, "evaluation", "completed")
	o.RecordJobDuration(ctx, "evaluation", 1500*time.Millisecond, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "jobs_processed")
	assert.Contains(t, joined, "jobs_duration")
}

func TestObservability_SpansWithoutTracing(t *testing.T) {
	o := New("cv-pipeline-test", Options{Registerer: promclient.NewRegistry()}, logger.NewNoOpLogger())
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "stage.extract_profile")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))

	var nilObs *Observability
	_, span = nilObs.StartSpan(context.Background(), "noop")
	EndSpan(span, nil)
	nilObs.RecordJobProcessed(context.Background(), "matcher", "failed")
}
