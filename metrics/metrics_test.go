package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
)

var (
	_ pipeline.Observer = (*Metrics)(nil)
	_ render.Telemetry  = (*Metrics)(nil)
)

func TestTelemetryCounters(t *testing.T) {
	m := New()
	m.ImageBlurred()
	m.ImageBlurred()
	m.HarmfulContent()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blurred))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.harmful))
}

func TestObserveModel(t *testing.T) {
	m := New()
	m.ObserveModel(pipeline.StageFace, 10*time.Millisecond, nil)
	m.ObserveModel(pipeline.StageFace, 20*time.Millisecond, errors.New("boom"))
	m.ObserveModel(pipeline.StagePose, 5*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelErrors.WithLabelValues("face")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelErrors.WithLabelValues("pose")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.modelLatency))
}

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(pipeline.Outcome{Reason: pipeline.ReasonDetected, Persons: make([]detection.Person, 3)}, time.Millisecond)
	m.ObserveOutcome(pipeline.Outcome{Reason: pipeline.ReasonNSFW, IsNSFW: true}, time.Millisecond)
	m.ObserveOutcome(pipeline.Outcome{Reason: pipeline.ReasonDetected}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("detected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("nsfw")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.persons))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	tests := []struct {
		status int
		class  string
	}{
		{http.StatusOK, "2xx"},
		{http.StatusFound, "3xx"},
		{http.StatusBadRequest, "4xx"},
		{http.StatusBadGateway, "5xx"},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			m.ObserveRequest("/v1/detect", tt.status)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/v1/detect", tt.class)))
		})
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.HarmfulContent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safegaze_harmful_content_total 1")
}
