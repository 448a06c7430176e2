package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()
}

func TestRegister_ExposedViaPromhttp(t *testing.T) {
	Register()
	StageDuration.WithLabelValues("retrieve").Observe(0.02)
	EvaluationsTotal.WithLabelValues("hallucination_risk").Inc()

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))

	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	for _, name := range []string{
		"docqa_pipeline_stage_duration_seconds",
		"docqa_evaluations_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func TestEvaluationsTotal_Counts(t *testing.T) {
	before := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("unavailable"))
	EvaluationsTotal.WithLabelValues("unavailable").Inc()
	if got := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("unavailable")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
