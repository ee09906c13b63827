package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMeasure_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Measure)
	r.Get("/api/datasets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := scrape(t)
	assert.Contains(t, body, `adparams_http_requests_total{code="404",route="/api/datasets/{id}"}`)
	assert.NotContains(t, body, `route="/api/datasets/abc"`)
}

func TestMetricsHandler_ExposesDomainMetrics(t *testing.T) {
	ExportsTotal.Inc()
	DroppedFilterRules.WithLabelValues("CID").Inc()

	body := scrape(t)
	assert.Contains(t, body, "adparams_exports_total")
	assert.Contains(t, body, `adparams_dropped_filter_rules_total{column="CID"}`)
}
