package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandler_ExposesCounters(t *testing.T) {
	Lockouts.Inc()
	ChallengeOutcomes.WithLabelValues("signin", "success").Inc()
	FanoutResults.WithLabelValues("delete", "partial_failure").Inc()

	body := scrape(t)
	assert.Contains(t, body, "idp_lockouts_total")
	assert.Contains(t, body, `idp_challenge_outcomes_total{flow="signin",result="success"}`)
	assert.Contains(t, body, `idp_fanout_results_total{event="delete",result="partial_failure"}`)
}
