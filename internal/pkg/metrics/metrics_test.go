package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware_LabelsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/scholarships/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/scholarships/:id", "200"))
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scholarships/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/scholarships/:id", "200"))

	assert.Equal(t, 2.0, after-before)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(paymentsConfirmed.WithLabelValues("webhook"))
	RecordPaymentConfirmed("webhook")
	assert.Equal(t, 1.0, testutil.ToFloat64(paymentsConfirmed.WithLabelValues("webhook"))-before)

	created := testutil.ToFloat64(applicationsCreated)
	RecordApplicationCreated()
	assert.Equal(t, 1.0, testutil.ToFloat64(applicationsCreated)-created)

	RecordTransition("completed")
	RecordCheckoutSession("created")
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordCheckoutSession("reused")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "scholarstream_checkout_sessions_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
