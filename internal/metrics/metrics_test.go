package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{302, "3xx"},
		{410, "4xx"},
		{502, "5xx"},
	}

	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/runbooks/:scenario", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/runbooks/:scenario", "2xx"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/runbooks/var_breach", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/runbooks/:scenario", "2xx"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{"riskops_goroutines", "riskops_confirmations_swept_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestRiskScore_ObservesByKind(t *testing.T) {
	RiskScore.Reset()
	RiskScore.WithLabelValues("company").Observe(0.42)
	RiskScore.WithLabelValues("company").Observe(0.58)
	RiskScore.WithLabelValues("portfolio").Observe(0.9)

	ch := make(chan prometheus.Metric, 10)
	RiskScore.Collect(ch)
	close(ch)

	counts := map[string]uint64{}
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			t.Fatalf("Write: %v", err)
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "kind" {
				counts[lp.GetValue()] = m.GetHistogram().GetSampleCount()
			}
		}
	}
	if counts["company"] != 2 || counts["portfolio"] != 1 {
		t.Errorf("unexpected sample counts %v", counts)
	}
}
