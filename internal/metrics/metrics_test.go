package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCollector_RegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	if c == nil {
		t.Fatal("expected non-nil collector")
	}
}

func TestCollector_RecordAndServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess("google")
	c.RecordLoginFailure("bankid")
	c.RecordVerificationStarted()
	c.RecordVerificationPoll()
	c.RecordVerificationOutcome("complete")
	c.RecordPermissionFailOpen("/api/new-path")
	c.RecordAccessDenied("/api/users")
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(50 * time.Millisecond)
	c.RecordPaymentMarkedPaid()

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	for _, metric := range []string{
		"konsfekt_login_success_total",
		"konsfekt_verification_polls_total",
		"konsfekt_verification_outcome_total",
		"konsfekt_permission_fail_open_total",
		"konsfekt_http_status_total",
		"konsfekt_payments_paid_total",
	} {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response should contain %s", metric)
		}
	}
}
