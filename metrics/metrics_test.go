package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meowls/evisa/core"
)

// Requirement: Counters advance when events are recorded.
func TestCollector_RecordsEvents(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// Act
	c.RecordRegistration()
	c.RecordRegistration()
	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordApplicationCreated()
	c.RecordApplicationSubmitted()
	c.RecordStatusTransition(core.StatusApproved)
	c.RecordNotification(true)
	c.RecordSessionResolve("hit")

	// Assert
	if got := testutil.ToFloat64(c.registrations); got != 2 {
		t.Errorf("registrations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.logins.WithLabelValues("true")); got != 1 {
		t.Errorf("successful logins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.logins.WithLabelValues("false")); got != 1 {
		t.Errorf("failed logins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.statusTransitions.WithLabelValues("approved")); got != 1 {
		t.Errorf("approved transitions = %v, want 1", got)
	}
}

// Requirement: The metrics handler exposes registered counters in the
// Prometheus text format.
func TestHandler_ExposesMetrics(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordApplicationCreated()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	// Act
	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}

	// Assert
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), "evisa_applications_created_total 1") {
		t.Errorf("metrics output missing created counter:\n%s", body)
	}
}
