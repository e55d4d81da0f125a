// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meowls/evisa/core"
)

// Collector implements core.MetricsRecorder on Prometheus counters.
type Collector struct {
	registrations         prometheus.Counter
	logins                *prometheus.CounterVec
	sessionResolves       *prometheus.CounterVec
	applicationsCreated   prometheus.Counter
	applicationsSubmitted prometheus.Counter
	statusTransitions     *prometheus.CounterVec
	notifications         *prometheus.CounterVec
}

var _ core.MetricsRecorder = (*Collector)(nil)

// NewCollector builds a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evisa_registrations_total",
			Help: "Total number of user registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evisa_logins_total",
			Help: "Total number of login attempts by outcome.",
		}, []string{"success"}),
		sessionResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evisa_session_resolves_total",
			Help: "Total number of session token resolutions by outcome.",
		}, []string{"outcome"}),
		applicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evisa_applications_created_total",
			Help: "Total number of visa applications created.",
		}),
		applicationsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evisa_applications_submitted_total",
			Help: "Total number of visa applications submitted for review.",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evisa_status_transitions_total",
			Help: "Total number of application status changes by target status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evisa_notifications_total",
			Help: "Total number of decision notification dispatches by outcome.",
		}, []string{"success"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.sessionResolves,
		c.applicationsCreated,
		c.applicationsSubmitted,
		c.statusTransitions,
		c.notifications,
	)

	return c
}

func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

func (c *Collector) RecordLogin(ok bool) {
	c.logins.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (c *Collector) RecordSessionResolve(outcome string) {
	c.sessionResolves.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordApplicationCreated() {
	c.applicationsCreated.Inc()
}

func (c *Collector) RecordApplicationSubmitted() {
	c.applicationsSubmitted.Inc()
}

func (c *Collector) RecordStatusTransition(status core.Status) {
	c.statusTransitions.WithLabelValues(string(status)).Inc()
}

func (c *Collector) RecordNotification(ok bool) {
	c.notifications.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// Handler returns an HTTP handler exposing the gatherer in Prometheus
// text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
