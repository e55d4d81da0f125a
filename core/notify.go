package core

import "context"

// Notifier delivers decision notifications to applicants. Delivery is
// best-effort relative to the triggering status change; the workflow never
// fails a mutation because a notification could not be sent.
type Notifier interface {
	NotifyApproval(ctx context.Context, app *Application) error
	NotifyRejection(ctx context.Context, app *Application, notes string) error
}

// MetricsRecorder is the consumer-side port for operational counters.
// The prometheus-backed implementation lives in the metrics package.
type MetricsRecorder interface {
	RecordRegistration()
	RecordLogin(ok bool)
	RecordSessionResolve(outcome string)
	RecordApplicationCreated()
	RecordApplicationSubmitted()
	RecordStatusTransition(status Status)
	RecordNotification(ok bool)
}

// NoopMetrics discards every observation. Used in tests and when metrics
// are disabled.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordRegistration() {}

func (NoopMetrics) RecordLogin(bool) {}

func (NoopMetrics) RecordSessionResolve(string) {}

func (NoopMetrics) RecordApplicationCreated() {}

func (NoopMetrics) RecordApplicationSubmitted() {}

func (NoopMetrics) RecordStatusTransition(Status) {}

func (NoopMetrics) RecordNotification(bool) {}
