package core

import (
	"context"
	"log/slog"
	"time"
)

// ApplicationInput carries the owner-editable fields of an application.
type ApplicationInput struct {
	VisaType      string         `json:"visa_type"`
	PersonalInfo  map[string]any `json:"personal_info"`
	TravelDetails map[string]any `json:"travel_details"`
}

// ApplicationService manages the visa-application lifecycle:
// draft -> submitted -> approved | rejected. The machine is deliberately
// permissive: Update and Submit do not gate on the current status, and
// SetStatus accepts any of the four states. Enforcement beyond that is
// administrative trust.
type ApplicationService struct {
	apps     ApplicationStorage
	notifier Notifier
	metrics  MetricsRecorder
	logger   *slog.Logger

	// dispatchTimeout bounds each detached notification attempt.
	dispatchTimeout time.Duration
}

func NewApplicationService(
	apps ApplicationStorage,
	notifier Notifier,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *ApplicationService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationService{
		apps:            apps,
		notifier:        notifier,
		metrics:         metrics,
		logger:          logger,
		dispatchTimeout: 30 * time.Second,
	}
}

// Create opens a new application in draft state owned by principal.
func (s *ApplicationService) Create(ctx context.Context, principal *User, input ApplicationInput) (*Application, error) {
	now := time.Now().UTC()
	app := &Application{
		ID:            NewApplicationID(),
		UserID:        principal.ID,
		VisaType:      input.VisaType,
		Status:        StatusDraft,
		PersonalInfo:  input.PersonalInfo,
		TravelDetails: input.TravelDetails,
		Documents:     map[string]Document{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.RecordApplicationCreated()
	s.logger.Info("application created",
		slog.String("application_id", app.ID),
		slog.String("user_id", principal.ID),
		slog.String("visa_type", app.VisaType),
	)

	return app, nil
}

// Get returns an application readable by principal: its owner or an admin.
func (s *ApplicationService) Get(ctx context.Context, principal *User, id string) (*Application, error) {
	app, err := s.apps.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := Authorize(principal, app.UserID, ""); err != nil {
		return nil, err
	}

	return app, nil
}

// List returns the applications owned by principal. Admin principals see
// every application system-wide.
func (s *ApplicationService) List(ctx context.Context, principal *User) ([]*Application, error) {
	if principal.Role == RoleAdmin {
		return s.apps.ListApplications(ctx)
	}
	return s.apps.ListApplicationsByUser(ctx, principal.ID)
}

// ListAll returns every application. Admin only.
func (s *ApplicationService) ListAll(ctx context.Context, principal *User) ([]*Application, error) {
	if err := Authorize(principal, "", RoleAdmin); err != nil {
		return nil, err
	}
	return s.apps.ListApplications(ctx)
}

// Update replaces the owner-editable fields. Owner only; admins do not get
// a bypass for content mutations. The current status is not checked.
func (s *ApplicationService) Update(ctx context.Context, principal *User, id string, input ApplicationInput) (*Application, error) {
	app, err := s.ownedApplication(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	app.VisaType = input.VisaType
	app.PersonalInfo = input.PersonalInfo
	app.TravelDetails = input.TravelDetails
	app.UpdatedAt = time.Now().UTC()

	if err := s.apps.ReplaceApplication(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

// AttachDocument stores a document under label, overwriting any previous
// one with the same label. Owner only.
func (s *ApplicationService) AttachDocument(ctx context.Context, principal *User, id, label string, doc Document) (*Application, error) {
	app, err := s.ownedApplication(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if app.Documents == nil {
		app.Documents = map[string]Document{}
	}
	app.Documents[label] = doc
	app.UpdatedAt = time.Now().UTC()

	if err := s.apps.ReplaceApplication(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

// Submit marks the application submitted. Owner only; submitting twice, or
// submitting something already decided, is allowed.
func (s *ApplicationService) Submit(ctx context.Context, principal *User, id string) (*Application, error) {
	app, err := s.ownedApplication(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	app.Status = StatusSubmitted
	app.UpdatedAt = time.Now().UTC()

	if err := s.apps.ReplaceApplication(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.RecordApplicationSubmitted()
	s.logger.Info("application submitted",
		slog.String("application_id", app.ID),
		slog.String("user_id", principal.ID),
	)

	return app, nil
}

// SetStatus moves the application to any of the four states. Admin only.
// Non-empty notes are stored as admin notes. Decisions trigger a detached,
// best-effort notification; its outcome never affects this call.
func (s *ApplicationService) SetStatus(ctx context.Context, principal *User, id string, status Status, notes string) (*Application, error) {
	if err := Authorize(principal, "", RoleAdmin); err != nil {
		return nil, err
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	app, err := s.apps.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	app.Status = status
	if notes != "" {
		app.AdminNotes = &notes
	}
	app.UpdatedAt = time.Now().UTC()

	if err := s.apps.ReplaceApplication(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusTransition(status)
	s.logger.Info("application status updated",
		slog.String("application_id", app.ID),
		slog.String("status", string(status)),
		slog.String("admin_id", principal.ID),
	)

	if s.notifier != nil && (status == StatusApproved || status == StatusRejected) {
		s.dispatch(app, status, notes)
	}

	return app, nil
}

// dispatch fires the decision notification in the background. The request
// that changed the status has already succeeded by the time this runs.
func (s *ApplicationService) dispatch(app *Application, status Status, notes string) {
	snapshot := *app

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		var err error
		if status == StatusApproved {
			err = s.notifier.NotifyApproval(ctx, &snapshot)
		} else {
			err = s.notifier.NotifyRejection(ctx, &snapshot, notes)
		}

		if err != nil {
			s.metrics.RecordNotification(false)
			s.logger.Error("notification dispatch failed",
				slog.String("application_id", snapshot.ID),
				slog.String("status", string(status)),
				slog.String("error", err.Error()),
			)
			return
		}

		s.metrics.RecordNotification(true)
	}()
}

func (s *ApplicationService) ownedApplication(ctx context.Context, principal *User, id string) (*Application, error) {
	app, err := s.apps.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if app.UserID != principal.ID {
		return nil, ErrNotOwner
	}

	return app, nil
}
