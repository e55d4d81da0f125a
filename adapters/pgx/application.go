package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meowls/evisa/core"
)

func (a *Adapter) CreateApplication(ctx context.Context, app *core.Application) error {
	query := `
		INSERT INTO visa_applications
			(application_id, user_id, visa_type, status, personal_info, travel_details, documents, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := a.pool.Exec(ctx, query,
		app.ID, app.UserID, app.VisaType, app.Status,
		app.PersonalInfo, app.TravelDetails, app.Documents,
		app.AdminNotes, app.CreatedAt, app.UpdatedAt,
	)
	return err
}

func (a *Adapter) GetApplicationByID(ctx context.Context, id string) (*core.Application, error) {
	q := selectApplication + ` WHERE application_id = $1`

	app, err := scanApplication(a.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (a *Adapter) ListApplicationsByUser(ctx context.Context, userID string) ([]*core.Application, error) {
	q := selectApplication + ` WHERE user_id = $1 ORDER BY created_at`

	rows, err := a.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectApplications(rows)
}

func (a *Adapter) ListApplications(ctx context.Context) ([]*core.Application, error) {
	q := selectApplication + ` ORDER BY created_at`

	rows, err := a.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectApplications(rows)
}

func (a *Adapter) ReplaceApplication(ctx context.Context, app *core.Application) error {
	query := `
		UPDATE visa_applications
		SET visa_type = $2, status = $3, personal_info = $4, travel_details = $5,
			documents = $6, admin_notes = $7, updated_at = $8
		WHERE application_id = $1`

	tag, err := a.pool.Exec(ctx, query,
		app.ID, app.VisaType, app.Status,
		app.PersonalInfo, app.TravelDetails, app.Documents,
		app.AdminNotes, app.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrApplicationNotFound
	}
	return nil
}

const selectApplication = `
	SELECT application_id, user_id, visa_type, status, personal_info, travel_details, documents, admin_notes, created_at, updated_at
	FROM visa_applications`

func scanApplication(row pgx.Row) (*core.Application, error) {
	app := &core.Application{}
	err := row.Scan(
		&app.ID, &app.UserID, &app.VisaType, &app.Status,
		&app.PersonalInfo, &app.TravelDetails, &app.Documents,
		&app.AdminNotes, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if app.Documents == nil {
		app.Documents = map[string]core.Document{}
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return app, nil
}

func collectApplications(rows pgx.Rows) ([]*core.Application, error) {
	apps := []*core.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
