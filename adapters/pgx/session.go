package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meowls/evisa/core"
)

func (a *Adapter) CreateSession(ctx context.Context, session *core.Session) error {
	// Upsert keyed on token_hash: binding the same externally-minted token
	// again refreshes the session rather than tripping the primary key.
	query := `
		INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO UPDATE
		SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`

	_, err := a.pool.Exec(ctx, query,
		session.TokenHash, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	q := `SELECT token_hash, user_id, expires_at, created_at FROM sessions WHERE token_hash = $1`

	session := &core.Session{}
	err := a.pool.QueryRow(ctx, q, tokenHash).Scan(
		&session.TokenHash, &session.UserID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}

	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	// Deleting an absent session is fine; revocation is idempotent.
	_, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
