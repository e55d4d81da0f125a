package core

import "context"

// Storage ports. Implementations live under adapters/.

// UserStorage defines user-related database operations.
type UserStorage interface {
	// CreateUser persists a new user. A duplicate email yields ErrEmailRegistered.
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUserProfile syncs name and picture from an external identity.
	UpdateUserProfile(ctx context.Context, id, name string, picture *string) error
}

// SessionStorage defines session-related database operations. Sessions are
// keyed by token hash.
type SessionStorage interface {
	// CreateSession persists a session, replacing any existing record with
	// the same token hash. Externally-minted tokens can be bound repeatedly
	// (the provider hands back the same token on a callback refresh), so a
	// re-bind refreshes the session instead of failing.
	CreateSession(ctx context.Context, s *Session) error

	// GetSessionByHash yields ErrSessionNotFound when no record exists.
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteSessionByHash is a no-op when the record is already gone.
	DeleteSessionByHash(ctx context.Context, tokenHash string) error

	DeleteUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// ApplicationStorage defines visa-application database operations.
type ApplicationStorage interface {
	CreateApplication(ctx context.Context, app *Application) error

	// GetApplicationByID yields ErrApplicationNotFound when no record exists.
	GetApplicationByID(ctx context.Context, id string) (*Application, error)

	ListApplicationsByUser(ctx context.Context, userID string) ([]*Application, error)
	ListApplications(ctx context.Context) ([]*Application, error)

	// ReplaceApplication overwrites the whole record. Concurrent writers
	// resolve last-write-wins; the owner column is never changed.
	ReplaceApplication(ctx context.Context, app *Application) error
}

type Storage interface {
	UserStorage
	SessionStorage
	ApplicationStorage
}
