package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ExternalIdentity is what the identity-provider collaborator hands back
// for a valid external session id. SessionToken is provider-minted and is
// bound as the local session token without alteration.
type ExternalIdentity struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Picture      *string `json:"picture"`
	SessionToken string  `json:"session_token"`
}

// IdentityProvider exchanges an opaque external session id for the identity
// behind it. Only the result is consumed here; the protocol is the
// collaborator's business.
type IdentityProvider interface {
	Exchange(ctx context.Context, externalSessionID string) (*ExternalIdentity, error)
}

// RegisterInput contains the data needed to register a new applicant.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginInput contains the credentials for authentication.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult contains the authenticated user and the raw session token.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// AuthService owns registration, login, external-identity exchange, and
// principal resolution. Every dependency is injected at construction.
type AuthService struct {
	users     UserStorage
	sessions  *SessionManager
	passwords PasswordHandler
	provider  IdentityProvider
	metrics   MetricsRecorder
	logger    *slog.Logger
}

func NewAuthService(
	users UserStorage,
	sessions *SessionManager,
	passwords PasswordHandler,
	provider IdentityProvider,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *AuthService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		provider:  provider,
		metrics:   metrics,
		logger:    logger,
	}
}

// Register creates a user with a credential password and opens their first
// session.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}
	if input.Name == "" {
		return nil, ErrNameRequired
	}

	// Step 1: Check if user already exists
	existing, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailRegistered
	}

	// Step 2: Hash the password
	hashed, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Step 3: Create the user
	user := &User{
		ID:           NewUserID(),
		Email:        input.Email,
		PasswordHash: &hashed,
		Name:         input.Name,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	// Step 4: Open a session for the new user
	issued, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordRegistration()
	s.logger.Info("user registered", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Token: issued.Token}, nil
}

// Login authenticates with email and password and opens a new session.
// A user may hold any number of concurrent sessions.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.RecordLogin(false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Externally-authenticated identities have no local credential.
	if user.PasswordHash == nil {
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}

	valid, err := s.passwords.Verify(input.Password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}

	issued, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin(true)

	return &AuthResult{User: user, Token: issued.Token}, nil
}

// ExchangeExternalSession trades an external session id for a local
// principal. The provider-issued session token is bound verbatim as the
// local session token; an existing user keyed by email gets their profile
// synced, otherwise one is created without a password.
func (s *AuthService) ExchangeExternalSession(ctx context.Context, externalSessionID string) (*AuthResult, error) {
	ident, err := s.provider.Exchange(ctx, externalSessionID)
	if err != nil {
		s.logger.Warn("identity exchange failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrIdentityExchange, err)
	}

	user, err := s.users.GetUserByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		if err := s.users.UpdateUserProfile(ctx, user.ID, ident.Name, ident.Picture); err != nil {
			return nil, fmt.Errorf("failed to sync profile: %w", err)
		}
		user.Name = ident.Name
		user.Picture = ident.Picture
	case errors.Is(err, ErrUserNotFound):
		user = &User{
			ID:        NewUserID(),
			Email:     ident.Email,
			Name:      ident.Name,
			Picture:   ident.Picture,
			Role:      RoleUser,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("external identity registered", slog.String("user_id", user.ID))
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.sessions.Bind(ctx, ident.SessionToken, user.ID); err != nil {
		return nil, fmt.Errorf("failed to bind external session: %w", err)
	}

	s.metrics.RecordLogin(true)

	return &AuthResult{User: user, Token: ident.SessionToken}, nil
}

// CurrentUser resolves a bearer token to its principal: the full user
// record behind a live session. Any failure along the chain - missing
// token, unknown or expired session, vanished user - leaves the caller
// unauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, tok string) (*User, error) {
	if tok == "" {
		s.metrics.RecordSessionResolve("missing")
		return nil, ErrUnauthenticated
	}

	session, err := s.sessions.Resolve(ctx, tok)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			s.metrics.RecordSessionResolve("expired")
		case errors.Is(err, ErrSessionNotFound):
			s.metrics.RecordSessionResolve("not_found")
		}
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Session points at a deleted user; treat it as invalid.
			s.metrics.RecordSessionResolve("orphaned")
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	s.metrics.RecordSessionResolve("ok")
	return user, nil
}

// Logout revokes the session behind tok. Calling it with an unknown or
// already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, tok)
}

// LogoutAll revokes every session the principal holds, the calling one
// included. Returns the number of sessions destroyed.
func (s *AuthService) LogoutAll(ctx context.Context, principal *User) (int, error) {
	count, err := s.sessions.RevokeAllForUser(ctx, principal.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.logger.Info("all sessions revoked",
		slog.String("user_id", principal.ID),
		slog.Int("count", count),
	)
	return count, nil
}
