package core

import (
	"context"
	"fmt"
	"time"

	"github.com/meowls/evisa/pkg/token"
)

// DefaultSessionMaxAge is the session lifetime: exactly seven days.
const DefaultSessionMaxAge = 7 * 24 * time.Hour

// SessionManager issues, resolves, and revokes opaque session tokens.
// Tokens are bearer capabilities; possession alone proves identity for the
// session lifetime. All timestamps are handled in UTC.
type SessionManager struct {
	maxAge  time.Duration
	storage SessionStorage
	cache   Cache // optional, can be nil if caching is disabled
}

// IssueResult carries the session record and the raw token. The raw token
// exists only here and in the client's hands; storage keeps the hash.
type IssueResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

func NewSessionManager(maxAge time.Duration, storage SessionStorage, cache Cache) *SessionManager {
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &SessionManager{maxAge: maxAge, storage: storage, cache: cache}
}

// Issue generates a fresh token for userID and persists the session.
func (sm *SessionManager) Issue(ctx context.Context, userID string) (*IssueResult, error) {
	pair, err := token.NewPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session, err := sm.persist(ctx, pair.Hash, userID)
	if err != nil {
		return nil, err
	}

	return &IssueResult{Session: session, Token: pair.Token}, nil
}

// Bind adopts an externally-minted token verbatim, giving it the same
// lifecycle as a generated one. No format is assumed beyond uniqueness.
func (sm *SessionManager) Bind(ctx context.Context, tok, userID string) (*Session, error) {
	if tok == "" {
		return nil, ErrInvalidToken
	}

	return sm.persist(ctx, token.Hash(tok), userID)
}

func (sm *SessionManager) persist(ctx context.Context, tokenHash, userID string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.maxAge),
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// We don't fail the request if caching fails
	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

// Resolve maps a token to its session. Absent tokens yield
// ErrSessionNotFound, expired ones ErrSessionExpired. Persistent state is
// never mutated on the read path; expiry is enforced lazily.
func (sm *SessionManager) Resolve(ctx context.Context, tok string) (*Session, error) {
	if tok == "" {
		return nil, ErrSessionNotFound
	}

	tokenHash := token.Hash(tok)

	// Try cache first if caching is enabled
	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil {
			if time.Now().UTC().After(session.ExpiresAt) {
				_ = sm.cache.Delete(tokenHash)
				return nil, ErrSessionExpired
			}
			return session, nil
		}
		// Cache miss - fall through to storage
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

// Revoke deletes the session behind tok. Revoking an unknown or already
// revoked token is not an error.
func (sm *SessionManager) Revoke(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}

	tokenHash := token.Hash(tok)

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	return sm.storage.DeleteSessionByHash(ctx, tokenHash)
}

// RevokeAllForUser destroys every session held by userID.
func (sm *SessionManager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	if sm.cache != nil {
		_ = sm.cache.Clear()
	}

	return sm.storage.DeleteUserSessions(ctx, userID)
}
