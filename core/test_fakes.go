package core

import (
	"context"
	"sync"
	"time"
)

// Test-only fakes for the storage and collaborator ports. They keep records
// in maps guarded by a mutex and expose error fields for behavior injection,
// mirroring how the real adapters report failures.

// FakeStorage implements Storage in memory.
type FakeStorage struct {
	mu sync.RWMutex

	usersByID    map[string]*User
	usersByEmail map[string]*User
	sessions     map[string]*Session
	applications map[string]*Application
	appOrder     []string

	CreateUserErr  error
	GetUserErr     error
	SessionErr     error
	ApplicationErr error
}

var _ Storage = (*FakeStorage)(nil)

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		usersByID:    make(map[string]*User),
		usersByEmail: make(map[string]*User),
		sessions:     make(map[string]*Session),
		applications: make(map[string]*Application),
	}
}

func (f *FakeStorage) CreateUser(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateUserErr != nil {
		return f.CreateUserErr
	}
	if _, ok := f.usersByEmail[u.Email]; ok {
		return ErrEmailRegistered
	}
	cp := *u
	f.usersByID[u.ID] = &cp
	f.usersByEmail[u.Email] = &cp
	return nil
}

func (f *FakeStorage) GetUserByID(_ context.Context, id string) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	u, ok := f.usersByID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *FakeStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	u, ok := f.usersByEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *FakeStorage) UpdateUserProfile(_ context.Context, id, name string, picture *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Name = name
	u.Picture = picture
	return nil
}

// DeleteUser removes a user directly; used to simulate sessions that
// outlive their user.
func (f *FakeStorage) DeleteUser(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.usersByID[id]; ok {
		delete(f.usersByEmail, u.Email)
		delete(f.usersByID, id)
	}
}

// PromoteToAdmin flips a user's role; review accounts are provisioned
// out-of-band in production.
func (f *FakeStorage) PromoteToAdmin(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.usersByID[id]; ok {
		u.Role = RoleAdmin
	}
}

func (f *FakeStorage) CreateSession(_ context.Context, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionErr != nil {
		return f.SessionErr
	}
	cp := *s
	f.sessions[s.TokenHash] = &cp
	return nil
}

func (f *FakeStorage) GetSessionByHash(_ context.Context, tokenHash string) (*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.SessionErr != nil {
		return nil, f.SessionErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeStorage) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionErr != nil {
		return f.SessionErr
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeStorage) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for k, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorage) DeleteExpiredSessions(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for k, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

// ExpireSession rewinds a session's expiry; lets tests cross the seven-day
// boundary without waiting.
func (f *FakeStorage) ExpireSession(tokenHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[tokenHash]; ok {
		s.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}
}

func (f *FakeStorage) SessionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}

func (f *FakeStorage) CreateApplication(_ context.Context, app *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplicationErr != nil {
		return f.ApplicationErr
	}
	cp := *app
	f.applications[app.ID] = &cp
	f.appOrder = append(f.appOrder, app.ID)
	return nil
}

func (f *FakeStorage) GetApplicationByID(_ context.Context, id string) (*Application, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.ApplicationErr != nil {
		return nil, f.ApplicationErr
	}
	app, ok := f.applications[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (f *FakeStorage) ListApplicationsByUser(_ context.Context, userID string) ([]*Application, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var apps []*Application
	for _, id := range f.appOrder {
		if app, ok := f.applications[id]; ok && app.UserID == userID {
			cp := *app
			apps = append(apps, &cp)
		}
	}
	return apps, nil
}

func (f *FakeStorage) ListApplications(_ context.Context) ([]*Application, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var apps []*Application
	for _, id := range f.appOrder {
		if app, ok := f.applications[id]; ok {
			cp := *app
			apps = append(apps, &cp)
		}
	}
	return apps, nil
}

func (f *FakeStorage) ReplaceApplication(_ context.Context, app *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplicationErr != nil {
		return f.ApplicationErr
	}
	if _, ok := f.applications[app.ID]; !ok {
		return ErrApplicationNotFound
	}
	cp := *app
	f.applications[app.ID] = &cp
	return nil
}

// FakeNotifier records dispatched intents for assertions.
type FakeNotifier struct {
	mu         sync.Mutex
	Approvals  []*Application
	Rejections []*Application
	Notes      []string
	Err        error

	fired chan struct{}
}

var _ Notifier = (*FakeNotifier)(nil)

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{fired: make(chan struct{}, 16)}
}

func (f *FakeNotifier) NotifyApproval(_ context.Context, app *Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Approvals = append(f.Approvals, app)
	f.fired <- struct{}{}
	return nil
}

func (f *FakeNotifier) NotifyRejection(_ context.Context, app *Application, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Rejections = append(f.Rejections, app)
	f.Notes = append(f.Notes, notes)
	f.fired <- struct{}{}
	return nil
}

// WaitForDispatch blocks until one detached notification lands or the
// timeout passes. Returns false on timeout.
func (f *FakeNotifier) WaitForDispatch(timeout time.Duration) bool {
	select {
	case <-f.fired:
		return true
	case <-time.After(timeout):
		return false
	}
}

// FakeIdentityProvider returns a canned identity or an injected error.
type FakeIdentityProvider struct {
	Identity *ExternalIdentity
	Err      error

	LastSessionID string
}

var _ IdentityProvider = (*FakeIdentityProvider)(nil)

func (f *FakeIdentityProvider) Exchange(_ context.Context, externalSessionID string) (*ExternalIdentity, error) {
	f.LastSessionID = externalSessionID
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Identity, nil
}
