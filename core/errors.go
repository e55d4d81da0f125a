package core

import "errors"

// Account errors
var (
	ErrEmailRegistered    = errors.New("email already registered")  // 400 per the public contract
	ErrUserNotFound       = errors.New("user not found")            // 404
	ErrInvalidCredentials = errors.New("invalid email or password") // 401
	ErrUnauthenticated    = errors.New("not authenticated")         // 401
)

// Session errors
var (
	ErrInvalidToken    = errors.New("invalid session token") // 401
	ErrSessionNotFound = errors.New("session not found")     // 401
	ErrSessionExpired  = errors.New("session expired")       // 401
	ErrCacheNotFound   = errors.New("session not found in cache")
)

// Authorization errors
var (
	ErrRoleRequired = errors.New("admin access required") // 403
	ErrNotOwner     = errors.New("access denied")         // 403
)

// Application errors
var (
	ErrApplicationNotFound = errors.New("application not found") // 404
	ErrInvalidStatus       = errors.New("invalid status value")  // 400
)

// Validation errors (client input)
var (
	ErrEmailRequired    = errors.New("email is required")    // 400
	ErrPasswordRequired = errors.New("password is required") // 400
	ErrNameRequired     = errors.New("name is required")     // 400
)

// Collaborator errors
var (
	ErrIdentityExchange = errors.New("identity exchange failed") // 400
)
