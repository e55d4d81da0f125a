package core

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes applicants from reviewers.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status is the application lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User represents an applicant or administrator account.
//
// This is the "identity" - who someone is. PasswordHash is absent for
// externally-authenticated identities and never leaves the service.
type User struct {
	ID           string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	Picture      *string   `json:"picture,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents an active login. The token itself is an opaque bearer
// capability; only its hash is kept at rest.
type Session struct {
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is stored blob metadata plus the base64-encoded content.
// Contents are opaque to the service.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// Application is a visa application owned by a single user.
type Application struct {
	ID            string              `json:"application_id"`
	UserID        string              `json:"user_id"`
	VisaType      string              `json:"visa_type"`
	Status        Status              `json:"status"`
	PersonalInfo  map[string]any      `json:"personal_info"`
	TravelDetails map[string]any      `json:"travel_details"`
	Documents     map[string]Document `json:"documents"`
	AdminNotes    *string             `json:"admin_notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:])[:12]
}

// NewUserID returns a fresh user identifier, e.g. "user_3f2a9c81d04e".
func NewUserID() string { return newID("user") }

// NewApplicationID returns a fresh application identifier, e.g. "app_5b01ee72c9da".
func NewApplicationID() string { return newID("app") }
