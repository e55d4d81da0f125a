package fiber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/meowls/evisa/core"
)

type testEnv struct {
	app     *fiber.App
	storage *core.FakeStorage
	mailer  *core.FakeNotifier
	idp     *core.FakeIdentityProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage := core.NewFakeStorage()
	mailer := core.NewFakeNotifier()
	idp := &core.FakeIdentityProvider{}

	sessions := core.NewSessionManager(
		core.DefaultSessionMaxAge,
		storage,
		core.NewInMemoryCache(core.CacheConfig{}),
	)
	auth := core.NewAuthService(storage, sessions, core.NewArgon2(), idp, nil, nil)
	applications := core.NewApplicationService(storage, mailer, nil, nil)

	app := fiber.New()
	New(app, auth, applications, "/api", core.DefaultSessionMaxAge).RegisterRoutes()

	return &testEnv{app: app, storage: storage, mailer: mailer, idp: idp}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// register creates an account through the HTTP surface and returns the
// user ID and session token.
func (e *testEnv) register(t *testing.T, email, name string) (string, string) {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
		"name":     name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register %s: status = %d, want %d", email, resp.StatusCode, http.StatusOK)
	}

	token := sessionCookieValue(resp)
	if token == "" {
		t.Fatalf("register %s: no session cookie set", email)
	}

	var user core.User
	decodeJSON(t, resp, &user)
	return user.ID, token
}

func sessionCookieValue(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

// Requirement: The full applicant workflow works end to end across the HTTP
// surface: register, create, submit, admin decision, and the owner sees the
// updated status.
func TestWorkflow_SubmitAndApprove(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, userToken := env.register(t, "applicant@example.com", "Applicant")
	adminID, adminToken := env.register(t, "admin@example.com", "Admin")
	env.storage.PromoteToAdmin(adminID)

	// Act: create a draft application
	resp := env.do(t, http.MethodPost, "/api/applications", userToken, map[string]any{
		"visa_type":     "tourist",
		"personal_info": map[string]any{"email": "applicant@example.com", "full_name": "Applicant"},
		"travel_details": map[string]any{
			"arrival_date": "2026-10-01",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create application: status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created core.Application
	decodeJSON(t, resp, &created)

	// Assert: new applications start as drafts
	if created.Status != core.StatusDraft {
		t.Errorf("created status = %q, want %q", created.Status, core.StatusDraft)
	}

	// Act: submit
	resp = env.do(t, http.MethodPost, "/api/applications/"+created.ID+"/submit", userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Act: admin approves
	resp = env.do(t, http.MethodPut, "/api/admin/applications/"+created.ID+"/status", adminToken, map[string]string{
		"status":      "approved",
		"admin_notes": "all documents in order",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set status: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Assert: owner sees the decision
	resp = env.do(t, http.MethodGet, "/api/applications/"+created.ID, userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get application: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var final core.Application
	decodeJSON(t, resp, &final)
	if final.Status != core.StatusApproved {
		t.Errorf("final status = %q, want %q", final.Status, core.StatusApproved)
	}
	if final.AdminNotes == nil || *final.AdminNotes != "all documents in order" {
		t.Errorf("admin notes = %v, want recorded notes", final.AdminNotes)
	}
	if !final.UpdatedAt.After(final.CreatedAt) {
		t.Errorf("updated_at %v should be after created_at %v", final.UpdatedAt, final.CreatedAt)
	}

	// Assert: approval email dispatch fired
	if !env.mailer.WaitForDispatch(2 * time.Second) {
		t.Errorf("expected an approval notification dispatch")
	}
}

// Requirement: Admins list every user's applications; regular users are
// refused the admin listing but see their own.
func TestListScoping(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, aliceToken := env.register(t, "alice@example.com", "Alice")
	_, bobToken := env.register(t, "bob@example.com", "Bob")
	adminID, adminToken := env.register(t, "root@example.com", "Root")
	env.storage.PromoteToAdmin(adminID)

	for i, token := range []string{aliceToken, bobToken} {
		resp := env.do(t, http.MethodPost, "/api/applications", token, map[string]any{
			"visa_type": fmt.Sprintf("type-%d", i),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create application %d: status = %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	var listing struct {
		Applications []core.Application `json:"applications"`
	}

	// Act + Assert: admin listing spans both users
	resp := env.do(t, http.MethodGet, "/api/admin/applications", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	decodeJSON(t, resp, &listing)
	if len(listing.Applications) != 2 {
		t.Errorf("admin list returned %d applications, want 2", len(listing.Applications))
	}

	// Act + Assert: a regular user is refused the admin listing
	resp = env.do(t, http.MethodGet, "/api/admin/applications", aliceToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin list as user: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	resp.Body.Close()

	// Act + Assert: the scoped listing shows only the caller's own work
	resp = env.do(t, http.MethodGet, "/api/applications", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user list: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	decodeJSON(t, resp, &listing)
	if len(listing.Applications) != 1 {
		t.Errorf("user list returned %d applications, want 1", len(listing.Applications))
	}
}

// Requirement: One user cannot read or modify another user's application.
func TestOwnership_CrossUserAccessDenied(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, aliceToken := env.register(t, "alice@example.com", "Alice")
	_, bobToken := env.register(t, "bob@example.com", "Bob")

	resp := env.do(t, http.MethodPost, "/api/applications", aliceToken, map[string]any{
		"visa_type": "student",
	})
	var app core.Application
	decodeJSON(t, resp, &app)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"read", http.MethodGet, "/api/applications/" + app.ID, nil},
		{"update", http.MethodPut, "/api/applications/" + app.ID, map[string]any{"visa_type": "work"}},
		{"submit", http.MethodPost, "/api/applications/" + app.ID + "/submit", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, test.method, test.path, bobToken, test.body)
			defer resp.Body.Close()

			// Assert
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
			}
		})
	}
}

// Requirement: The session token is honored from the cookie and from the
// Authorization header; the cookie takes precedence.
func TestAuthChannels(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, token := env.register(t, "user@example.com", "User")

	t.Run("bearer token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		resp, err := env.app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
		req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-real-token")

		resp, err := env.app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})
}

// Requirement: Logging out revokes the session, clears the cookie, and
// repeating the logout still succeeds.
func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, token := env.register(t, "user@example.com", "User")

	// Act
	resp := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Assert: the token no longer authenticates
	resp = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()

	// Assert: logging out again with the dead token still succeeds
	resp = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second logout: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Assert: logout without any token also succeeds
	resp = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("anonymous logout: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
}

// Requirement: Logging out everywhere revokes every session the principal
// holds, including the one making the call.
func TestLogoutAll_RevokesEverySession(t *testing.T) {
	// Arrange: two live sessions for the same user
	env := newTestEnv(t)
	_, firstToken := env.register(t, "user@example.com", "User")

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "correct-horse-battery",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	secondToken := sessionCookieValue(resp)
	resp.Body.Close()

	// Act
	resp = env.do(t, http.MethodPost, "/api/auth/logout-all", firstToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout-all: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Revoked int `json:"revoked"`
	}
	decodeJSON(t, resp, &body)

	// Assert
	if body.Revoked != 2 {
		t.Errorf("revoked = %d, want 2", body.Revoked)
	}
	for _, token := range []string{firstToken, secondToken} {
		resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("me after logout-all: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
		resp.Body.Close()
	}

	// Assert: an anonymous caller is refused
	resp = env.do(t, http.MethodPost, "/api/auth/logout-all", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous logout-all: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()
}

// Requirement: Duplicate registration reports a client error; a bad login
// reports unauthorized.
func TestAuthFailures(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.register(t, "taken@example.com", "First")

	t.Run("duplicate email", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    "taken@example.com",
			"password": "another-password",
			"name":     "Second",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "taken@example.com",
			"password": "wrong",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "whatever",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})
}

// Requirement: Exchanging an external session id signs the user in with the
// provider-issued token bound verbatim.
func TestExchangeSession(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	picture := "https://cdn.example.com/avatar.png"
	env.idp.Identity = &core.ExternalIdentity{
		Email:        "sso@example.com",
		Name:         "SSO User",
		Picture:      &picture,
		SessionToken: "provider-issued-token",
	}

	// Act
	resp := env.do(t, http.MethodPost, "/api/auth/session", "", map[string]string{
		"session_id": "ext-session-abc",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("exchange: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Assert: the cookie carries the provider token untouched
	if got := sessionCookieValue(resp); got != "provider-issued-token" {
		t.Errorf("cookie token = %q, want provider token", got)
	}
	var user core.User
	decodeJSON(t, resp, &user)
	if user.Email != "sso@example.com" {
		t.Errorf("user email = %q, want %q", user.Email, "sso@example.com")
	}

	// Assert: the provider token authenticates like any other session
	resp = env.do(t, http.MethodGet, "/api/auth/me", "provider-issued-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("me with provider token: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Assert: replaying the callback (same session id, same provider token)
	// succeeds instead of failing on the already-bound session
	resp = env.do(t, http.MethodPost, "/api/auth/session", "", map[string]string{
		"session_id": "ext-session-abc",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeated exchange: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

// Requirement: Document upload stores the file under its label, defaulting
// to passport, and overwrites an existing document with the same label.
func TestUploadDocument(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, token := env.register(t, "user@example.com", "User")

	resp := env.do(t, http.MethodPost, "/api/applications", token, map[string]any{
		"visa_type": "tourist",
	})
	var app core.Application
	decodeJSON(t, resp, &app)

	upload := func(t *testing.T, docType, filename, contents string) *http.Response {
		t.Helper()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if docType != "" {
			if err := writer.WriteField("doc_type", docType); err != nil {
				t.Fatalf("write doc_type field: %v", err)
			}
		}
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader(contents)); err != nil {
			t.Fatalf("write file contents: %v", err)
		}
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/applications/"+app.ID+"/documents", &buf)
		req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := env.app.Test(req)
		if err != nil {
			t.Fatalf("upload request failed: %v", err)
		}
		return resp
	}

	// Act: upload without a doc_type, then overwrite it
	resp = upload(t, "", "scan-v1.pdf", "first version")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first upload: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp = upload(t, "passport", "scan-v2.pdf", "second version")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second upload: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// Assert
	resp = env.do(t, http.MethodGet, "/api/applications/"+app.ID, token, nil)
	var got core.Application
	decodeJSON(t, resp, &got)

	doc, ok := got.Documents["passport"]
	if !ok {
		t.Fatalf("documents = %v, want a passport entry", got.Documents)
	}
	if doc.Filename != "scan-v2.pdf" {
		t.Errorf("filename = %q, want the overwritten upload", doc.Filename)
	}
}

// Requirement: An invalid status value is refused with a client error.
func TestSetStatus_InvalidValue(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, userToken := env.register(t, "user@example.com", "User")
	adminID, adminToken := env.register(t, "admin@example.com", "Admin")
	env.storage.PromoteToAdmin(adminID)

	resp := env.do(t, http.MethodPost, "/api/applications", userToken, map[string]any{
		"visa_type": "tourist",
	})
	var app core.Application
	decodeJSON(t, resp, &app)

	// Act
	resp = env.do(t, http.MethodPut, "/api/admin/applications/"+app.ID+"/status", adminToken, map[string]string{
		"status": "banana",
	})
	defer resp.Body.Close()

	// Assert
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// Requirement: Unknown application ids report not found.
func TestGetApplication_NotFound(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	_, token := env.register(t, "user@example.com", "User")

	// Act
	resp := env.do(t, http.MethodGet, "/api/applications/app_missing000", token, nil)
	defer resp.Body.Close()

	// Assert
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
