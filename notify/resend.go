// Package notify delivers application decision emails through the Resend
// HTTP API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/meowls/evisa/core"
)

const DefaultBaseURL = "https://api.resend.com"

var approvalBody = template.Must(template.New("approval").Parse(`<p>Dear {{.Name}},</p>
<p>Your {{.VisaType}} visa application <strong>{{.ApplicationID}}</strong> has been <strong>approved</strong>.</p>
<p>You will receive your travel authorization shortly.</p>`))

var rejectionBody = template.Must(template.New("rejection").Parse(`<p>Dear {{.Name}},</p>
<p>We regret to inform you that your {{.VisaType}} visa application <strong>{{.ApplicationID}}</strong> has been <strong>rejected</strong>.</p>
{{if .Notes}}<p>Reason: {{.Notes}}</p>{{end}}
<p>You may submit a new application addressing the issues above.</p>`))

type emailContext struct {
	Name          string
	VisaType      string
	ApplicationID string
	Notes         string
}

// Mailer sends decision notifications via Resend.
type Mailer struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

var _ core.Notifier = (*Mailer)(nil)

func NewMailer(apiKey, sender string, httpClient *http.Client) *Mailer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Mailer{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		sender:     sender,
		httpClient: httpClient,
	}
}

// WithBaseURL points the mailer at a different API host.
func (m *Mailer) WithBaseURL(baseURL string) *Mailer {
	m.baseURL = baseURL
	return m
}

func (m *Mailer) NotifyApproval(ctx context.Context, app *core.Application) error {
	subject := "Your visa application has been approved"
	return m.send(ctx, app, subject, approvalBody, "")
}

func (m *Mailer) NotifyRejection(ctx context.Context, app *core.Application, notes string) error {
	subject := "Update on your visa application"
	return m.send(ctx, app, subject, rejectionBody, notes)
}

func (m *Mailer) send(ctx context.Context, app *core.Application, subject string, body *template.Template, notes string) error {
	recipient := recipientFor(app)
	if recipient == "" {
		return fmt.Errorf("application %s has no contact email", app.ID)
	}

	var html bytes.Buffer
	err := body.Execute(&html, emailContext{
		Name:          applicantName(app),
		VisaType:      app.VisaType,
		ApplicationID: app.ID,
		Notes:         notes,
	})
	if err != nil {
		return fmt.Errorf("render email body: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"from":    m.sender,
		"to":      []string{recipient},
		"subject": subject,
		"html":    html.String(),
	})
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}

// recipientFor pulls the contact address out of the applicant-supplied
// personal details.
func recipientFor(app *core.Application) string {
	if app.PersonalInfo == nil {
		return ""
	}
	email, _ := app.PersonalInfo["email"].(string)
	return email
}

func applicantName(app *core.Application) string {
	if app.PersonalInfo != nil {
		if name, ok := app.PersonalInfo["full_name"].(string); ok && name != "" {
			return name
		}
	}
	return "Applicant"
}
