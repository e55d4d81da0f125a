// Package identity exchanges externally-issued session ids for verified
// user identities via an HTTP identity provider.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"

	"github.com/meowls/evisa/core"
)

const sessionIDHeader = "X-Session-ID"

// Client calls an external identity provider over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ core.IdentityProvider = (*Client)(nil)

// New builds a Client talking to the given endpoint. When httpClient is
// nil an SSRF-guarded client is used.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewSafeClient(10 * time.Second)
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// NewSafeClient builds an HTTP client that refuses requests to private,
// loopback, link-local, and metadata addresses. safeurl validates the
// resolved IP in the dialer, which also covers DNS rebinding.
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// Exchange presents the external session id to the provider and returns
// the identity the provider vouches for.
func (c *Client) Exchange(ctx context.Context, externalSessionID string) (*core.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set(sessionIDHeader, externalSessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		Email        string  `json:"email"`
		Name         string  `json:"name"`
		Picture      *string `json:"picture"`
		SessionToken string  `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}

	if payload.Email == "" || payload.SessionToken == "" {
		return nil, fmt.Errorf("identity provider response missing email or session_token")
	}

	return &core.ExternalIdentity{
		Email:        payload.Email,
		Name:         payload.Name,
		Picture:      payload.Picture,
		SessionToken: payload.SessionToken,
	}, nil
}
