package openemr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultClientName identifies this system when registering with OpenEMR.
const DefaultClientName = "clinicdesk-scheduling-agent"

// RegistrationRequest describes a one-time OAuth2 dynamic client
// registration. Zero values take the package defaults.
type RegistrationRequest struct {
	ClientName   string
	RedirectURIs []string
	Scopes       string
	Timeout      time.Duration
}

// Registration is the server's answer to a client registration.
type Registration struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ClientName   string `json:"client_name"`
}

// RegisterClient registers a new OAuth2 client with OpenEMR. This is a
// first-run setup operation, not part of the steady-state request path, so
// it uses its own unauthenticated HTTP client.
func RegisterClient(ctx context.Context, baseURL string, req RegistrationRequest) (*Registration, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("openemr: BaseURL is required")
	}

	clientName := req.ClientName
	if clientName == "" {
		clientName = DefaultClientName
	}
	redirectURIs := req.RedirectURIs
	if len(redirectURIs) == 0 {
		redirectURIs = []string{"https://localhost"}
	}
	scopes := req.Scopes
	if scopes == "" {
		scopes = DefaultScopes
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	payload, err := json.Marshal(map[string]any{
		"application_type": "private",
		"client_name":      clientName,
		"redirect_uris":    redirectURIs,
		"scope":            scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("openemr: marshal registration request: %w", err)
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + "/oauth2/default/registration"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openemr: create registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError("/oauth2/default/registration", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openemr: read registration response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reg Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, fmt.Errorf("openemr: decode registration response: %w", err)
	}
	return &reg, nil
}
