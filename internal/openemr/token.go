package openemr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clinicdesk-ai/clinicdesk/internal/observability/metrics"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// DefaultScopes covers the read-only resources the engine touches.
const DefaultScopes = "openid api:oemr " +
	"system/Appointment.read " +
	"system/Encounter.read " +
	"system/Patient.read"

// tokenRefreshMargin is the remaining lifetime below which a cached
// credential is treated as unusable and proactively replaced, so a token is
// never presented so close to expiry that network latency pushes the request
// past server-side expiry.
const tokenRefreshMargin = 60 * time.Second

const defaultTokenLifetime = 3600 // seconds, when the server omits expires_in

// Credential is a bearer token with its absolute expiry.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string // optional for public clients
	Username     string
	Password     string
	Scopes       string
	Timeout      time.Duration

	Logger  *logging.Logger
	Metrics *metrics.ClientMetrics
	Now     func() time.Time
}

// TokenManager owns the bearer credential for one OpenEMR deployment. It
// re-authenticates lazily when the credential is absent, invalidated, or
// inside its refresh margin. Concurrent callers share a single in-flight
// password-grant exchange.
type TokenManager struct {
	baseURL      string
	clientID     string
	clientSecret string
	username     string
	password     string
	scopes       string

	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.ClientMetrics
	now        func() time.Time

	mu    sync.RWMutex
	cred  Credential
	group singleflight.Group
}

// NewTokenManager validates the configuration and returns a manager with no
// credential; the first EnsureValid call authenticates.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("openemr: BaseURL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("openemr: ClientID is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("openemr: Username and Password are required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	scopes := cfg.Scopes
	if scopes == "" {
		scopes = DefaultScopes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		scopes:       scopes,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		metrics:      cfg.Metrics,
		now:          now,
	}, nil
}

// EnsureValid returns the cached credential while it has more than the
// refresh margin of lifetime left, and authenticates otherwise. A burst of
// concurrent callers observing a stale credential triggers one exchange.
func (m *TokenManager) EnsureValid(ctx context.Context) (Credential, error) {
	m.mu.RLock()
	cred := m.cred
	m.mu.RUnlock()
	if m.usable(cred) {
		return cred, nil
	}

	v, err, _ := m.group.Do("authenticate", func() (any, error) {
		// A caller that queued behind the winning exchange sees the fresh
		// credential here instead of starting another round-trip.
		m.mu.RLock()
		cred := m.cred
		m.mu.RUnlock()
		if m.usable(cred) {
			return cred, nil
		}
		return m.Authenticate(ctx)
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Invalidate clears the cached credential, forcing the next EnsureValid to
// re-authenticate. The transport calls this after observing a 401.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cred = Credential{}
	m.mu.Unlock()
}

// Authenticate performs the OAuth2 password-grant exchange unconditionally
// and stores the resulting credential. Callers must not retry on failure;
// retry policy belongs to the transport.
func (m *TokenManager) Authenticate(ctx context.Context) (Credential, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("username", m.username)
	data.Set("password", m.password)
	data.Set("client_id", m.clientID)
	data.Set("scope", m.scopes)
	if m.clientSecret != "" {
		data.Set("client_secret", m.clientSecret)
	}

	tokenURL := m.baseURL + "/oauth2/default/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("openemr: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.ObserveTokenExchange("error")
		return Credential{}, classifyTransportError("/oauth2/default/token", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		m.metrics.ObserveTokenExchange("error")
		return Credential{}, fmt.Errorf("openemr: read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		m.metrics.ObserveTokenExchange("error")
		m.logger.Error("OAuth2 token request failed",
			"status", resp.StatusCode,
			"body", string(body),
		)
		m.Invalidate()
		return Credential{}, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		m.metrics.ObserveTokenExchange("error")
		return Credential{}, fmt.Errorf("openemr: decode token response: %w", err)
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}
	cred := Credential{
		AccessToken: payload.AccessToken,
		Expiry:      m.now().Add(time.Duration(expiresIn) * time.Second),
	}

	// Token and expiry are written together so readers never observe a
	// credential assembled from two different exchanges.
	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()

	m.metrics.ObserveTokenExchange("ok")
	m.logger.Info("authenticated with OpenEMR", "expires_in", expiresIn)
	return cred, nil
}

func (m *TokenManager) usable(cred Credential) bool {
	return cred.AccessToken != "" && m.now().Add(tokenRefreshMargin).Before(cred.Expiry)
}
