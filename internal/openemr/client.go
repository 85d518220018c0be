package openemr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicdesk-ai/clinicdesk/internal/observability/metrics"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// maxAuthRetries bounds how many times a request is replayed after a 401.
// Exactly one retry: a second consecutive 401 means the credential is not
// the problem and the failure must surface.
const maxAuthRetries = 1

// Config configures a Client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scopes       string
	Timeout      time.Duration

	Logger  *logging.Logger
	Metrics *metrics.ClientMetrics
}

// Client performs authenticated calls against the OpenEMR REST API. It
// attaches the current bearer credential to every request and transparently
// recovers from one authorization failure per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	logger     *logging.Logger
	metrics    *metrics.ClientMetrics
	tracer     trace.Tracer
}

// New creates an OpenEMR API client and its token manager.
func New(cfg Config) (*Client, error) {
	tokens, err := NewTokenManager(TokenConfig{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Scopes:       cfg.Scopes,
		Timeout:      cfg.Timeout,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer("clinicdesk/openemr"),
	}, nil
}

// Tokens exposes the token manager; the registration CLI and tests use it.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// Get sends an authenticated GET request and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post sends an authenticated POST request with a JSON body and returns the
// raw JSON response body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openemr: marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

// do issues the request with a fresh-enough credential. The 401 recovery is
// an explicit bounded loop: invalidate, re-authenticate via EnsureValid, and
// replay the identical request at most maxAuthRetries times.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		cred, err := c.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("openemr: create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		status, body, err := c.send(ctx, req, method, path)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized && attempt < maxAuthRetries {
			c.logger.Warn("got 401, re-authenticating and retrying",
				"method", method,
				"path", path,
			)
			c.tokens.Invalidate()
			c.metrics.ObserveAuthRetry()
			continue
		}
		if status < 200 || status > 299 {
			return nil, &APIError{StatusCode: status, Path: path, Body: string(body)}
		}
		return json.RawMessage(body), nil
	}
}

func (c *Client) send(ctx context.Context, req *http.Request, method, path string) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "openemr."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		classified := classifyTransportError(path, err)
		span.RecordError(classified)
		span.SetStatus(codes.Error, classified.Error())
		var timeoutErr *TimeoutError
		status := "error"
		if errors.As(classified, &timeoutErr) {
			status = "timeout"
		}
		c.metrics.ObserveRequest(method, normalizeEndpoint(path), status, time.Since(start).Seconds())
		return 0, nil, classified
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("openemr: read response from %s: %w", path, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.metrics.ObserveRequest(method, normalizeEndpoint(path), strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	return resp.StatusCode, body, nil
}

// normalizeEndpoint collapses numeric path segments so per-patient URLs do
// not explode metric label cardinality.
func normalizeEndpoint(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if _, err := strconv.Atoi(segment); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
