package openemr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock lets tests move through a token's lifetime without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTokenServer(t *testing.T, exchanges *atomic.Int64, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/default/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "password" {
			t.Errorf("expected password grant, got %q", got)
		}
		if got := r.PostForm.Get("username"); got != "admin" {
			t.Errorf("unexpected username %q", got)
		}
		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"access_token": "token-" + string(rune('a'+n-1)),
			"token_type":   "Bearer",
		}
		if expiresIn > 0 {
			payload["expires_in"] = expiresIn
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func newTestManager(t *testing.T, baseURL string, now func() time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{
		BaseURL:  baseURL,
		ClientID: "test-client",
		Username: "admin",
		Password: "pass",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestNewTokenManagerValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TokenConfig
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: TokenConfig{
				BaseURL:  "http://openemr",
				ClientID: "client",
				Username: "admin",
				Password: "pass",
			},
		},
		{
			name:    "missing base URL",
			cfg:     TokenConfig{ClientID: "client", Username: "admin", Password: "pass"},
			wantErr: true,
		},
		{
			name:    "missing client ID",
			cfg:     TokenConfig{BaseURL: "http://openemr", Username: "admin", Password: "pass"},
			wantErr: true,
		},
		{
			name:    "missing password",
			cfg:     TokenConfig{BaseURL: "http://openemr", ClientID: "client", Username: "admin"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenManager(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnsureValidReusesFreshCredential(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, 3600)
	defer server.Close()

	m := newTestManager(t, server.URL, nil)
	ctx := context.Background()

	first, err := m.EnsureValid(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.EnsureValid(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exchanges.Load() != 1 {
		t.Fatalf("expected 1 exchange, got %d", exchanges.Load())
	}
	if first.AccessToken != second.AccessToken {
		t.Fatalf("expected cached credential, got %q then %q", first.AccessToken, second.AccessToken)
	}
}

func TestEnsureValidRefreshesInsideMargin(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, 3600)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, server.URL, clock.Now)
	ctx := context.Background()

	if _, err := m.EnsureValid(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 30 seconds of lifetime left: inside the 60s refresh margin.
	clock.Advance(3570 * time.Second)
	if _, err := m.EnsureValid(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exchanges.Load() != 2 {
		t.Fatalf("expected refresh inside margin, got %d exchanges", exchanges.Load())
	}
}

func TestEnsureValidDefaultsLifetime(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, 0) // expires_in omitted
	defer server.Close()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, server.URL, clock.Now)

	cred, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := clock.Now().Add(defaultTokenLifetime * time.Second)
	if !cred.Expiry.Equal(want) {
		t.Fatalf("expected default lifetime expiry %v, got %v", want, cred.Expiry)
	}
}

func TestInvalidateForcesReauth(t *testing.T) {
	var exchanges atomic.Int64
	server := newTokenServer(t, &exchanges, 3600)
	defer server.Close()

	m := newTestManager(t, server.URL, nil)
	ctx := context.Background()

	if _, err := m.EnsureValid(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Invalidate()
	if _, err := m.EnsureValid(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exchanges.Load() != 2 {
		t.Fatalf("expected re-auth after invalidate, got %d exchanges", exchanges.Load())
	}
}

func TestAuthenticateFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	m := newTestManager(t, server.URL, nil)
	_, err := m.EnsureValid(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if authErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", authErr.StatusCode)
	}
}

func TestConcurrentEnsureValidSingleExchange(t *testing.T) {
	var exchanges atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "shared-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	m := newTestManager(t, server.URL, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.EnsureValid(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	if exchanges.Load() != 1 {
		t.Fatalf("expected a single shared exchange, got %d", exchanges.Load())
	}
}
