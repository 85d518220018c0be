package openemr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterClient(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/default/registration" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"client_id":     "issued-id",
			"client_secret": "issued-secret",
			"client_name":   gotPayload["client_name"],
		})
	}))
	defer server.Close()

	reg, err := RegisterClient(context.Background(), server.URL, RegistrationRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.ClientID != "issued-id" || reg.ClientSecret != "issued-secret" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if gotPayload["application_type"] != "private" {
		t.Fatalf("expected private application type, got %v", gotPayload["application_type"])
	}
	if gotPayload["client_name"] != DefaultClientName {
		t.Fatalf("expected default client name, got %v", gotPayload["client_name"])
	}
	uris, ok := gotPayload["redirect_uris"].([]any)
	if !ok || len(uris) != 1 || uris[0] != "https://localhost" {
		t.Fatalf("expected default redirect URIs, got %v", gotPayload["redirect_uris"])
	}
}

func TestRegisterClientRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "registration disabled", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := RegisterClient(context.Background(), server.URL, RegistrationRequest{ClientName: "custom"})
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

func TestRegisterClientRequiresBaseURL(t *testing.T) {
	if _, err := RegisterClient(context.Background(), "", RegistrationRequest{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
