// Command register-client performs the one-time OAuth2 client registration
// against an OpenEMR instance and prints the resulting credentials. Run it
// once per environment and put the output in OPENEMR_CLIENT_ID and
// OPENEMR_CLIENT_SECRET.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicdesk-ai/clinicdesk/internal/config"
	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	baseURL := flag.String("base-url", cfg.OpenEMRBaseURL, "OpenEMR base URL")
	clientName := flag.String("name", openemr.DefaultClientName, "client name to register")
	scopes := flag.String("scopes", cfg.OpenEMRScopes, "space-separated OAuth2 scopes")
	redirect := flag.String("redirect-uris", "https://localhost", "comma-separated redirect URIs")
	timeout := flag.Duration("timeout", 30*time.Second, "registration request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reg, err := openemr.RegisterClient(ctx, *baseURL, openemr.RegistrationRequest{
		ClientName:   *clientName,
		RedirectURIs: strings.Split(*redirect, ","),
		Scopes:       *scopes,
		Timeout:      *timeout,
	})
	if err != nil {
		log.Fatalf("registration failed: %v", err)
	}

	fmt.Printf("client_name:   %s\n", reg.ClientName)
	fmt.Printf("client_id:     %s\n", reg.ClientID)
	fmt.Printf("client_secret: %s\n", reg.ClientSecret)
}
