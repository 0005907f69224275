// seed inserts a development client registration for local testing.
// Idempotent: skips when the dev client already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	clientrepo "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/repository"
	clientservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/config"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/db"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/security"
)

const (
	devClientID     = "dev-client-001"
	devClientSecret = "secret123"
	devPassCode     = "passcode123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer database.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clients := clientservice.NewTokenService(
		clientrepo.NewPostgresRepository(database),
		security.NewHasher(cfg.BcryptCost),
		security.NewClientTokenProvider("easey-auth", cfg.TokenTTL()),
		logger,
	)

	if _, err := clients.RegisterClient(ctx, devClientID, devClientSecret, devPassCode); err != nil {
		if errors.Is(err, clientservice.ErrClientExists) {
			fmt.Printf("Seed already applied (%s exists). Skipping.\n", devClientID)
			return
		}
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded client registration %s\n", devClientID)
}
