package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/cdx"
	clientrepo "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/repository"
	clientservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/config"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/db"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/facilities"
	identityservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/identity/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/logctx"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/oidc"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/security"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/server"
	sessionrepo "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/repository"
	sessionservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
)

const tokenIssuer = "easey-auth"

// mockFacilities is the fixed permission set attached to sessions when mock
// permissions are enabled outside production.
var mockFacilities = []facilities.Facility{
	{FacilityID: 1, OrisCode: 3, Name: "Barry", Roles: []string{"Preparer", "Submitter"}},
	{FacilityID: 2, OrisCode: 5, Name: "Chickasaw", Roles: []string{"Preparer"}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(logctx.Handler{Handler: slog.NewJSONHandler(os.Stdout, nil)})
	slog.SetDefault(logger)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	bypass := cfg.BypassActive()

	var naas *cdx.NAASClient
	var codec token.Codec
	if bypass {
		codec = token.NewLocalCodec()
	} else {
		naas = cdx.NewNAASClient(cfg.NAASEndpoint, cfg.NAASAppID, cfg.NAASAppSecret, cfg.Timeout())
		codec = token.NewDelegatedCodec(naas)
	}

	register := cdx.NewRegisterClient(cfg.CDXPolicyEndpoint, cfg.Timeout())
	var facs facilities.Provider = register
	if cfg.MockPermissionsActive() {
		facs = &facilities.MockProvider{Facilities: mockFacilities}
	}

	sessions := sessionservice.NewManager(
		sessionrepo.NewPostgresRepository(database), codec, facs, cfg.TokenTTL(), logger)

	var verifier identityservice.IdentityVerifier
	var tokenSource identityservice.ServiceTokenSource
	var policy identityservice.PolicyService
	if !bypass {
		verifier = naas
		tokenSource = naas
		policy = policyAdapter{register}
	}
	auth := identityservice.NewAuthService(sessions, codec, verifier, tokenSource, policy,
		identityservice.BypassSettings{
			Enabled:  bypass,
			Users:    cfg.BypassUserList(),
			Password: cfg.BypassPassword,
		}, logger)

	clientTokens := clientservice.NewTokenService(
		clientrepo.NewPostgresRepository(database),
		security.NewHasher(cfg.BcryptCost),
		security.NewClientTokenProvider(tokenIssuer, cfg.TokenTTL()),
		logger)

	router := server.NewRouter(server.Deps{
		Logger:       logger,
		Auth:         auth,
		Sessions:     sessions,
		Codec:        codec,
		ClientTokens: clientTokens,
		State:        oidc.NewStateProtocol(cfg.OIDCHMACSecret, cfg.StateMaxAge()),
		HealthPinger: database,
		Metrics:      server.NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "bypass", bypass)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("http server stopped")
}

// policyAdapter bridges the CDX register client onto the auth service's
// policy interface.
type policyAdapter struct {
	client *cdx.RegisterClient
}

func (a policyAdapter) DeterminePolicy(ctx context.Context, userID, serviceToken string) (*identityservice.PolicyResponse, error) {
	resp, err := a.client.DeterminePolicy(ctx, userID, serviceToken)
	if err != nil {
		return nil, err
	}
	return &identityservice.PolicyResponse{
		Policy:      resp.Policy,
		UserID:      resp.UserID,
		Description: resp.Description,
	}, nil
}
