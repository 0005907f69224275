package server

import (
	"log/slog"
	"net/http"

	clienthandler "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/handler"
	clientservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/service"
	healthhandler "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/health/handler"
	identityhandler "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/identity/handler"
	identityservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/identity/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/oidc"
	sessionhandler "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/handler"
	sessionservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/web"
)

// Deps holds the wired services the HTTP surface exposes.
type Deps struct {
	Logger *slog.Logger

	// Auth is the sign-in/sign-out orchestrator.
	Auth *identityservice.AuthService
	// Sessions is the session lifecycle manager behind the /tokens endpoints.
	Sessions *sessionservice.Manager
	// Codec decodes presented bearer tokens for validation.
	Codec token.Codec
	// ClientTokens issues and validates machine-to-machine client tokens.
	ClientTokens *clientservice.TokenService
	// State validates signed OIDC post-back state.
	State *oidc.StateProtocol
	// HealthPinger is used for readiness (e.g. *sql.DB). May be nil.
	HealthPinger healthhandler.Pinger
	// Metrics may be nil; then no /metrics endpoint or instrumentation.
	Metrics *Metrics
}

// NewRouter builds the full route table and middleware chain.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	identityhandler.NewHandler(deps.Auth, deps.Sessions, deps.State, logger).Register(mux)
	sessionhandler.NewHandler(deps.Sessions, deps.Codec, logger).Register(mux)
	clienthandler.NewHandler(deps.ClientTokens, logger).Register(mux)
	healthhandler.NewHandler(deps.HealthPinger, logger).Register(mux)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = withMetrics(h, deps.Metrics)
	}
	h = web.WithRequestLogging(h, logger)
	h = web.WithRequestContext(h)
	return h
}
