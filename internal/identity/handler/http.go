package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/identity/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/logctx"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/oidc"
	sessionservice "github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/web"
)

const maxBodyBytes = 1 << 20

// SessionRefresher re-mints the bearer token for an existing session.
type SessionRefresher interface {
	RefreshToken(ctx context.Context, userID, presentedToken, clientIP string) (string, error)
}

// Handler serves the /auth endpoints.
type Handler struct {
	auth     *service.AuthService
	sessions SessionRefresher
	state    *oidc.StateProtocol
	logger   *slog.Logger
}

func NewHandler(auth *service.AuthService, sessions SessionRefresher, state *oidc.StateProtocol, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, sessions: sessions, state: state, logger: logger}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/sign-in", h.handleSignIn)
	mux.HandleFunc("DELETE /auth/sign-out", h.handleSignOut)
	mux.HandleFunc("POST /auth/refresh-token", h.handleRefreshToken)
	mux.HandleFunc("POST /auth/update-last-activity", h.handleUpdateLastActivity)
	mux.HandleFunc("POST /auth/determine-policy", h.handleDeterminePolicy)
	mux.HandleFunc("POST /auth/oidc/validate", h.handleOIDCValidate)
}

type signInRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	identity, err := h.auth.SignIn(r.Context(), req.UserID, req.Password, web.ClientIP(r))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	ctx := logctx.WithUserData(r.Context(), &logctx.UserData{
		UserID:    identity.UserID,
		SessionID: identity.SessionID,
	})
	h.logger.InfoContext(ctx, "sign-in succeeded")
	web.WriteJSON(w, http.StatusOK, identity)
}

type signOutRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req signOutRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.auth.SignOut(r.Context(), req.UserID, req.Token); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID == "" || req.Token == "" {
		web.WriteError(w, http.StatusBadRequest, "userId and token required")
		return
	}
	tok, err := h.sessions.RefreshToken(r.Context(), req.UserID, req.Token, web.ClientIP(r))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, refreshResponse{Token: tok})
}

type activityRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleUpdateLastActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.auth.UpdateLastActivity(r.Context(), req.Token, web.ClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

type policyRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) handleDeterminePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	result, err := h.auth.DeterminePolicy(r.Context(), req.UserID)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, result)
}

type oidcValidateRequest struct {
	State            string `json:"state"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

func (h *Handler) handleOIDCValidate(w http.ResponseWriter, r *http.Request) {
	var req oidcValidateRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	result := h.state.ValidatePostRequest(oidc.PostRequest{
		State:            req.State,
		Error:            req.Error,
		ErrorDescription: req.ErrorDescription,
	})
	web.WriteJSON(w, http.StatusOK, result)
}

// writeAuthError maps service errors onto responses. Every authorization
// failure reports the same 401 body so callers cannot probe which check
// rejected them.
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		web.WriteError(w, http.StatusBadRequest, "missing required field")
	case errors.Is(err, token.ErrUpstreamTimeout):
		web.WriteError(w, http.StatusGatewayTimeout, "upstream authority timeout")
	case errors.Is(err, service.ErrBypassConfig),
		errors.Is(err, token.ErrUpstreamAuthority),
		errors.Is(err, token.ErrDecode),
		errors.Is(err, sessionservice.ErrSessionNotFound),
		errors.Is(err, sessionservice.ErrInvalidToken),
		errors.Is(err, sessionservice.ErrSessionExpired):
		web.WriteUnauthorized(w)
	default:
		h.logger.ErrorContext(r.Context(), "auth request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
