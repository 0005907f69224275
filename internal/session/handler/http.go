package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/session/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/token"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/web"
)

const maxBodyBytes = 1 << 20

// Handler serves the /tokens endpoints: re-minting a session's bearer token
// and validating a presented one.
type Handler struct {
	sessions *service.Manager
	codec    token.Codec
	logger   *slog.Logger
}

func NewHandler(sessions *service.Manager, codec token.Codec, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, codec: codec, logger: logger}
}

// Register mounts the token routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /tokens", h.handleCreate)
	mux.HandleFunc("POST /tokens/validate", h.handleValidate)
}

type createRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type createResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
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
		h.writeTokenError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, createResponse{Token: tok})
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	UserID      string `json:"userId"`
	SessionID   string `json:"sessionId"`
	Expiration  string `json:"expiration"`
	ClientIP    string `json:"clientIp,omitempty"`
	Roles       string `json:"roles,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

// handleValidate unpacks the presented token, confirms its session is live,
// and checks the token's bound client address against the presenting one.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Token == "" {
		web.WriteError(w, http.StatusBadRequest, "token required")
		return
	}
	clientIP := web.ClientIP(r)
	claims, err := h.codec.Decode(r.Context(), req.Token, clientIP)
	if err != nil {
		h.writeTokenError(w, r, err)
		return
	}
	if claims.ClientIP != "" && claims.ClientIP != clientIP {
		web.WriteUnauthorized(w)
		return
	}
	if _, err := h.sessions.ValidateSession(r.Context(), claims.SessionID, req.Token); err != nil {
		h.writeTokenError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, validateResponse{
		UserID:      claims.UserID,
		SessionID:   claims.SessionID,
		Expiration:  claims.Expiration,
		ClientIP:    claims.ClientIP,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	})
}

func (h *Handler) writeTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, token.ErrUpstreamTimeout):
		web.WriteError(w, http.StatusGatewayTimeout, "upstream authority timeout")
	case errors.Is(err, token.ErrDecode),
		errors.Is(err, token.ErrUpstreamAuthority),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionExpired):
		web.WriteUnauthorized(w)
	default:
		h.logger.ErrorContext(r.Context(), "token request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
