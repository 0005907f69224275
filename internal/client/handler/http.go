package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/client/service"
	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/web"
)

const maxBodyBytes = 1 << 20

// Handler serves the /tokens/client endpoints for registered API clients.
type Handler struct {
	tokens *service.TokenService
	logger *slog.Logger
}

func NewHandler(tokens *service.TokenService, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, logger: logger}
}

// Register mounts the client token routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /tokens/client", h.handleCreate)
	mux.HandleFunc("POST /tokens/client/validate", h.handleValidate)
}

type createRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	PassCode     string `json:"passCode,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	tok, err := h.tokens.CreateClientToken(r.Context(), req.ClientID, req.ClientSecret, req.PassCode)
	if err != nil {
		h.writeClientError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, tok)
}

type validateRequest struct {
	ClientID string `json:"clientId"`
	Token    string `json:"token"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := web.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.tokens.ValidateClientToken(r.Context(), req.ClientID, req.Token); err != nil {
		h.writeClientError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, validateResponse{Valid: true})
}

func (h *Handler) writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidClientToken):
		web.WriteUnauthorized(w)
	default:
		h.logger.ErrorContext(r.Context(), "client token request failed", "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
