package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rifa/internal/auth"
	"rifa/internal/transport/http/shared"
	dErrors "rifa/pkg/domain-errors"
)

// Service defines the auth operations the HTTP layer needs.
type Service interface {
	Login(ctx context.Context, username, password string) (auth.TokenResponse, error)
	Logout(ctx context.Context, token string) error
}

// Handler exposes the token endpoints. These routes are public; everything
// else on the API sits behind the tokens they issue.
type Handler struct {
	logger *slog.Logger
	auth   Service
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, auth: auth}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
	r.Post("/auth/logout", h.handleLogout)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnauthorized) {
			h.logger.WarnContext(ctx, "login rejected", "username", req.Username)
		} else {
			h.logger.ErrorContext(ctx, "login failed", "error", err.Error())
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.auth.Logout(ctx, token); err != nil {
		h.logger.WarnContext(ctx, "logout failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
