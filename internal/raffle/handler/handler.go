package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rifa/internal/number"
	"rifa/internal/raffle"
	"rifa/internal/transport/http/shared"
	dErrors "rifa/pkg/domain-errors"
)

// Service defines the raffle operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, req raffle.CreateRequest) (raffle.WithStats, error)
	Update(ctx context.Context, shortID string, req raffle.UpdateRequest) (raffle.WithStats, error)
	Get(ctx context.Context, shortID string) (raffle.WithStats, error)
	List(ctx context.Context) ([]raffle.WithStats, error)
	CheckNumber(ctx context.Context, shortID, value string) (number.Status, error)
	RandomNumbers(ctx context.Context, shortID string, count int) ([]string, error)
}

// Handler exposes raffle management endpoints.
type Handler struct {
	logger  *slog.Logger
	raffles Service
}

func New(raffles Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, raffles: raffles}
}

// Register attaches the raffle routes. Authentication is applied by the
// router that mounts this handler.
func (h *Handler) Register(r chi.Router) {
	r.Post("/raffles", h.handleCreate)
	r.Get("/raffles", h.handleList)
	r.Get("/raffles/{shortID}", h.handleGet)
	r.Patch("/raffles/{shortID}", h.handleUpdate)
	r.Get("/raffles/{shortID}/numbers/random", h.handleRandomNumbers)
	r.Get("/raffles/{shortID}/numbers/{value}", h.handleCheckNumber)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req raffle.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.raffles.Create(ctx, req)
	if err != nil {
		h.logError(ctx, "create raffle failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raffles, err := h.raffles.List(ctx)
	if err != nil {
		h.logError(ctx, "list raffles failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, raffles)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	found, err := h.raffles.Get(ctx, chi.URLParam(r, "shortID"))
	if err != nil {
		h.logError(ctx, "get raffle failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, found)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req raffle.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.raffles.Update(ctx, chi.URLParam(r, "shortID"), req)
	if err != nil {
		h.logError(ctx, "update raffle failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleCheckNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	value := chi.URLParam(r, "value")

	status, err := h.raffles.CheckNumber(ctx, chi.URLParam(r, "shortID"), value)
	if err != nil {
		h.logError(ctx, "check number failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"number":    value,
		"status":    status,
		"available": status == number.StatusAvailable,
	})
}

func (h *Handler) handleRandomNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "count must be an integer"))
			return
		}
		count = n
	}

	values, err := h.raffles.RandomNumbers(ctx, chi.URLParam(r, "shortID"), count)
	if err != nil {
		h.logError(ctx, "random numbers failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"numbers": values})
}

// logError keeps handler logging uniform: expected business outcomes log at
// warn, infrastructure failures at error.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err.Error())
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err.Error())
}
