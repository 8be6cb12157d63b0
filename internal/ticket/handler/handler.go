package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rifa/internal/receipt"
	"rifa/internal/ticket"
	"rifa/internal/transport/http/shared"
	dErrors "rifa/pkg/domain-errors"
)

// Service defines the ticket operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, raffleShortID string, req ticket.CreateRequest) (ticket.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (ticket.Ticket, error)
	ListByRaffle(ctx context.Context, raffleShortID string) ([]ticket.Ticket, error)
	Cancel(ctx context.Context, id uuid.UUID) (ticket.Ticket, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, paymentType string) (ticket.Ticket, error)
	MonthlySales(ctx context.Context, raffleShortID string, year int, month time.Month) (ticket.SalesSummary, error)
	SetProof(ctx context.Context, id uuid.UUID, url string) (ticket.Ticket, string, error)
	RemoveProof(ctx context.Context, id uuid.UUID) (string, error)
}

const maxProofSize = 10 << 20

// Handler exposes ticket lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	tickets   Service
	uploadDir string
}

func New(tickets Service, uploadDir string, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tickets: tickets, uploadDir: uploadDir}
}

// Register attaches the ticket routes. Authentication is applied by the
// router that mounts this handler.
func (h *Handler) Register(r chi.Router) {
	r.Post("/raffles/{shortID}/tickets", h.handleCreate)
	r.Get("/raffles/{shortID}/tickets", h.handleList)
	r.Get("/raffles/{shortID}/sales", h.handleMonthlySales)
	r.Get("/tickets/{ticketID}", h.handleGet)
	r.Post("/tickets/{ticketID}/cancel", h.handleCancel)
	r.Post("/tickets/{ticketID}/confirm", h.handleConfirm)
	r.Get("/tickets/{ticketID}/receipt", h.handleReceipt)
	r.Post("/tickets/{ticketID}/proof", h.handleUploadProof)
	r.Delete("/tickets/{ticketID}/proof", h.handleRemoveProof)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ticket.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.tickets.Create(ctx, chi.URLParam(r, "shortID"), req)
	if err != nil {
		h.logError(ctx, "create ticket failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tickets, err := h.tickets.ListByRaffle(ctx, chi.URLParam(r, "shortID"))
	if err != nil {
		h.logError(ctx, "list tickets failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	t, err := h.tickets.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "get ticket failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	t, err := h.tickets.Cancel(ctx, id)
	if err != nil {
		h.logError(ctx, "cancel ticket failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	var req struct {
		PaymentType string `json:"payment_type"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	t, err := h.tickets.ConfirmPayment(ctx, id, req.PaymentType)
	if err != nil {
		h.logError(ctx, "confirm payment failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleMonthlySales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be an integer"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "month must be an integer"))
		return
	}

	summary, err := h.tickets.MonthlySales(ctx, chi.URLParam(r, "shortID"), year, time.Month(month))
	if err != nil {
		h.logError(ctx, "monthly sales failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	t, err := h.tickets.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "get ticket failed", err)
		shared.WriteError(w, err)
		return
	}

	img, err := receipt.Render(receipt.Data{
		RaffleName:  t.RaffleName,
		ShortID:     t.RaffleShortID,
		BuyerName:   t.BuyerName,
		Numbers:     t.NumbersSnapshot,
		Price:       t.RafflePrice,
		Status:      t.Status,
		PaymentDate: t.PaymentDate,
		Link:        h.raffleLink(r, t.RaffleShortID),
	})
	if err != nil {
		h.logError(ctx, "render receipt failed", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not render receipt"))
		return
	}
	data, err := receipt.EncodeJPEG(img)
	if err != nil {
		h.logError(ctx, "encode receipt failed", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not render receipt"))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleUploadProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file field is required"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "proof must be a jpg, jpeg or png image"))
		return
	}

	name := fmt.Sprintf("proof-%s%s", id.String(), ext)
	path := filepath.Join(h.uploadDir, name)
	if err := h.saveUpload(path, file); err != nil {
		h.logError(ctx, "save proof failed", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not store proof"))
		return
	}

	t, previous, err := h.tickets.SetProof(ctx, id, name)
	if err != nil {
		_ = os.Remove(path)
		h.logError(ctx, "set proof failed", err)
		shared.WriteError(w, err)
		return
	}
	if previous != "" && previous != name {
		_ = os.Remove(filepath.Join(h.uploadDir, previous))
	}
	shared.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleRemoveProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	previous, err := h.tickets.RemoveProof(ctx, id)
	if err != nil {
		h.logError(ctx, "remove proof failed", err)
		shared.WriteError(w, err)
		return
	}
	if previous != "" {
		_ = os.Remove(filepath.Join(h.uploadDir, previous))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(src, maxProofSize)); err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}

func (h *Handler) ticketID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid ticket id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) raffleLink(r *http.Request, shortID string) string {
	if shortID == "" {
		return ""
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/api/v1/raffles/%s", scheme, r.Host, shortID)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err.Error())
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err.Error())
}
