package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	numberstore "rifa/internal/number/store"
	"rifa/internal/raffle"
	"rifa/internal/raffle/service"
	rafflestore "rifa/internal/raffle/store"
	"rifa/internal/stats"
)

type memoryTx struct {
	raffles *rafflestore.Memory
	numbers *numberstore.Memory
}

func (m *memoryTx) RunInTx(_ context.Context, fn func(service.Stores) error) error {
	raffleSnap := m.raffles.Snapshot()
	numberSnap := m.numbers.Snapshot()
	if err := fn(service.Stores{Raffles: m.raffles, Numbers: m.numbers}); err != nil {
		m.raffles.Restore(raffleSnap)
		m.numbers.Restore(numberSnap)
		return err
	}
	return nil
}

type noTickets struct{}

func (noTickets) SummariesByRaffle(context.Context, uuid.UUID) ([]stats.TicketSummary, error) {
	return nil, nil
}
func (noTickets) HasActiveTickets(context.Context, uuid.UUID) (bool, error) { return false, nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	raffles := rafflestore.NewMemory()
	numbers := numberstore.NewMemory()
	svc := service.NewService(&memoryTx{raffles: raffles, numbers: numbers}, raffles, numbers, noTickets{}, nil)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))).Register(r)
	return r
}

func createRaffle(t *testing.T, router http.Handler) raffle.WithStats {
	t.Helper()
	body, _ := json.Marshal(raffle.CreateRequest{
		Name:             "Moto 2026",
		DigitsPerNumber:  2,
		NumbersPerTicket: 4,
		Price:            20000,
		EndDate:          time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/raffles", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created raffle.WithStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestCreateAndGet(t *testing.T) {
	router := newTestRouter(t)
	created := createRaffle(t, router)
	assert.Len(t, created.ShortID, 5)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raffles/"+created.ShortID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got raffle.WithStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 25, got.Stats.TotalNumbers)
}

func TestCreateRejectsBadBody(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/raffles", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownRaffle(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raffles/NOPE1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "not_found", envelope["error"])
}

func TestCheckNumberEndpoint(t *testing.T) {
	router := newTestRouter(t)
	created := createRaffle(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raffles/"+created.ShortID+"/numbers/05", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Number    string `json:"number"`
		Status    string `json:"status"`
		Available bool   `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "05", resp.Number)
	assert.True(t, resp.Available)
}

func TestRandomNumbersEndpoint(t *testing.T) {
	router := newTestRouter(t)
	created := createRaffle(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raffles/"+created.ShortID+"/numbers/random?count=4", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Numbers []string `json:"numbers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Numbers, 4)

	t.Run("over-asking conflicts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raffles/"+created.ShortID+"/numbers/random?count=101", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
