package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/auth"
	authhandler "rifa/internal/auth/handler"
	authstore "rifa/internal/auth/store"
	numberstore "rifa/internal/number/store"
	"rifa/internal/platform/metrics"
	"rifa/internal/raffle"
	rafflehandler "rifa/internal/raffle/handler"
	raffleservice "rifa/internal/raffle/service"
	rafflestore "rifa/internal/raffle/store"
	tickethandler "rifa/internal/ticket/handler"
	ticketservice "rifa/internal/ticket/service"
	ticketstore "rifa/internal/ticket/store"
)

type raffleTx struct {
	mu      sync.Mutex
	raffles *rafflestore.Memory
	numbers *numberstore.Memory
}

func (m *raffleTx) RunInTx(_ context.Context, fn func(raffleservice.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raffleSnap := m.raffles.Snapshot()
	numberSnap := m.numbers.Snapshot()
	if err := fn(raffleservice.Stores{Raffles: m.raffles, Numbers: m.numbers}); err != nil {
		m.raffles.Restore(raffleSnap)
		m.numbers.Restore(numberSnap)
		return err
	}
	return nil
}

type ticketTx struct {
	mu      sync.Mutex
	tickets *ticketstore.Memory
	numbers *numberstore.Memory
}

func (m *ticketTx) RunInTx(_ context.Context, fn func(ticketservice.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticketSnap := m.tickets.Snapshot()
	numberSnap := m.numbers.Snapshot()
	if err := fn(ticketservice.Stores{Tickets: m.tickets, Numbers: m.numbers}); err != nil {
		m.tickets.Restore(ticketSnap)
		m.numbers.Restore(numberSnap)
		return err
	}
	return nil
}

// Shared across tests: promauto registers into the default registry, which
// tolerates only one registration per process.
var testMetrics = metrics.New()

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

	raffles := rafflestore.NewMemory()
	tickets := ticketstore.NewMemory()
	numbers := numberstore.NewMemory()
	numbers.PendingCheck = tickets.IsPending

	authSvc := auth.NewService(authstore.NewMemoryUsers(), authstore.NewMemoryRevocations(), []byte("router-test-key"), time.Hour)
	_, err := authSvc.CreateUser(context.Background(), "vendedor", "s3cret")
	require.NoError(t, err)

	raffleSvc := raffleservice.NewService(&raffleTx{raffles: raffles, numbers: numbers}, raffles, numbers, tickets, nil)
	ticketSvc := ticketservice.NewService(ticketservice.Deps{
		Tx:      &ticketTx{tickets: tickets, numbers: numbers},
		Tickets: tickets,
		Raffles: raffles,
		Users:   authSvc,
		Logger:  logger,
		Grace:   15 * time.Minute,
	})

	return New(Deps{
		Logger:       logger,
		Metrics:      testMetrics,
		JWTValidator: authSvc,
		Auth:         authhandler.New(authSvc, logger),
		Raffles:      rafflehandler.New(raffleSvc, logger),
		Tickets:      tickethandler.New(ticketSvc, t.TempDir(), logger),
	})
}

func login(t *testing.T, api http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "vendedor", "password": "s3cret"})
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	return token.AccessToken
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newAPI(t)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/raffles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedFlow(t *testing.T) {
	api := newAPI(t)
	token := login(t, api)

	body, _ := json.Marshal(raffle.CreateRequest{
		Name:             "Moto 2026",
		DigitsPerNumber:  2,
		NumbersPerTicket: 4,
		Price:            20000,
		EndDate:          time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created raffle.WithStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+created.ShortID+"/tickets",
		bytes.NewReader([]byte(`{"buyer_name":"Ana","buyer_phone":"+573001112233","numbers":["01","02","03","04"]}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ticketResp struct {
		Responsible string `json:"responsible"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticketResp))
	assert.Equal(t, "vendedor", ticketResp.Responsible, "seller identity flows from the token")
}

func TestLogoutInvalidatesToken(t *testing.T) {
	api := newAPI(t)
	token := login(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/raffles", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
