package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/raffle"
	"rifa/internal/ticket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestTicketPaid(t *testing.T) {
	var captured struct {
		path string
		auth string
		body map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWhatsApp("token-abc", "12345", testLogger())
	w.baseURL = server.URL

	err := w.TicketPaid(context.Background(),
		ticket.Ticket{BuyerName: "Ana", BuyerPhone: "+573001112233", NumbersSnapshot: []string{"05", "17"}},
		raffle.Raffle{Name: "Moto 2026"},
	)
	require.NoError(t, err)

	assert.Equal(t, "/12345/messages", captured.path)
	assert.Equal(t, "Bearer token-abc", captured.auth)
	assert.Equal(t, "whatsapp", captured.body["messaging_product"])
	assert.Equal(t, "573001112233", captured.body["to"])
	text := captured.body["text"].(map[string]any)
	assert.Contains(t, text["body"], "05, 17")
	assert.Contains(t, text["body"], "Moto 2026")
}

func TestTicketPaidAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	w := NewWhatsApp("bad", "12345", testLogger())
	w.baseURL = server.URL

	err := w.TicketPaid(context.Background(), ticket.Ticket{BuyerPhone: "573001112233"}, raffle.Raffle{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
