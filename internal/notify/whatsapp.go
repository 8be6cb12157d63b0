// Package notify delivers buyer-facing messages. Delivery is best-effort;
// callers log failures and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rifa/internal/raffle"
	"rifa/internal/ticket"
)

const graphAPIBase = "https://graph.facebook.com/v20.0"

// WhatsApp sends ticket confirmations through the WhatsApp Cloud API.
type WhatsApp struct {
	client        *http.Client
	baseURL       string
	accessToken   string
	phoneNumberID string
	logger        *slog.Logger
}

func NewWhatsApp(accessToken, phoneNumberID string, logger *slog.Logger) *WhatsApp {
	return &WhatsApp{
		client:        &http.Client{Timeout: 10 * time.Second},
		baseURL:       graphAPIBase,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		logger:        logger,
	}
}

// TicketPaid messages the buyer that their numbers are confirmed.
func (w *WhatsApp) TicketPaid(ctx context.Context, t ticket.Ticket, r raffle.Raffle) error {
	text := fmt.Sprintf(
		"Hola %s! Tu compra en la rifa %q quedó confirmada. Tus números: %s. Suerte!",
		t.BuyerName, r.Name, strings.Join(t.NumbersSnapshot, ", "),
	)
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(t.BuyerPhone, "+"),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, detail)
	}
	w.logger.DebugContext(ctx, "whatsapp confirmation sent", "ticket_id", t.ID.String())
	return nil
}
