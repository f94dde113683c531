// Package worker turns order-placed events into customer notifications.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

type OrderNotifier struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewOrderNotifier(emailServiceURL string, client *http.Client, logger *slog.Logger) *OrderNotifier {
	return &OrderNotifier{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

// Handle consumes one order-placed event and sends the confirmation email.
// Returning an error leaves the message uncommitted so it is retried.
func (n *OrderNotifier) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	n.logger.Info("processing order placed event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	if err := n.sendConfirmationEmail(ctx, event); err != nil {
		n.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	n.logger.Info("order notification sent", "order_id", event.OrderID)
	return nil
}

func (n *OrderNotifier) sendConfirmationEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	body := map[string]string{
		"to":      event.CustomerID + "@example.com",
		"subject": "Order confirmation: " + event.OrderID,
		"body": fmt.Sprintf("Dear %s, your order %s (%d VND) will be delivered to %s.",
			event.RecipientName, event.OrderID, event.Amount, event.Address),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
