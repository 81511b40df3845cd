package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/polina-mishina/bookstore/internal/domain"
)

// FulfillmentHandler picks up freshly created orders and moves them into
// processing through the public status endpoint, then asks the notifications
// service to mail the customer. Errors are returned to the consumer so the
// message is retried instead of being committed.
type FulfillmentHandler struct {
	ordersServiceURL        string
	notificationsServiceURL string
	httpClient              *http.Client
	logger                  *slog.Logger
}

func NewFulfillmentHandler(ordersServiceURL, notificationsServiceURL string, client *http.Client, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		ordersServiceURL:        ordersServiceURL,
		notificationsServiceURL: notificationsServiceURL,
		httpClient:              client,
		logger:                  logger,
	}
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "user_id", event.UserID)

	if err := h.startProcessing(ctx, event.OrderID); err != nil {
		h.logger.Error("failed to start processing", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("start processing order %d: %w", event.OrderID, err)
	}

	if err := h.sendOrderReceivedMail(ctx, event); err != nil {
		h.logger.Error("failed to send notification", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("notify about order %d: %w", event.OrderID, err)
	}

	h.logger.Info("order moved to processing", "order_id", event.OrderID)
	return nil
}

func (h *FulfillmentHandler) startProcessing(ctx context.Context, orderID int64) error {
	body := map[string]domain.Status{
		"status": domain.StatusInProcessing,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/%d/status", h.ordersServiceURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	return nil
}

func (h *FulfillmentHandler) sendOrderReceivedMail(ctx context.Context, event domain.OrderCreatedEvent) error {
	body := map[string]string{
		"to":      fmt.Sprintf("user-%d@bookstore.local", event.UserID),
		"subject": fmt.Sprintf("Order %d received", event.OrderID),
		"body":    fmt.Sprintf("Your order %d with %d items is being processed.", event.OrderID, len(event.Items)),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.notificationsServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notifications service returned status %d", resp.StatusCode)
	}

	return nil
}
