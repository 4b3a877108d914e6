package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"syncq/internal/models"
)

// WebhookHandler delivers an action's payload to a remote endpoint via
// HTTP POST. It is the default handler the daemon wires for each
// configured action type.
type WebhookHandler struct {
	client   *http.Client
	endpoint string
}

func NewWebhookHandler(client *http.Client, endpoint string) *WebhookHandler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookHandler{client: client, endpoint: endpoint}
}

func (h *WebhookHandler) Execute(ctx context.Context, action models.Action) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(action.Payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The id header lets idempotent remotes dedupe repeated deliveries.
	req.Header.Set("X-Action-ID", action.ID)
	req.Header.Set("X-Action-Type", string(action.Type))

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver action %s: %w", action.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
