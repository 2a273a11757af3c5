// Package notify holds the HTTP clients the services use to talk to
// each other: the updater notifying the search service, and the
// dispatcher driving the updater.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fireclub/semsearch/infrastructure/events"
)

const defaultTimeout = 5 * time.Second

// SearchNotifier tells the search service a new snapshot generation is
// on disk.
type SearchNotifier struct {
	baseURL string
	client  *http.Client
}

// NewSearchNotifier creates a notifier for the search service at
// baseURL (e.g. http://localhost:8002).
func NewSearchNotifier(baseURL string) *SearchNotifier {
	return &SearchNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type reloadRequest struct {
	Action    string    `json:"action"`
	ProductID int64     `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyReload posts a reload request. Any non-2xx response is an
// error; the caller decides whether that matters.
func (n *SearchNotifier) NotifyReload(ctx context.Context, action string, productID int64) error {
	body, err := json.Marshal(reloadRequest{
		Action:    action,
		ProductID: productID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal reload request: %w", err)
	}

	url := n.baseURL + "/reload_index"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

// UpdaterClient drives the updater service's mutation endpoints.
type UpdaterClient struct {
	baseURL string
	client  *http.Client
}

// NewUpdaterClient creates a client for the updater service at baseURL
// (e.g. http://localhost:8001).
func NewUpdaterClient(baseURL string) *UpdaterClient {
	return &UpdaterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Per-call deadlines come from the request context.
		client: &http.Client{},
	}
}

// eventPaths maps event types onto updater endpoints.
var eventPaths = map[events.Type]string{
	events.TypeAdd:    "add",
	events.TypeUpdate: "modify",
	events.TypeDelete: "delete",
}

// Update forwards one catalog change to the matching updater endpoint.
func (c *UpdaterClient) Update(ctx context.Context, eventType events.Type, productID int64) error {
	path, ok := eventPaths[eventType]
	if !ok {
		return fmt.Errorf("unknown event type %q", eventType)
	}

	url := fmt.Sprintf("%s/update/%s/%d", c.baseURL, path, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
