// Package webhook forwards logtime hook events to an HTTP endpoint as JSON,
// so idle locks and breaks can feed other automation.
//
// Example usage:
//
//	client, err := webhook.NewClient("https://example.com/logtime")
//	if err != nil {
//		log.Fatal(err)
//	}
//	bus.Add(hooks.All, "webhook", client.Handler())
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/internal/version"
)

// Configuration constants
const (
	defaultRequestTimeout = 30 * time.Second
	maxRetries            = 3
	baseRetryDelay        = 1 * time.Second

	// EnvURL is consulted when no URL is configured
	EnvURL = "LOGTIME_WEBHOOK_URL"
)

// Payload is the JSON body posted for every event.
type Payload struct {
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Event     hooks.Event `json:"event"`
}

// Client posts events to a webhook endpoint.
type Client struct {
	webhookURL    string
	httpClient    *http.Client
	retryDelay    time.Duration
	log           *logging.Logger
	DebugMode     bool
	CustomHeaders map[string]string
}

// NewClient creates a webhook client. An empty webhookURL falls back to the
// LOGTIME_WEBHOOK_URL environment variable.
func NewClient(webhookURL string, log *logging.Logger) (*Client, error) {
	if webhookURL == "" {
		webhookURL = os.Getenv(EnvURL)
	}
	if webhookURL == "" {
		return nil, errors.Errorf("webhook URL not provided, set hooks.webhookURL or %s", EnvURL)
	}
	if !strings.HasPrefix(webhookURL, "http://") && !strings.HasPrefix(webhookURL, "https://") {
		return nil, errors.Errorf("invalid webhook URL %q: must start with http:// or https://", webhookURL)
	}

	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		retryDelay:    baseRetryDelay,
		log:           log,
		DebugMode:     log.DebugMode,
		CustomHeaders: make(map[string]string),
	}, nil
}

// Close is a no-op, kept so every sink can be closed the same way.
func (c *Client) Close() error {
	return nil
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.DebugMode {
		c.log.Debugf("webhook: "+format, args...)
	}
}

// Handler adapts the client to the hook bus.
func (c *Client) Handler() hooks.Handler {
	return func(ctx context.Context, ev hooks.Event) error {
		return c.SubmitEvent(ctx, ev)
	}
}

// SubmitEvent sends a single hook event.
func (c *Client) SubmitEvent(ctx context.Context, ev hooks.Event) error {
	if err := validateEvent(ev); err != nil {
		return errors.Wrap(err, "invalid event")
	}

	return c.sendPayload(ctx, Payload{
		Timestamp: time.Now(),
		Source:    "logtime",
		Version:   version.Version,
		Event:     ev,
	})
}

// sendPayload posts the payload, retrying server errors with exponential
// backoff. Client errors are returned immediately.
func (c *Client) sendPayload(ctx context.Context, payload Payload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	c.debugLog("payload: %s", string(jsonData))

	var lastErr error
	retryDelay := c.retryDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			c.debugLog("retry attempt %d/%d after %v", attempt, maxRetries, retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(jsonData))
		if err != nil {
			return errors.Wrap(err, "create request")
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "logtime/"+version.Version)
		for key, value := range c.CustomHeaders {
			req.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "request failed")
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		c.debugLog("response status: %d, body: %s", resp.StatusCode, string(body))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return errors.Errorf("webhook endpoint returned error %d: %s", resp.StatusCode, string(body))
		}

		lastErr = errors.Errorf("webhook endpoint returned error %d: %s", resp.StatusCode, string(body))
	}

	return errors.Wrapf(lastErr, "failed after %d attempts", maxRetries)
}

func validateEvent(ev hooks.Event) error {
	if ev.ID == "" {
		return errors.New("id is required")
	}
	if ev.Name == "" {
		return errors.New("name is required")
	}
	if ev.At.IsZero() {
		return errors.New("at is required")
	}
	return nil
}

// SetHeader sets a custom HTTP header sent with every request, e.g. an
// authorization token.
func (c *Client) SetHeader(key, value string) {
	c.CustomHeaders[key] = value
}

// SetTimeout sets the HTTP request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}
