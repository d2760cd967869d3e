package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"ListingFlow/internal/config"
	"ListingFlow/internal/dispatch"
)

// Client sends listing announcements through a newsletter HTTP API.
type Client struct {
	endpoint string
	apiKey   string
	from     string
	listID   string
	http     *http.Client
}

var _ dispatch.Sender = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.EmailConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		listID:   cfg.ListID,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the sender in logs and errors.
func (c *Client) Name() string { return "email" }

// Send creates and queues one campaign for the listing. A payload list_id
// overrides the configured list.
func (c *Client) Send(ctx context.Context, msg dispatch.Message) error {
	listID := c.listID
	if v := msg.Payload["list_id"]; v != "" {
		listID = v
	}
	subject := msg.Title
	if v := msg.Payload["subject"]; v != "" {
		subject = v
	}

	payload := map[string]any{
		"from":       c.from,
		"list_id":    listID,
		"subject":    subject,
		"text":       plainBody(msg),
		"html":       htmlBody(msg),
		"reference":  msg.ContentID,
		"send_after": time.Now().UTC().Format(time.RFC3339),
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/campaigns", payload, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("campaign id missing in response")
	}
	return nil
}

func plainBody(msg dispatch.Message) string {
	parts := []string{msg.Title, msg.Text, msg.URL}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func htmlBody(msg dispatch.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(msg.Title))
	if msg.ImageURL != "" {
		fmt.Fprintf(&b, `<img src="%s" alt="">`, html.EscapeString(msg.ImageURL))
	}
	if msg.Text != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(msg.Text))
	}
	if msg.URL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Book now</a></p>`, html.EscapeString(msg.URL))
	}
	return b.String()
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.endpoint == "" || c.apiKey == "" {
		return fmt.Errorf("email client misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		if err := resp.Body.Close(); err != nil {
			return fmt.Errorf("close response body: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
