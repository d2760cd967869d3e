package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ListingFlow/internal/dispatch"
)

// Sender posts announcements to per-platform webhooks (Buffer, Zapier,
// Mastodon bridges...). The platform is taken from the social channel id.
type Sender struct {
	endpoints  map[string]string
	httpClient *http.Client
}

var _ dispatch.Sender = (*Sender)(nil)

// NewSender builds a sender from platform -> URL pairs.
func NewSender(endpoints map[string]string) *Sender {
	normalized := make(map[string]string, len(endpoints))
	for platform, url := range endpoints {
		normalized[strings.ToLower(strings.TrimSpace(platform))] = strings.TrimSpace(url)
	}
	return &Sender{
		endpoints: normalized,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Platforms lists the platforms with a configured webhook.
func (s *Sender) Platforms() []string {
	out := make([]string, 0, len(s.endpoints))
	for p := range s.endpoints {
		out = append(out, p)
	}
	return out
}

// Name identifies the sender in logs and errors.
func (s *Sender) Name() string { return "webhook" }

type envelope struct {
	Channel    string            `json:"channel"`
	Platform   string            `json:"platform"`
	ContentID  string            `json:"content_id"`
	ScheduleID string            `json:"schedule_id,omitempty"`
	Title      string            `json:"title"`
	Text       string            `json:"text"`
	URL        string            `json:"url"`
	ImageURL   string            `json:"image_url,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// Send posts the message as JSON to the platform's webhook.
func (s *Sender) Send(ctx context.Context, msg dispatch.Message) error {
	platform := msg.Channel.Platform()
	endpoint := s.endpoints[platform]
	if endpoint == "" {
		return fmt.Errorf("no webhook configured for platform %q", platform)
	}

	body, err := json.Marshal(envelope{
		Channel:    string(msg.Channel),
		Platform:   platform,
		ContentID:  msg.ContentID,
		ScheduleID: msg.ScheduleID,
		Title:      msg.Title,
		Text:       msg.Text,
		URL:        msg.URL,
		ImageURL:   msg.ImageURL,
		Payload:    msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook %s error %s: %s", platform, resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}
