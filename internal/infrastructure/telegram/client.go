package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ListingFlow/internal/config"
)

const defaultAPIBase = "https://api.telegram.org"

// Client posts messages through the Telegram bot API.
type Client struct {
	apiBase  string
	botToken string
	client   *http.Client
}

// NewClient registers the bot token and API base.
func NewClient(cfg config.TelegramConfig) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	return &Client{
		apiBase:  base,
		botToken: cfg.BotToken,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// SendMessage posts an HTML-formatted message to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, preview bool) error {
	if c.botToken == "" || chatID == "" || c.client == nil {
		return fmt.Errorf("telegram client misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	if !preview {
		form.Set("disable_web_page_preview", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
