package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"ListingFlow/internal/dispatch"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/ports"
)

// Sender publishes listing announcements to the configured channel chat.
type Sender struct {
	client *Client
	chatID string
}

var _ dispatch.Sender = (*Sender)(nil)

// NewSender binds a client to the publication chat.
func NewSender(client *Client, chatID string) *Sender {
	return &Sender{client: client, chatID: chatID}
}

// Name identifies the sender in logs and errors.
func (s *Sender) Name() string { return "telegram" }

// Send posts the announcement; a payload chat_id overrides the default chat.
func (s *Sender) Send(ctx context.Context, msg dispatch.Message) error {
	chatID := s.chatID
	if v := msg.Payload["chat_id"]; v != "" {
		chatID = v
	}
	return s.client.SendMessage(ctx, chatID, FormatAnnouncement(msg), true)
}

// FormatAnnouncement renders a message as Telegram HTML.
func FormatAnnouncement(msg dispatch.Message) string {
	var b strings.Builder
	if msg.Title != "" {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(msg.Title))
	}
	if msg.Text != "" {
		b.WriteString(html.EscapeString(msg.Text))
		b.WriteString("\n")
	}
	if tags := strings.TrimSpace(msg.Payload["hashtags"]); tags != "" {
		b.WriteString(html.EscapeString(tags))
		b.WriteString("\n")
	}
	if msg.URL != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", html.EscapeString(msg.URL), html.EscapeString(linkLabel(msg)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func linkLabel(msg dispatch.Message) string {
	if msg.Payload["kind"] == string(domain.KindAccommodation) {
		return "View stay"
	}
	return "View experience"
}

// AlertNotifier reports dispatch failures to an operations chat.
type AlertNotifier struct {
	client *Client
	chatID string
}

var _ ports.AlertNotifier = (*AlertNotifier)(nil)

// NewAlertNotifier binds a client to the alert chat.
func NewAlertNotifier(client *Client, chatID string) *AlertNotifier {
	return &AlertNotifier{client: client, chatID: chatID}
}

// NotifyDispatchFailure posts a short failure report.
func (a *AlertNotifier) NotifyDispatchFailure(ctx context.Context, event domain.DispatchEvent, cause error) error {
	text := fmt.Sprintf("<b>Dispatch failed</b>\nchannel: %s\ncontent: %s\nerror: %s",
		html.EscapeString(string(event.Channel)),
		html.EscapeString(event.ContentID),
		html.EscapeString(cause.Error()),
	)
	if event.ScheduleID != "" {
		text += "\nschedule: " + html.EscapeString(event.ScheduleID)
	}
	return a.client.SendMessage(ctx, a.chatID, text, false)
}
