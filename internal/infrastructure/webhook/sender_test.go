package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ListingFlow/internal/dispatch"
	"ListingFlow/internal/domain"
)

func TestSenderPostsEnvelope(t *testing.T) {
	t.Parallel()

	var got envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	sender := NewSender(map[string]string{" Mastodon ": srv.URL})
	err := sender.Send(context.Background(), dispatch.Message{
		Channel:   domain.SocialChannel("mastodon"),
		ContentID: "exp-1",
		Title:     "Kayak",
		Text:      "Golden hour",
		URL:       "https://example.org/exp-1",
		Payload:   domain.Payload{"hashtags": "#travel"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Platform != "mastodon" || got.ContentID != "exp-1" || got.Payload["hashtags"] != "#travel" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestSenderErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	sender := NewSender(map[string]string{"mastodon": srv.URL})
	err := sender.Send(context.Background(), dispatch.Message{Channel: domain.SocialChannel("mastodon")})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected status error, got %v", err)
	}

	err = sender.Send(context.Background(), dispatch.Message{Channel: domain.SocialChannel("bluesky")})
	if err == nil || !strings.Contains(err.Error(), "bluesky") {
		t.Fatalf("expected missing platform error, got %v", err)
	}
}
