package dispatch

import (
	"context"
	"errors"
	"testing"

	"ListingFlow/internal/domain"
)

type namedSender string

func (s namedSender) Name() string                        { return string(s) }
func (s namedSender) Send(context.Context, Message) error { return nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(domain.SocialChannel("telegram"), namedSender("telegram"))
	reg.Register(domain.ChannelEmail, namedSender("email"))
	reg.RegisterSocial(namedSender("webhook"))

	cases := map[domain.Channel]string{
		domain.SocialChannel("telegram"): "telegram",
		domain.SocialChannel("mastodon"): "webhook",
		domain.ChannelEmail:              "email",
	}
	for ch, want := range cases {
		sender, err := reg.Resolve(ch)
		if err != nil {
			t.Fatalf("resolve %s: %v", ch, err)
		}
		if sender.Name() != want {
			t.Fatalf("resolve %s = %s, want %s", ch, sender.Name(), want)
		}
	}

	if _, err := reg.Resolve(domain.ChannelContent); !errors.Is(err, domain.ErrDispatchFailure) {
		t.Fatalf("expected dispatch failure for content channel, got %v", err)
	}
	if got := len(reg.Channels()); got != 2 {
		t.Fatalf("expected 2 registered channels, got %d", got)
	}
}

func TestRegistryWithoutSocialFallback(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, err := reg.Resolve(domain.SocialChannel("x")); !errors.Is(err, domain.ErrDispatchFailure) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}
}
