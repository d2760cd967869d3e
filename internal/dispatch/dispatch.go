package dispatch

import (
	"context"
	"fmt"
	"sync"

	"ListingFlow/internal/domain"
)

// Message is a fired trigger rendered for an outbound channel.
type Message struct {
	Channel    domain.Channel
	ContentID  string
	ScheduleID string
	Title      string
	Text       string
	URL        string
	ImageURL   string
	Payload    domain.Payload
}

// Sender delivers messages for one channel implementation (Telegram, email, webhook...).
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Registry maps channels to senders. A social fallback serves every
// social:<platform> channel without its own sender.
type Registry struct {
	mu      sync.RWMutex
	senders map[domain.Channel]Sender
	social  Sender
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{senders: map[domain.Channel]Sender{}}
}

// Register adds or replaces the sender of a channel.
func (r *Registry) Register(channel domain.Channel, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.senders == nil {
		r.senders = map[domain.Channel]Sender{}
	}
	r.senders[channel] = sender
}

// RegisterSocial sets the fallback for social platforms.
func (r *Registry) RegisterSocial(sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.social = sender
}

// Resolve returns the sender of a channel or an ErrDispatchFailure error.
func (r *Registry) Resolve(channel domain.Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sender, ok := r.senders[channel]; ok {
		return sender, nil
	}
	if channel.IsSocial() && r.social != nil {
		return r.social, nil
	}
	return nil, fmt.Errorf("%w: no sender registered for channel %s", domain.ErrDispatchFailure, channel)
}

// Channels lists the explicitly registered channels.
func (r *Registry) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}
