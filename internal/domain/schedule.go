package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel identifies a publication target: content, email or social:<platform>.
type Channel string

const (
	ChannelContent Channel = "content"
	ChannelEmail   Channel = "email"

	socialPrefix = "social:"
)

// SocialChannel builds the channel id for a social platform.
func SocialChannel(platform string) Channel {
	return Channel(socialPrefix + strings.ToLower(strings.TrimSpace(platform)))
}

// ParseChannel validates a channel identifier.
func ParseChannel(value string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(value)))
	switch {
	case c == ChannelContent, c == ChannelEmail:
		return c, nil
	case strings.HasPrefix(string(c), socialPrefix) && len(c) > len(socialPrefix):
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, value)
	}
}

// IsContent reports whether the channel flips the item itself.
func (c Channel) IsContent() bool { return c == ChannelContent }

// IsSocial reports whether the channel is a social platform.
func (c Channel) IsSocial() bool { return strings.HasPrefix(string(c), socialPrefix) }

// Platform returns the social platform name, or "" for other channels.
func (c Channel) Platform() string {
	if !c.IsSocial() {
		return ""
	}
	return strings.TrimPrefix(string(c), socialPrefix)
}

// Payload carries channel-specific fields (text, subject, link, image...).
type Payload map[string]string

// Clone copies the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cp := make(Payload, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// ChannelTrigger arms one channel relative to the schedule's base instant.
type ChannelTrigger struct {
	Channel Channel       `json:"channel"`
	Enabled bool          `json:"enabled"`
	Offset  time.Duration `json:"offset"`
	Payload Payload       `json:"payload,omitempty"`
	FiredAt *time.Time    `json:"fired_at,omitempty"`
}

// PublicationSchedule is one scheduled publish intent.
type PublicationSchedule struct {
	ID          string           `json:"id"`
	ContentID   string           `json:"content_id"`
	PublishAt   time.Time        `json:"publish_at"`
	Timezone    string           `json:"timezone"`
	AutoPublish bool             `json:"auto_publish"`
	Channels    []ChannelTrigger `json:"channels"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TriggerAt resolves the absolute instant of the i-th channel trigger.
func (s PublicationSchedule) TriggerAt(i int) time.Time {
	return s.PublishAt.Add(s.Channels[i].Offset)
}

// Armed reports whether the i-th trigger takes part in this schedule.
func (s PublicationSchedule) Armed(i int) bool {
	t := s.Channels[i]
	if !t.Enabled {
		return false
	}
	if t.Channel.IsContent() && !s.AutoPublish {
		return false
	}
	return true
}

// Pending reports whether any armed trigger has yet to fire.
func (s PublicationSchedule) Pending() bool {
	for i := range s.Channels {
		if s.Armed(i) && s.Channels[i].FiredAt == nil {
			return true
		}
	}
	return false
}

// HasContentTrigger reports whether the schedule will flip the item itself.
func (s PublicationSchedule) HasContentTrigger() bool {
	for i, t := range s.Channels {
		if t.Channel.IsContent() && s.Armed(i) && t.FiredAt == nil {
			return true
		}
	}
	return false
}

// Clone deep-copies the schedule so timers and views never share slices.
func (s PublicationSchedule) Clone() PublicationSchedule {
	cp := s
	cp.Channels = make([]ChannelTrigger, len(s.Channels))
	for i, t := range s.Channels {
		t.Payload = t.Payload.Clone()
		if t.FiredAt != nil {
			at := *t.FiredAt
			t.FiredAt = &at
		}
		cp.Channels[i] = t
	}
	return cp
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ResolveInstant converts a wall-clock date, time and timezone into one
// absolute instant. An empty timezone uses fallback (UTC when nil).
func ResolveInstant(date, clock, timezone string, fallback *time.Location) (time.Time, error) {
	loc := fallback
	if tz := strings.TrimSpace(timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, timezone)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}

	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = "00:00"
	}
	layout := dateLayout + " " + clockLayout
	if strings.Count(clock, ":") == 2 {
		layout = dateLayout + " 15:04:05"
	}

	at, err := time.ParseInLocation(layout, strings.TrimSpace(date)+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date/time %q %q", ErrInvalidInput, date, clock)
	}
	return at, nil
}

// DispatchEvent is handed to the external dispatcher for one fired trigger.
type DispatchEvent struct {
	Channel    Channel   `json:"channel"`
	ContentID  string    `json:"content_id"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	Payload    Payload   `json:"payload"`
	FiredAt    time.Time `json:"fired_at"`
}
