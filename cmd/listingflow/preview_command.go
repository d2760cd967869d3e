package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ListingFlow/internal/domain"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var (
		date, clock, tz string
		channelFlags    []string
		manual          bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show when each channel of a schedule would fire, without touching state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.ensureConfig()
			loc := cfg.Scheduler.Location()

			publishAt, err := domain.ResolveInstant(date, clock, tz, loc)
			if err != nil {
				return err
			}
			triggers := cfg.DefaultChannels()
			if len(channelFlags) > 0 {
				if triggers, err = parseChannelFlags(channelFlags); err != nil {
					return err
				}
			}
			if tz != "" {
				if loc, err = time.LoadLocation(tz); err != nil {
					return fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidInput, tz)
				}
			}

			sched := domain.PublicationSchedule{
				PublishAt:   publishAt,
				AutoPublish: !manual,
				Channels:    triggers,
			}
			rows := make([][]string, 0, len(triggers))
			for i, t := range sched.Channels {
				at := sched.TriggerAt(i)
				rows = append(rows, []string{
					string(t.Channel),
					t.Offset.String(),
					at.In(loc).Format("2006-01-02 15:04 MST"),
					at.UTC().Format(time.RFC3339),
					yesNo(sched.Armed(i)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Channel", "Offset", "Local", "UTC", "Armed"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Publication date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&clock, "time", "00:00", "Publication time (HH:MM)")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone (defaults to scheduler.timezone)")
	cmd.Flags().StringArrayVar(&channelFlags, "channel", nil, "Channel trigger as <channel>[=<offset>], repeatable")
	cmd.Flags().BoolVar(&manual, "manual", false, "Leave the content trigger disarmed")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

// parseChannelFlags reads "social:twitter=30m" style flags.
func parseChannelFlags(flags []string) ([]domain.ChannelTrigger, error) {
	out := make([]domain.ChannelTrigger, 0, len(flags))
	seen := map[domain.Channel]bool{}
	for _, flag := range flags {
		name, offsetRaw, _ := strings.Cut(flag, "=")
		channel, err := domain.ParseChannel(name)
		if err != nil {
			return nil, err
		}
		if seen[channel] {
			return nil, fmt.Errorf("%w: duplicate channel %s", domain.ErrInvalidInput, channel)
		}
		seen[channel] = true
		var offset time.Duration
		if offsetRaw = strings.TrimSpace(offsetRaw); offsetRaw != "" {
			if offset, err = time.ParseDuration(offsetRaw); err != nil {
				return nil, fmt.Errorf("%w: offset %q", domain.ErrInvalidInput, offsetRaw)
			}
		}
		out = append(out, domain.ChannelTrigger{Channel: channel, Enabled: true, Offset: offset})
	}
	return out, nil
}
