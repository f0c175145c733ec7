package notify

import (
	"github.com/pkg/errors"

	"hooksync/pkg/config"
)

// FromConfig builds a fan-out sink over every channel listed in cfg.Channels.
// No channels yields an empty Multi that delivers nothing.
func FromConfig(cfg config.NotificationsConfig, opts ...Option) (*Multi, error) {
	multi := NewMulti(opts...)

	for _, name := range cfg.Channels {
		var (
			sink Sink
			err  error
		)

		switch name {
		case config.ChannelDiscord:
			sink, err = NewDiscord(cfg.Discord, opts...)
		case config.ChannelSlack:
			sink, err = NewSlack(cfg.Slack, opts...)
		case config.ChannelTeams:
			sink, err = NewTeams(cfg.Teams, opts...)
		case config.ChannelZulip:
			sink = NewZulip(cfg.Zulip, opts...)
		case config.ChannelZabbix:
			sink = NewZabbix(cfg.Zabbix, opts...)
		default:
			return nil, &config.ConfigurationError{Errors: []config.FieldError{{
				Field:   "notifications.channels",
				Value:   name,
				Message: "unknown notification channel",
			}}}
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to set up %s notifications", name)
		}
		multi.Add(name, sink)
	}

	return multi, nil
}
