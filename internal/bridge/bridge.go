package bridge

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/john/chatbridge/internal/message"
)

// Sender delivers a unified message to a channel on one platform
type Sender interface {
	Send(ctx context.Context, channel string, msg message.Message) error
}

// Link pairs a Discord channel with a Twitch channel
type Link struct {
	DiscordChannelID string
	TwitchChannel    string
}

// Stats counts what the bridge has done since start
type Stats struct {
	Received    int64 `json:"received"`
	Relayed     int64 `json:"relayed"`
	RelayErrors int64 `json:"relay_errors"`
	Unlinked    int64 `json:"unlinked"`
	Archived    int64 `json:"archived"`
}

// Bridge relays messages between linked Discord and Twitch channels and
// hands every message to the archive
type Bridge struct {
	toTwitch  map[string]string   // discord channel ID -> twitch channel
	toDiscord map[string][]string // twitch channel -> discord channel IDs
	discord   Sender
	twitch    Sender
	logger    *slog.Logger

	received    atomic.Int64
	relayed     atomic.Int64
	relayErrors atomic.Int64
	unlinked    atomic.Int64
	archived    atomic.Int64
}

// New creates a bridge for the given links
func New(links []Link, discord, twitch Sender, logger *slog.Logger) *Bridge {
	b := &Bridge{
		toTwitch:  make(map[string]string, len(links)),
		toDiscord: make(map[string][]string, len(links)),
		discord:   discord,
		twitch:    twitch,
		logger:    logger.With("component", "bridge"),
	}
	for _, l := range links {
		twitchChannel := strings.ToLower(l.TwitchChannel)
		b.toTwitch[l.DiscordChannelID] = twitchChannel
		b.toDiscord[twitchChannel] = append(b.toDiscord[twitchChannel], l.DiscordChannelID)
	}
	return b
}

// Start routes messages until ctx is cancelled. archive may be nil.
func (b *Bridge) Start(ctx context.Context, in <-chan message.Message, archive chan<- message.Message) error {
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			b.received.Add(1)
			b.relay(ctx, msg)

			if archive == nil {
				continue
			}
			select {
			case archive <- msg:
				b.archived.Add(1)
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relay sends msg to every channel linked to its source
func (b *Bridge) relay(ctx context.Context, msg message.Message) {
	sender, targets := b.targets(msg.Source)
	if len(targets) == 0 {
		b.unlinked.Add(1)
		return
	}

	for _, target := range targets {
		if err := sender.Send(ctx, target, msg); err != nil {
			b.relayErrors.Add(1)
			b.logger.Warn("relay failed",
				"from", msg.Source.Platform, "channel", msg.Source.ChannelName, "to", target, "error", err)
			continue
		}
		b.relayed.Add(1)
	}
}

func (b *Bridge) targets(src message.Source) (Sender, []string) {
	switch src.Platform {
	case message.PlatformDiscord:
		if ch, ok := b.toTwitch[src.ChannelID]; ok && b.twitch != nil {
			return b.twitch, []string{ch}
		}
	case message.PlatformIRC:
		if b.discord != nil {
			return b.discord, b.toDiscord[strings.ToLower(src.ChannelName)]
		}
	}
	return nil, nil
}

// Stats returns a snapshot of the counters
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:    b.received.Load(),
		Relayed:     b.relayed.Load(),
		RelayErrors: b.relayErrors.Load(),
		Unlinked:    b.unlinked.Load(),
		Archived:    b.archived.Load(),
	}
}
