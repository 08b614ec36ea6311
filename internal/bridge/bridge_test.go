package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/chatbridge/internal/message"
)

type sent struct {
	channel string
	text    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSender) Send(ctx context.Context, channel string, msg message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{channel: channel, text: msg.Text})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discordMsg(channelID, text string) message.Message {
	return message.Message{
		Text:   text,
		Source: message.Source{ChannelID: channelID, ChannelName: "general", Platform: message.PlatformDiscord},
	}
}

func ircMsg(channel, text string) message.Message {
	return message.Message{
		Text:   text,
		Source: message.Source{ChannelName: channel, Platform: message.PlatformIRC},
	}
}

// run feeds msgs through a bridge and returns what reached the archive
func run(t *testing.T, b *Bridge, msgs ...message.Message) []message.Message {
	t.Helper()

	in := make(chan message.Message, len(msgs))
	archive := make(chan message.Message, len(msgs))
	for _, m := range msgs {
		in <- m
	}
	close(in)

	require.NoError(t, b.Start(context.Background(), in, archive))
	close(archive)

	var archived []message.Message
	for m := range archive {
		archived = append(archived, m)
	}
	return archived
}

func TestBridge_DiscordToTwitch(t *testing.T) {
	discord, twitch := &fakeSender{}, &fakeSender{}
	b := New([]Link{{DiscordChannelID: "100", TwitchChannel: "Ludwig"}}, discord, twitch, testLogger())

	archived := run(t, b, discordMsg("100", "hello"))

	assert.Equal(t, []sent{{channel: "ludwig", text: "hello"}}, twitch.sent)
	assert.Empty(t, discord.sent)
	assert.Len(t, archived, 1)
	assert.Equal(t, Stats{Received: 1, Relayed: 1, Archived: 1}, b.Stats())
}

func TestBridge_TwitchToAllLinkedDiscordChannels(t *testing.T) {
	discord, twitch := &fakeSender{}, &fakeSender{}
	b := New([]Link{
		{DiscordChannelID: "100", TwitchChannel: "ludwig"},
		{DiscordChannelID: "200", TwitchChannel: "ludwig"},
	}, discord, twitch, testLogger())

	run(t, b, ircMsg("Ludwig", "hi"))

	assert.Equal(t, []sent{{"100", "hi"}, {"200", "hi"}}, discord.sent)
	assert.Empty(t, twitch.sent)
}

func TestBridge_UnlinkedIsArchivedOnly(t *testing.T) {
	discord, twitch := &fakeSender{}, &fakeSender{}
	b := New([]Link{{DiscordChannelID: "100", TwitchChannel: "ludwig"}}, discord, twitch, testLogger())

	kickMsg := message.Message{Text: "kek", Source: message.Source{ChannelName: "xqc", Platform: message.PlatformKick}}
	archived := run(t, b, discordMsg("999", "elsewhere"), ircMsg("xqc", "other"), kickMsg)

	assert.Empty(t, discord.sent)
	assert.Empty(t, twitch.sent)
	assert.Len(t, archived, 3)
	assert.Equal(t, int64(3), b.Stats().Unlinked)
}

func TestBridge_RelayErrorStillArchives(t *testing.T) {
	twitch := &fakeSender{err: errors.New("not connected")}
	b := New([]Link{{DiscordChannelID: "100", TwitchChannel: "ludwig"}}, &fakeSender{}, twitch, testLogger())

	archived := run(t, b, discordMsg("100", "hello"))

	assert.Len(t, archived, 1)
	stats := b.Stats()
	assert.Equal(t, int64(1), stats.RelayErrors)
	assert.Equal(t, int64(0), stats.Relayed)
}

func TestBridge_NilArchive(t *testing.T) {
	twitch := &fakeSender{}
	b := New([]Link{{DiscordChannelID: "100", TwitchChannel: "ludwig"}}, &fakeSender{}, twitch, testLogger())

	in := make(chan message.Message, 1)
	in <- discordMsg("100", "hello")
	close(in)

	require.NoError(t, b.Start(context.Background(), in, nil))
	assert.Len(t, twitch.sent, 1)
	assert.Equal(t, int64(0), b.Stats().Archived)
}

func TestBridge_StopsOnCancel(t *testing.T) {
	b := New(nil, &fakeSender{}, &fakeSender{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Start(ctx, make(chan message.Message), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
