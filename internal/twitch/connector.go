package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gempir/go-twitch-irc/v4"

	"github.com/john/chatbridge/internal/message"
)

// chatClient is the part of the go-twitch-irc client used for relaying
type chatClient interface {
	Say(channel, text string)
}

// Connector manages the Twitch IRC connection
type Connector struct {
	username string
	channels []string
	logger   *slog.Logger
	client   *twitch.Client
	sayer    chatClient
}

// New creates a new Twitch connector
func New(username, oauth string, channels []string, logger *slog.Logger) *Connector {
	client := twitch.NewClient(username, oauth)
	return &Connector{
		username: username,
		channels: channels,
		logger:   logger.With("component", "twitch"),
		client:   client,
		sayer:    client,
	}
}

// Start joins the configured channels and blocks until ctx is cancelled
func (c *Connector) Start(ctx context.Context, messageChan chan<- message.Message) error {
	c.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		// Our own relayed lines come back when the bot shares a channel with itself
		if strings.EqualFold(msg.User.Name, c.username) {
			return
		}

		select {
		case messageChan <- convertMessage(msg, time.Now()):
		case <-ctx.Done():
		}
	})

	c.client.OnConnect(func() {
		c.logger.Info("connected to twitch irc")
	})

	c.client.OnReconnectMessage(func(msg twitch.ReconnectMessage) {
		c.logger.Info("reconnecting to twitch irc")
	})

	for _, channel := range c.channels {
		c.client.Join(channel)
		c.logger.Info("joined channel", "channel", channel)
	}

	go func() {
		if err := c.client.Connect(); err != nil && err != twitch.ErrClientDisconnected {
			c.logger.Error("twitch irc connection error", "error", err)
		}
	}()

	<-ctx.Done()

	c.logger.Info("disconnecting from twitch irc")
	if err := c.client.Disconnect(); err != nil {
		c.logger.Warn("disconnect twitch irc", "error", err)
	}

	return ctx.Err()
}

// Send relays a message into a Twitch channel, one PRIVMSG per line
func (c *Connector) Send(ctx context.Context, channel string, msg message.Message) error {
	lines := FormatLines(msg)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("relay to %s: %w", channel, err)
		}
		c.sayer.Say(channel, line)
	}
	return nil
}

// convertMessage converts a Twitch PRIVMSG to a unified message
func convertMessage(msg twitch.PrivateMessage, receivedAt time.Time) message.Message {
	name := msg.User.DisplayName
	if name == "" {
		name = msg.User.Name
	}

	return message.Message{
		Text: msg.Message,
		Sender: message.Sender{
			DisplayName: name,
			ID:          msg.User.ID,
		},
		Source: message.Source{
			ChannelName: strings.TrimPrefix(msg.Channel, "#"),
			ChannelID:   msg.RoomID,
			Platform:    message.PlatformIRC,
		},
		ReceivedAt:  receivedAt,
		Attachments: []string{},
		Embeds:      []message.Embed{},
		Snapshots:   []message.Snapshot{},
	}
}
