package kick

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	kickchat "github.com/johanvandegriff/kick-chat-wrapper"

	"github.com/john/chatbridge/internal/message"
)

// ChannelConfig is a Kick channel with an optional pre-resolved chatroom ID
type ChannelConfig struct {
	Slug       string `yaml:"slug" validate:"required"`
	ChatroomID int    `yaml:"chatroom_id"` // 0 means resolve through the API
}

// Connector ingests Kick chat. Kick is archived only, never relayed.
type Connector struct {
	channels []ChannelConfig
	idToSlug map[int]string
	resolver *Resolver
	logger   *slog.Logger
	client   *kickchat.Client
}

// New creates a new Kick connector
func New(channels []ChannelConfig, logger *slog.Logger) *Connector {
	return &Connector{
		channels: channels,
		idToSlug: make(map[int]string),
		resolver: NewResolver(),
		logger:   logger.With("component", "kick"),
	}
}

// Start resolves chatrooms, joins them and blocks until ctx is cancelled
func (c *Connector) Start(ctx context.Context, messageChan chan<- message.Message) error {
	for _, channel := range c.channels {
		chatroomID, slug := channel.ChatroomID, channel.Slug
		if chatroomID <= 0 {
			info, err := c.resolver.Resolve(ctx, channel.Slug)
			if err != nil {
				c.logger.Warn("skipping unresolved channel", "channel", channel.Slug, "error", err)
				continue
			}
			chatroomID, slug = info.Chatroom.ID, info.Slug
		}
		c.idToSlug[chatroomID] = slug
	}

	if len(c.idToSlug) == 0 {
		return fmt.Errorf("no valid kick channels could be resolved")
	}

	client, err := kickchat.NewClient()
	if err != nil {
		return fmt.Errorf("create kick client: %w", err)
	}
	c.client = client

	for chatroomID, slug := range c.idToSlug {
		if err := c.client.JoinChannelByID(chatroomID); err != nil {
			c.logger.Warn("join channel", "channel", slug, "chatroom", chatroomID, "error", err)
			continue
		}
		c.logger.Info("joined channel", "channel", slug)
	}

	messages := c.client.ListenForMessages()

	go func() {
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					c.logger.Info("kick message channel closed")
					return
				}

				chatMessage, ok := c.convertMessage(msg)
				if !ok {
					continue
				}

				select {
				case messageChan <- chatMessage:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()

	c.logger.Info("disconnecting from kick")
	c.client.Close()

	return ctx.Err()
}

// convertMessage converts a Kick chat message to a unified message
func (c *Connector) convertMessage(msg kickchat.ChatMessage) (message.Message, bool) {
	slug, ok := c.idToSlug[msg.ChatroomID]
	if !ok {
		c.logger.Warn("message from unknown chatroom", "chatroom", msg.ChatroomID)
		return message.Message{}, false
	}

	return message.Message{
		Text: msg.Content,
		Sender: message.Sender{
			DisplayName: msg.Sender.Username,
			ID:          strconv.Itoa(msg.Sender.ID),
		},
		Source: message.Source{
			ChannelName: slug,
			ChannelID:   strconv.Itoa(msg.ChatroomID),
			Platform:    message.PlatformKick,
		},
		ReceivedAt:  msg.CreatedAt,
		Attachments: []string{},
		Embeds:      []message.Embed{},
		Snapshots:   []message.Snapshot{},
	}, true
}
