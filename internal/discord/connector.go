package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/john/chatbridge/internal/message"
)

// maxContentLength is the Discord limit for a single message
const maxContentLength = 2000

// Connector manages the Discord gateway connection
type Connector struct {
	session    *discordgo.Session
	translator *Translator
	logger     *slog.Logger
	channels   map[string]bool // channel IDs to listen to, empty means all
	botUserID  atomic.Value    // string, set once READY arrives
}

// New creates a new Discord connector
func New(token string, channelIDs []string, translator *Translator, logger *slog.Logger) (*Connector, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers | discordgo.IntentMessageContent

	channels := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		channels[id] = true
	}

	return &Connector{
		session:    session,
		translator: translator,
		logger:     logger.With("component", "discord"),
		channels:   channels,
	}, nil
}

// Start begins listening to Discord and blocks until ctx is cancelled
func (c *Connector) Start(ctx context.Context, messageChan chan<- message.Message) error {
	c.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.botUserID.Store(r.User.ID)
		c.logger.Info("connected to discord", "user", r.User.Username)
	})

	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		msg, ok := c.handleMessage(s.State, m.Message, time.Now())
		if !ok {
			return
		}

		select {
		case messageChan <- msg:
		case <-ctx.Done():
		}
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}

	<-ctx.Done()

	c.logger.Info("disconnecting from discord")
	if err := c.session.Close(); err != nil {
		c.logger.Warn("close discord session", "error", err)
	}

	return ctx.Err()
}

// handleMessage filters and translates one gateway message
func (c *Connector) handleMessage(state stateLookup, m *discordgo.Message, receivedAt time.Time) (message.Message, bool) {
	if m.Author == nil || m.Author.ID == c.botUserID.Load() {
		return message.Message{}, false
	}
	if len(c.channels) > 0 && !c.channels[m.ChannelID] {
		return message.Message{}, false
	}

	raw := convertMessage(state, m)
	return c.translator.Translate(raw, receivedAt, true), true
}

// Send relays a message from another platform into a Discord channel
func (c *Connector) Send(ctx context.Context, channelID string, msg message.Message) error {
	content := FormatContent(msg)
	if content == "" {
		return nil
	}

	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

// FormatContent renders a message from another platform as Discord markdown
func FormatContent(msg message.Message) string {
	if strings.TrimSpace(msg.Text) == "" && len(msg.Attachments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("**")
	b.WriteString(escapeMarkdown(msg.Sender.DisplayName))
	b.WriteString("** ")
	b.WriteString(msg.Text)
	for _, url := range msg.Attachments {
		b.WriteByte('\n')
		b.WriteString(url)
	}

	content := b.String()
	if utf8.RuneCountInString(content) > maxContentLength {
		content = string([]rune(content)[:maxContentLength])
	}
	return content
}

var markdownEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "~", `\~`, "`", "\\`", "|", `\|`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
