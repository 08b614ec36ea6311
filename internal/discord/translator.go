package discord

import (
	"io"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/john/chatbridge/internal/message"
)

// Translator converts resolved Discord messages into unified messages.
// It holds no mutable state and is safe for concurrent use.
type Translator struct {
	logger      *slog.Logger
	renderProxy string
}

// NewTranslator creates a translator. An empty renderProxy selects
// DefaultStickerRenderProxy and a nil logger discards diagnostics.
func NewTranslator(logger *slog.Logger, renderProxy string) *Translator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if renderProxy == "" {
		renderProxy = DefaultStickerRenderProxy
	}
	return &Translator{
		logger:      logger,
		renderProxy: renderProxy,
	}
}

// Translate builds a unified message from raw. When allowResolve is set the
// replied-to message is translated as well, but never its own reply.
// Unsupported or malformed content degrades to fallback text and a debug log.
func (t *Translator) Translate(raw *RawMessage, receivedAt time.Time, allowResolve bool) message.Message {
	sender := t.resolveSender(raw)

	attachments := resolveAttachments(raw.Attachments)

	emojiURLs := lo.Map(raw.CustomEmojis, func(e CustomEmoji, _ int) string {
		return e.ImageURL()
	})
	attachments = append(attachments, emojiURLs...)

	text, attachments := t.appendStickers(raw.DisplayContent, attachments, raw.Stickers)

	embeds := flattenEmbeds(raw.Embeds)
	reference := t.resolveReference(raw, receivedAt, allowResolve)
	snapshots := t.resolveSnapshots(raw.Snapshots, emojiURLs)

	if raw.Channel.Type != ChannelTypeText {
		t.logger.Debug("unsupported channel type", "channel", raw.Channel.ID, "type", raw.Channel.Type)
	}

	return message.Message{
		Text:   text,
		Sender: sender,
		Source: message.Source{
			ChannelName: raw.Channel.Name,
			ChannelID:   raw.Channel.ID,
			Platform:    message.PlatformDiscord,
		},
		ReceivedAt:  receivedAt,
		Attachments: attachments,
		Reference:   reference,
		Embeds:      embeds,
		Snapshots:   snapshots,
	}
}

func (t *Translator) resolveSender(raw *RawMessage) message.Sender {
	if raw.Member == nil && !raw.Author.Bot {
		t.logger.Debug("member lookup miss", "user", raw.Author.ID, "username", raw.Author.Username)
	}

	// webhooks and DMs have no member record
	name := raw.Author.Username
	if raw.Member != nil {
		name = lo.CoalesceOrEmpty(raw.Member.Nick, raw.Author.GlobalName, raw.Author.Username)
	}

	return message.Sender{
		DisplayName: name,
		ID:          raw.Author.ID,
	}
}

// resolveReference translates the replied-to message one level deep
func (t *Translator) resolveReference(raw *RawMessage, receivedAt time.Time, allowResolve bool) *message.Message {
	if !allowResolve || raw.Reference == nil {
		return nil
	}

	ref := t.Translate(raw.Reference, receivedAt, false)
	return &ref
}

// resolveSnapshots normalizes forwarded messages. Custom emoji come from the
// parent message since Discord does not report mentions inside snapshots.
func (t *Translator) resolveSnapshots(snapshots []RawSnapshot, parentEmoji []string) []message.Snapshot {
	return lo.Map(snapshots, func(s RawSnapshot, _ int) message.Snapshot {
		attachments := append(resolveAttachments(s.Attachments), parentEmoji...)
		text, attachments := t.appendStickers(s.RawContent, attachments, s.Stickers)

		return message.Snapshot{
			Text:        text,
			Attachments: attachments,
			Embeds:      flattenEmbeds(s.Embeds),
		}
	})
}
