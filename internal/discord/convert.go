package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

var channelMentionPattern = regexp.MustCompile(`<#[^>]*>`)

// stateLookup is the part of *discordgo.State used to resolve members, roles and channels
type stateLookup interface {
	Member(guildID, userID string) (*discordgo.Member, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
	Channel(channelID string) (*discordgo.Channel, error)
}

// convertMessage resolves a gateway message into a RawMessage. Only one level
// of the reply chain is converted; Discord does not deliver deeper levels.
func convertMessage(state stateLookup, m *discordgo.Message) *RawMessage {
	return convert(state, m, guildOf(state, m), true)
}

// convert resolves m within guildID. A referenced_message arrives without
// guild_id, so the reply is resolved in the guild of the message quoting it.
func convert(state stateLookup, m *discordgo.Message, guildID string, withReference bool) *RawMessage {
	raw := &RawMessage{
		ID:             m.ID,
		Member:         lookupMember(state, guildID, m),
		DisplayContent: displayContent(state, guildID, m),
		RawContent:     m.Content,
		Attachments:    convertAttachments(m.Attachments),
		CustomEmojis:   parseCustomEmojis(m.Content),
		Stickers:       convertStickers(m.StickerItems),
		Embeds:         convertEmbeds(m.Embeds),
		Channel:        lookupChannel(state, m.ChannelID),
	}

	if m.Author != nil {
		raw.Author = Author{
			ID:         m.Author.ID,
			Username:   m.Author.Username,
			GlobalName: m.Author.GlobalName,
			Bot:        m.Author.Bot,
		}
	}

	if withReference && m.ReferencedMessage != nil {
		raw.Reference = convert(state, m.ReferencedMessage, guildID, false)
	}

	raw.Snapshots = lo.Map(m.MessageSnapshots, func(s discordgo.MessageSnapshot, _ int) RawSnapshot {
		if s.Message == nil {
			return RawSnapshot{}
		}
		return RawSnapshot{
			RawContent:  s.Message.Content,
			Attachments: convertAttachments(s.Message.Attachments),
			Embeds:      convertEmbeds(s.Message.Embeds),
			Stickers:    convertStickers(s.Message.StickerItems),
		}
	})

	return raw
}

func guildOf(state stateLookup, m *discordgo.Message) string {
	if m.GuildID != "" {
		return m.GuildID
	}
	if ch, err := state.Channel(m.ChannelID); err == nil {
		return ch.GuildID
	}
	return ""
}

func lookupMember(state stateLookup, guildID string, m *discordgo.Message) *Member {
	if guildID == "" || m.Author == nil {
		return nil
	}
	if member, err := state.Member(guildID, m.Author.ID); err == nil {
		return &Member{Nick: member.Nick}
	}
	// partial member sent along with MESSAGE_CREATE
	if m.Member != nil {
		return &Member{Nick: m.Member.Nick}
	}
	return nil
}

func lookupChannel(state stateLookup, channelID string) Channel {
	ch, err := state.Channel(channelID)
	if err != nil {
		return Channel{ID: channelID, Name: channelID, Type: ChannelTypeOther}
	}

	channel := Channel{ID: ch.ID, Name: ch.Name, Type: ChannelTypeOther}
	if ch.Type == discordgo.ChannelTypeGuildText {
		channel.Type = ChannelTypeText
	}
	return channel
}

// displayContent renders user, role, channel and emoji mentions the way the Discord client shows them
func displayContent(state stateLookup, guildID string, m *discordgo.Message) string {
	content := m.Content

	for _, user := range m.Mentions {
		if user == nil {
			continue
		}
		name := "@" + mentionName(state, guildID, user)
		content = strings.NewReplacer("<@"+user.ID+">", name, "<@!"+user.ID+">", name).Replace(content)
	}

	for _, roleID := range m.MentionRoles {
		role, err := state.Role(guildID, roleID)
		if err != nil {
			continue
		}
		content = strings.ReplaceAll(content, "<@&"+roleID+">", "@"+role.Name)
	}

	content = channelMentionPattern.ReplaceAllStringFunc(content, func(mention string) string {
		ch, err := state.Channel(mention[2 : len(mention)-1])
		if err != nil {
			return mention
		}
		return "#" + ch.Name
	})

	return discordgo.EmojiRegex.ReplaceAllStringFunc(content, func(token string) string {
		return ":" + parseEmojiToken(token).Name + ":"
	})
}

// mentionName is the guild display name of a mentioned user
func mentionName(state stateLookup, guildID string, user *discordgo.User) string {
	nick := ""
	if guildID != "" {
		if member, err := state.Member(guildID, user.ID); err == nil {
			nick = member.Nick
		}
	}
	return lo.CoalesceOrEmpty(nick, user.GlobalName, user.Username)
}

// parseCustomEmojis returns each distinct custom emoji in content, in order of first use
func parseCustomEmojis(content string) []CustomEmoji {
	emojis := lo.Map(discordgo.EmojiRegex.FindAllString(content, -1), func(token string, _ int) CustomEmoji {
		return parseEmojiToken(token)
	})
	return lo.UniqBy(emojis, func(e CustomEmoji) string {
		return e.ID
	})
}

// parseEmojiToken splits "<a:name:id>" or "<:name:id>"
func parseEmojiToken(token string) CustomEmoji {
	parts := strings.Split(strings.Trim(token, "<>"), ":")
	if len(parts) != 3 {
		return CustomEmoji{}
	}
	return CustomEmoji{
		ID:       parts[2],
		Name:     parts[1],
		Animated: parts[0] == "a",
	}
}

func convertAttachments(attachments []*discordgo.MessageAttachment) []Attachment {
	return lo.FilterMap(attachments, func(a *discordgo.MessageAttachment, _ int) (Attachment, bool) {
		if a == nil {
			return Attachment{}, false
		}
		return Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			URL:         a.URL,
			ProxyURL:    a.ProxyURL,
		}, true
	})
}

func convertStickers(items []*discordgo.StickerItem) []Sticker {
	return lo.FilterMap(items, func(item *discordgo.StickerItem, _ int) (Sticker, bool) {
		if item == nil {
			return Sticker{}, false
		}
		format, ext := stickerFormat(item.FormatType)
		return Sticker{
			ID:      item.ID,
			Name:    item.Name,
			Format:  format,
			IconURL: stickerCDNPrefix + item.ID + "." + ext,
		}, true
	})
}

func stickerFormat(f discordgo.StickerFormat) (StickerFormat, string) {
	switch f {
	case discordgo.StickerFormatTypePNG, discordgo.StickerFormatTypeAPNG:
		return StickerFormatRaster, "png"
	case discordgo.StickerFormatTypeLottie:
		return StickerFormatVector, "json"
	case discordgo.StickerFormatTypeGIF:
		return StickerFormatUnknown, "gif"
	default:
		return StickerFormatUnknown, ""
	}
}

func convertEmbeds(embeds []*discordgo.MessageEmbed) []Embed {
	return lo.FilterMap(embeds, func(e *discordgo.MessageEmbed, _ int) (Embed, bool) {
		if e == nil {
			return Embed{}, false
		}

		embed := Embed{
			Title:       lo.EmptyableToPtr(e.Title),
			Description: lo.EmptyableToPtr(e.Description),
		}
		if e.Image != nil {
			embed.ImageURL = lo.EmptyableToPtr(e.Image.URL)
		}
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			embed.Fields = append(embed.Fields, EmbedField{
				Name:  lo.EmptyableToPtr(f.Name),
				Value: lo.EmptyableToPtr(f.Value),
			})
		}
		return embed, true
	})
}
