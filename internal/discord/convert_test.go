package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotCached = errors.New("not cached")

type fakeState struct {
	members  map[string]*discordgo.Member // key: userID
	roles    map[string]*discordgo.Role
	channels map[string]*discordgo.Channel
}

func (f *fakeState) Member(_, userID string) (*discordgo.Member, error) {
	if m, ok := f.members[userID]; ok {
		return m, nil
	}
	return nil, errNotCached
}

func (f *fakeState) Role(_, roleID string) (*discordgo.Role, error) {
	if r, ok := f.roles[roleID]; ok {
		return r, nil
	}
	return nil, errNotCached
}

func (f *fakeState) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errNotCached
}

func newFakeState() *fakeState {
	return &fakeState{
		members: map[string]*discordgo.Member{
			"u1": {Nick: "ally"},
		},
		roles: map[string]*discordgo.Role{
			"555": {ID: "555", Name: "mods"},
		},
		channels: map[string]*discordgo.Channel{
			"c1": {ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			"c2": {ID: "c2", Name: "memes", Type: discordgo.ChannelTypeGuildText},
			"v1": {ID: "v1", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
			"t1": {ID: "t1", GuildID: "g1", Name: "threads", Type: discordgo.ChannelTypeGuildText},
		},
	}
}

const (
	pogEmoji   = "<:pog:123456789012345678>"
	danceEmoji = "<a:dance:876543210987654321>"
)

func TestConvertMessage_Basics(t *testing.T) {
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "hey <@u2> see <#c2> " + pogEmoji,
		Author:    &discordgo.User{ID: "u1", Username: "alice", GlobalName: "Alice A"},
		Mentions:  []*discordgo.User{{ID: "u2", Username: "bob"}},
	}

	raw := convertMessage(newFakeState(), m)

	assert.Equal(t, "m1", raw.ID)
	assert.Equal(t, Author{ID: "u1", Username: "alice", GlobalName: "Alice A"}, raw.Author)
	require.NotNil(t, raw.Member)
	assert.Equal(t, "ally", raw.Member.Nick)
	assert.Equal(t, "hey @bob see #memes :pog:", raw.DisplayContent)
	assert.Equal(t, m.Content, raw.RawContent)
	assert.Equal(t, []CustomEmoji{{ID: "123456789012345678", Name: "pog"}}, raw.CustomEmojis)
	assert.Equal(t, Channel{ID: "c1", Name: "general", Type: ChannelTypeText}, raw.Channel)
}

func TestConvertMessage_UserAndRoleMentions(t *testing.T) {
	m := &discordgo.Message{
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "ping <@&555> and <@u1>, <@!u3>, <@u4> <@&404>",
		Author:    &discordgo.User{ID: "u2", Username: "bob"},
		Mentions: []*discordgo.User{
			{ID: "u1", Username: "alice"},
			{ID: "u3", Username: "carol", GlobalName: "Carol C"},
			{ID: "u4", Username: "dave"},
		},
		MentionRoles: []string{"555", "404"},
	}

	raw := convertMessage(newFakeState(), m)

	assert.Equal(t, "ping @mods and @ally, @Carol C, @dave <@&404>", raw.DisplayContent)
}

func TestConvertMessage_GuildFromChannel(t *testing.T) {
	m := &discordgo.Message{
		ChannelID: "t1",
		Content:   "hi <@u1>",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
		Mentions:  []*discordgo.User{{ID: "u1", Username: "alice"}},
	}

	raw := convertMessage(newFakeState(), m)

	require.NotNil(t, raw.Member)
	assert.Equal(t, "ally", raw.Member.Nick)
	assert.Equal(t, "hi @ally", raw.DisplayContent)
}

func TestConvertMessage_UnknownChannelMentionKept(t *testing.T) {
	m := &discordgo.Message{ChannelID: "c1", Content: "see <#404>", Author: &discordgo.User{ID: "u9"}}

	raw := convertMessage(newFakeState(), m)

	assert.Equal(t, "see <#404>", raw.DisplayContent)
}

func TestConvertMessage_ChannelTypes(t *testing.T) {
	state := newFakeState()

	voice := convertMessage(state, &discordgo.Message{ChannelID: "v1", Author: &discordgo.User{ID: "u1"}})
	assert.Equal(t, ChannelTypeOther, voice.Channel.Type)

	missing := convertMessage(state, &discordgo.Message{ChannelID: "zz", Author: &discordgo.User{ID: "u1"}})
	assert.Equal(t, Channel{ID: "zz", Name: "zz", Type: ChannelTypeOther}, missing.Channel)
}

func TestConvertMessage_MemberFallbacks(t *testing.T) {
	state := newFakeState()

	partial := convertMessage(state, &discordgo.Message{
		ChannelID: "c1",
		GuildID:   "g1",
		Author:    &discordgo.User{ID: "u5", Username: "eve"},
		Member:    &discordgo.Member{Nick: "evie"},
	})
	require.NotNil(t, partial.Member)
	assert.Equal(t, "evie", partial.Member.Nick)

	unknown := convertMessage(state, &discordgo.Message{
		ChannelID: "c1",
		GuildID:   "g1",
		Author:    &discordgo.User{ID: "u5", Username: "eve"},
	})
	assert.Nil(t, unknown.Member)

	dm := convertMessage(state, &discordgo.Message{
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	})
	assert.Nil(t, dm.Member)
}

func TestConvertMessage_ReferenceOneLevel(t *testing.T) {
	inner := &discordgo.Message{ID: "c", ChannelID: "c1", Content: "C", Author: &discordgo.User{ID: "u1"}}
	middle := &discordgo.Message{ID: "b", ChannelID: "c1", Content: "B", Author: &discordgo.User{ID: "u1"}, ReferencedMessage: inner}
	outer := &discordgo.Message{ID: "a", ChannelID: "c1", Content: "A", Author: &discordgo.User{ID: "u1"}, ReferencedMessage: middle}

	raw := convertMessage(newFakeState(), outer)

	require.NotNil(t, raw.Reference)
	assert.Equal(t, "b", raw.Reference.ID)
	assert.Nil(t, raw.Reference.Reference)
}

func TestConvertMessage_ReferenceUsesParentGuild(t *testing.T) {
	reply := &discordgo.Message{
		ID:           "b",
		ChannelID:    "c1",
		Content:      "original <@&555>",
		Author:       &discordgo.User{ID: "u1", Username: "alice", GlobalName: "Alice A"},
		MentionRoles: []string{"555"},
	}
	m := &discordgo.Message{
		ID:                "a",
		ChannelID:         "c1",
		GuildID:           "g1",
		Content:           "answer",
		Author:            &discordgo.User{ID: "u2", Username: "bob"},
		Member:            &discordgo.Member{Nick: "bobby"},
		ReferencedMessage: reply,
	}

	raw := convertMessage(newFakeState(), m)

	require.NotNil(t, raw.Reference)
	require.NotNil(t, raw.Reference.Member)
	assert.Equal(t, "ally", raw.Reference.Member.Nick)
	assert.Equal(t, "original @mods", raw.Reference.DisplayContent)

	tr, logs := debugTranslator()
	got := tr.Translate(raw, receivedAt, true)

	assert.Equal(t, "bobby", got.Sender.DisplayName)
	require.NotNil(t, got.Reference)
	assert.Equal(t, "ally", got.Reference.Sender.DisplayName)
	assert.NotContains(t, logs.String(), "member lookup miss")
}

func TestConvertMessage_Snapshots(t *testing.T) {
	m := &discordgo.Message{
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "u1"},
		MessageSnapshots: []discordgo.MessageSnapshot{
			{Message: &discordgo.Message{
				Content:      "forwarded",
				Attachments:  []*discordgo.MessageAttachment{{Filename: "a.png", URL: "u", ProxyURL: "p"}},
				StickerItems: []*discordgo.StickerItem{{ID: "s1", Name: "wave", FormatType: discordgo.StickerFormatTypePNG}},
			}},
			{},
		},
	}

	raw := convertMessage(newFakeState(), m)

	require.Len(t, raw.Snapshots, 2)
	assert.Equal(t, "forwarded", raw.Snapshots[0].RawContent)
	assert.Len(t, raw.Snapshots[0].Attachments, 1)
	assert.Len(t, raw.Snapshots[0].Stickers, 1)
	assert.Equal(t, RawSnapshot{}, raw.Snapshots[1])
}

func TestParseCustomEmojis(t *testing.T) {
	got := parseCustomEmojis("a " + pogEmoji + " b " + danceEmoji + " c " + pogEmoji)

	assert.Equal(t, []CustomEmoji{
		{ID: "123456789012345678", Name: "pog"},
		{ID: "876543210987654321", Name: "dance", Animated: true},
	}, got)
	assert.Empty(t, parseCustomEmojis("no emoji here"))
}

func TestConvertStickers(t *testing.T) {
	got := convertStickers([]*discordgo.StickerItem{
		{ID: "1", Name: "png", FormatType: discordgo.StickerFormatTypePNG},
		{ID: "2", Name: "apng", FormatType: discordgo.StickerFormatTypeAPNG},
		{ID: "3", Name: "lottie", FormatType: discordgo.StickerFormatTypeLottie},
		nil,
		{ID: "4", Name: "gif", FormatType: discordgo.StickerFormatTypeGIF},
	})

	assert.Equal(t, []Sticker{
		{ID: "1", Name: "png", Format: StickerFormatRaster, IconURL: "https://cdn.discordapp.com/stickers/1.png"},
		{ID: "2", Name: "apng", Format: StickerFormatRaster, IconURL: "https://cdn.discordapp.com/stickers/2.png"},
		{ID: "3", Name: "lottie", Format: StickerFormatVector, IconURL: "https://cdn.discordapp.com/stickers/3.json"},
		{ID: "4", Name: "gif", Format: StickerFormatUnknown, IconURL: "https://cdn.discordapp.com/stickers/4.gif"},
	}, got)
}

func TestConvertEmbeds(t *testing.T) {
	got := convertEmbeds([]*discordgo.MessageEmbed{
		{
			Title: "T",
			Image: &discordgo.MessageEmbedImage{URL: "https://img/x.png"},
			Fields: []*discordgo.MessageEmbedField{
				{Name: "A", Value: "B"},
				nil,
				{Name: "C"},
			},
		},
		nil,
		{},
	})

	require.Len(t, got, 2)
	assert.Equal(t, Embed{
		Title:    lo.ToPtr("T"),
		ImageURL: lo.ToPtr("https://img/x.png"),
		Fields: []EmbedField{
			{Name: lo.ToPtr("A"), Value: lo.ToPtr("B")},
			{Name: lo.ToPtr("C")},
		},
	}, got[0])
	assert.Equal(t, Embed{}, got[1])
}
