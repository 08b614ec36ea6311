package discord

// RawMessage is a fully resolved Discord message, ready for translation.
// Everything that needs the network (member lookup, channel lookup, the
// replied-to message) has already been fetched by the caller.
type RawMessage struct {
	ID             string
	Author         Author
	Member         *Member // nil when the author is not a known guild member
	DisplayContent string  // Content with mentions rendered as names
	RawContent     string
	Attachments    []Attachment
	CustomEmojis   []CustomEmoji
	Stickers       []Sticker
	Embeds         []Embed
	Reference      *RawMessage
	Snapshots      []RawSnapshot
	Channel        Channel
}

// RawSnapshot is a forwarded message as delivered inside its parent
type RawSnapshot struct {
	RawContent  string
	Attachments []Attachment
	Embeds      []Embed
	Stickers    []Sticker
}

// Author is the account that sent a message
type Author struct {
	ID         string
	Username   string
	GlobalName string
	Bot        bool
}

// Member holds the guild-specific data of an author
type Member struct {
	Nick string
}

// Attachment describes an uploaded file
type Attachment struct {
	Filename    string
	ContentType string
	URL         string
	ProxyURL    string
}

// CustomEmoji is a guild emoji mentioned in the message text
type CustomEmoji struct {
	ID       string
	Name     string
	Animated bool
}

// ImageURL returns the CDN location of the emoji image
func (e CustomEmoji) ImageURL() string {
	ext := "png"
	if e.Animated {
		ext = "gif"
	}
	return emojiCDNBaseURL + e.ID + "." + ext
}

// StickerFormat is the closed set of sticker formats the translator understands
type StickerFormat int

const (
	StickerFormatUnknown StickerFormat = iota
	StickerFormatRaster                // png, apng
	StickerFormatVector                // lottie
)

func (f StickerFormat) String() string {
	switch f {
	case StickerFormatRaster:
		return "raster"
	case StickerFormatVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Sticker describes a sticker sent with a message
type Sticker struct {
	ID      string
	Name    string
	Format  StickerFormat
	IconURL string
}

// Embed is a rich embed as sent by Discord. Nil pointers mean the field is absent.
type Embed struct {
	Title       *string
	Description *string
	Fields      []EmbedField
	ImageURL    *string
}

// EmbedField is a single name/value row of an embed
type EmbedField struct {
	Name  *string
	Value *string
}

// ChannelType is the kind of channel a message was posted in
type ChannelType int

const (
	ChannelTypeText ChannelType = iota
	ChannelTypeOther
)

// Channel describes where a message was posted
type Channel struct {
	ID   string
	Name string
	Type ChannelType
}
