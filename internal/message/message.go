package message

import "time"

// Platform identifies the chat network a message came from
type Platform string

const (
	PlatformDiscord Platform = "discord"
	PlatformIRC     Platform = "irc"
	PlatformKick    Platform = "kick"
)

// Message represents a chat message from any platform in a platform-agnostic shape.
// Values are built once by a connector and treated as read-only afterwards.
type Message struct {
	Text        string     `json:"text"`
	Sender      Sender     `json:"sender"`
	Source      Source     `json:"source"`
	ReceivedAt  time.Time  `json:"received_at"`
	Attachments []string   `json:"attachments"`
	Reference   *Message   `json:"reference,omitempty"` // Replied-to message, never carries its own reference
	Embeds      []Embed    `json:"embeds"`
	Snapshots   []Snapshot `json:"snapshots"`
}

// Sender identifies the author of a message
type Sender struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`                     // Platform-specific user ID
	SecondaryID string `json:"secondary_id,omitempty"` // Reserved
}

// Source describes the channel a message was received in
type Source struct {
	ChannelName string   `json:"channel_name"`
	ChannelID   string   `json:"channel_id"`
	Platform    Platform `json:"platform"`
}

// Embed is a rich content block flattened to text plus at most one image
type Embed struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Snapshot is a forwarded copy of another message
type Snapshot struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments"`
	Embeds      []Embed  `json:"embeds"`
}

// HasReference reports whether the message replies to another message
func (m Message) HasReference() bool {
	return m.Reference != nil
}
