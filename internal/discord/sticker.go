package discord

import (
	"net/url"
	"strings"
)

const (
	stickerMediaURL = "https://media.discordapp.net/stickers/%%ID%%.%%FILETYPE%%?size=256"

	// DefaultStickerRenderProxy renders lottie stickers, which IRC clients cannot display
	DefaultStickerRenderProxy = "https://lottie.zachbr.io"

	stickerCDNPrefix = "https://cdn.discordapp.com/stickers/"
	emojiCDNBaseURL  = "https://cdn.discordapp.com/emojis/"

	stickerUnsupportedMarker = "<sticker format not supported>"
)

// resolveSticker returns the text fragment for a sticker and, when the format
// can be viewed outside Discord, a media URL for it.
func (t *Translator) resolveSticker(s Sticker) (string, string, bool) {
	switch s.Format {
	case StickerFormatRaster:
		return s.Name, rasterStickerURL(s.ID), true
	case StickerFormatVector:
		u, ok := t.vectorStickerURL(s.IconURL)
		if !ok {
			t.logger.Debug("malformed sticker icon url", "sticker", s.ID, "icon_url", s.IconURL)
		}
		return s.Name, u, ok
	default:
		t.logger.Debug("unsupported sticker format", "sticker", s.ID, "format", s.Format)
		return s.Name, "", false
	}
}

// appendStickers adds sticker names to text and their media URLs to attachments
func (t *Translator) appendStickers(text string, attachments []string, stickers []Sticker) (string, []string) {
	var b strings.Builder
	b.WriteString(text)

	for _, s := range stickers {
		fragment, mediaURL, ok := t.resolveSticker(s)
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(fragment)

		if ok {
			attachments = append(attachments, mediaURL)
		} else {
			b.WriteString(" " + stickerUnsupportedMarker)
		}
	}

	return b.String(), attachments
}

func rasterStickerURL(id string) string {
	return strings.NewReplacer("%%ID%%", id, "%%FILETYPE%%", "png").Replace(stickerMediaURL)
}

// vectorStickerURL points the render proxy at the sticker's CDN resource.
// The prefix is stripped by length only, matching how Discord builds icon URLs.
func (t *Translator) vectorStickerURL(iconURL string) (string, bool) {
	if len(iconURL) <= len(stickerCDNPrefix) {
		return "", false
	}

	resourcePath := "/stickers/" + iconURL[len(stickerCDNPrefix):]
	return t.renderProxy + "?" + url.Values{"p": {resourcePath}}.Encode(), true
}
