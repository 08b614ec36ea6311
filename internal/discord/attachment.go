package discord

import (
	"path"
	"strings"

	"github.com/samber/lo"
)

var imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "tiff", "svg"}

// resolveAttachments maps attachments to URLs in order. Images use the
// proxy URL since it is mirrored by Discord and does not expire.
func resolveAttachments(attachments []Attachment) []string {
	return lo.Map(attachments, func(a Attachment, _ int) string {
		if a.isImage() {
			return a.ProxyURL
		}
		return a.URL
	})
}

func (a Attachment) isImage() bool {
	if a.ContentType != "" {
		return strings.HasPrefix(a.ContentType, "image/")
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(a.Filename)), ".")
	return lo.Contains(imageExtensions, ext)
}
