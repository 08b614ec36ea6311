package discord

import (
	"strings"

	"github.com/samber/lo"

	"github.com/john/chatbridge/internal/message"
)

// flattenEmbeds collapses each embed into one text blob plus its image
func flattenEmbeds(embeds []Embed) []message.Embed {
	return lo.Map(embeds, func(e Embed, _ int) message.Embed {
		return message.Embed{
			Text:     e.flatten(),
			ImageURL: lo.FromPtr(e.ImageURL),
		}
	})
}

// flatten renders "title: description\n" followed by "name: value" rows
// separated by newlines. Separators only appear between present parts.
func (e Embed) flatten() string {
	var b strings.Builder

	writeJoined(&b, e.Title, e.Description)
	if e.Title != nil || e.Description != nil {
		b.WriteByte('\n')
	}

	for i, f := range e.Fields {
		writeJoined(&b, f.Name, f.Value)
		if i < len(e.Fields)-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func writeJoined(b *strings.Builder, left, right *string) {
	if left != nil {
		b.WriteString(*left)
	}
	if left != nil && right != nil {
		b.WriteString(": ")
	}
	if right != nil {
		b.WriteString(*right)
	}
}
