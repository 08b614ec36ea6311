package twitch

import (
	"strings"
	"unicode/utf8"

	"github.com/john/chatbridge/internal/message"
)

const (
	// maxLineLength keeps each PRIVMSG under the Twitch 500 character limit
	maxLineLength = 450

	referenceContextLength = 60
)

// FormatLines renders a unified message as IRC chat lines. The sender prefix
// goes on every line so each one reads correctly on its own.
func FormatLines(msg message.Message) []string {
	prefix := "<" + msg.Sender.DisplayName + "> "

	var lines []string
	add := func(tag, text string) {
		for _, l := range strings.Split(text, "\n") {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			lines = append(lines, truncate(prefix+tag+l, maxLineLength))
		}
	}

	if msg.HasReference() {
		ref := msg.Reference
		add("↪ ", ref.Sender.DisplayName+": "+truncate(strings.ReplaceAll(ref.Text, "\n", " "), referenceContextLength))
	}

	add("", msg.Text)
	for _, url := range msg.Attachments {
		add("", url)
	}
	for _, e := range msg.Embeds {
		add("", e.Text)
		add("", e.ImageURL)
	}

	for _, s := range msg.Snapshots {
		add("[fwd] ", s.Text)
		for _, url := range s.Attachments {
			add("[fwd] ", url)
		}
		for _, e := range s.Embeds {
			add("[fwd] ", e.Text)
			add("[fwd] ", e.ImageURL)
		}
	}

	return lines
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
