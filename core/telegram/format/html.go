// Package format builds Telegram HTML message fragments.
package format

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// Escape makes text safe inside an HTML parse mode message.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// Code wraps escaped text in <code>.
func Code(text string) string {
	return "<code>" + Escape(text) + "</code>"
}

// Link renders an anchor; the label is escaped and the URL attribute quoted.
func Link(label, url string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), Escape(label))
}

// Truncate cuts text to at most max runes, marking the cut with an ellipsis.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimRightFunc(string(runes[:max-1]), func(r rune) bool { return r == ' ' || r == '\n' }) + "…"
}

// Lines joins non-empty lines with newlines.
func Lines(lines ...string) string {
	out := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
