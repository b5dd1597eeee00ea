package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[]()~` + "`" + `>#+-=|{}.!`

// MessageMaxLength is Telegram's limit for a single text message.
const MessageMaxLength = 4096

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Bold wraps already escaped text in MarkdownV2 bold markers.
func Bold(escaped string) string {
	return "*" + escaped + "*"
}

// Split breaks escaped MarkdownV2 text into chunks of at most limit bytes.
// It prefers line boundaries, never splits a UTF-8 sequence and never
// separates a backslash from the character it escapes.
func Split(text string, limit int) []string {
	if limit <= 1 {
		limit = MessageMaxLength
	}
	if len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	lines := strings.SplitAfter(text, "\n")
	for _, line := range lines {
		if current.Len()+len(line) <= limit {
			current.WriteString(line)
			continue
		}

		flush()

		for len(line) > limit {
			cut := cutPoint(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

func cutPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	// Count backslashes before the cut: an odd run means the last one escapes
	// s[cut] and must travel with it.
	run := 0
	for i := cut - 1; i >= 0 && s[i] == '\\'; i-- {
		run++
	}
	if run%2 == 1 {
		cut--
	}

	if cut <= 0 {
		return limit
	}
	return cut
}
