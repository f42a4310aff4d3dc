package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
	"golang.org/x/text/runes"
)

// variationSelector16 requests emoji presentation for the preceding rune.
const variationSelector16 = "\uFE0F"

var formatChars = runes.Remove(runes.In(unicode.Cf))

// StripFormat removes every Unicode format character (category Cf), such as
// directional marks, zero-width joiners and byte order marks.
func StripFormat(s string) string {
	return formatChars.String(s)
}

// StripPictographs removes emoji. Removal works on grapheme clusters so
// modifiers, keycaps, flags and ZWJ sequences go with their base.
func StripPictographs(s string) string {
	if isASCII(s) {
		// Keycap sequences are the only emoji built from ASCII and they
		// need U+FE0F or U+20E3.
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if isEmoji(g.Str()) {
			continue
		}
		b.WriteString(g.Str())
	}
	return b.String()
}

// isEmoji reports whether a grapheme cluster is an emoji. Text-presentation
// forms such as a bare U+25B6 count when their emoji-presentation sequence
// is known, and modified sequences count when their base rune is an emoji.
func isEmoji(cluster string) bool {
	if known(cluster) {
		return true
	}
	if !strings.HasSuffix(cluster, variationSelector16) && known(cluster+variationSelector16) {
		return true
	}
	first, size := utf8.DecodeRuneInString(cluster)
	if size == len(cluster) || first < utf8.RuneSelf {
		return false
	}
	base := cluster[:size]
	return known(base) || known(base+variationSelector16)
}

func known(s string) bool {
	_, err := gomoji.GetInfo(s)
	return err == nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// NormalizeSender cleans a captured sender name: one leading archival "~"
// marker and surrounding whitespace are trimmed, then format characters and
// pictographs are removed.
func NormalizeSender(sender string) string {
	sender = strings.TrimSpace(strings.TrimPrefix(sender, "~"))
	return StripPictographs(StripFormat(sender))
}

// NormalizeBody cleans the text captured from a message-start line.
func NormalizeBody(text string) string {
	return StripPictographs(StripFormat(strings.TrimSpace(text)))
}

// normalizeContinuation cleans a continuation line. Format characters were
// already removed from the whole transcript.
func normalizeContinuation(line string) string {
	return StripPictographs(strings.TrimSpace(line))
}
