package parser

import "strings"

// DefaultSystemPhrases are substrings that mark a message as a notice
// generated by the chat application rather than written by a participant.
// Matching is case-sensitive.
var DefaultSystemPhrases = []string{
	"Messages and calls are end-to-end encrypted",
	"image omitted",
	"video omitted",
	"GIF omitted",
	"document omitted",
	"changed their phone number to a new number",
	"added ~",
	"created this group",
	"This message was deleted.",
	"added you",
	"was added",
	"Waiting for this message",
}

// IsSystemMessage reports whether body contains any of the default system
// phrases.
func IsSystemMessage(body string) bool {
	return containsAny(body, DefaultSystemPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsSystemMessage reports whether body contains any phrase this parser
// filters on.
func (p *Parser) IsSystemMessage(body string) bool {
	return containsAny(body, p.phrases)
}
