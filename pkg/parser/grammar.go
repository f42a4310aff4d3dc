package parser

import "regexp"

// startPattern matches a message-start line:
//
//	[DD/MM/YY, H:MM:SS[ AM|PM]] sender: message
//
// The separator before the meridiem may be any single space character,
// including the narrow no-break space some exports emit.
var startPattern = regexp.MustCompile(
	`^\[(\d{2}/\d{2}/\d{2}), (\d{1,2}:\d{2}:\d{2})[\s\p{Zs}]?(AM|PM)?\] (.*?): (.*)`,
)

// StartLine holds the raw fields captured from a message-start line.
type StartLine struct {
	Date     string // DD/MM/YY
	Time     string // H:MM:SS or HH:MM:SS
	Meridiem string // "AM", "PM" or empty
	Sender   string
	Text     string
}

// MatchStart reports whether line begins a new message and returns its
// captured fields. Lines that do not match are continuation lines.
func MatchStart(line string) (StartLine, bool) {
	m := startPattern.FindStringSubmatch(line)
	if m == nil {
		return StartLine{}, false
	}
	return StartLine{
		Date:     m[1],
		Time:     m[2],
		Meridiem: m[3],
		Sender:   m[4],
		Text:     m[5],
	}, true
}
