package detector

import "github.com/ccollicutt/chatclean/pkg/parser"

// ClockFormat describes one of the timestamp layouts a transcript may use.
type ClockFormat struct {
	Name     string       // Human-readable name
	Clock    parser.Clock // Clock convention
	Layout   string       // Go time layout for the joined date and time
	Examples []string     // Example message-start lines
}

// DefaultFormats returns the clock formats a transcript can carry, in the
// order the parser tries them.
func DefaultFormats() []*ClockFormat {
	return []*ClockFormat{
		{
			Name:   "12-hour with AM/PM",
			Clock:  parser.Clock12Hour,
			Layout: parser.Layout12Hour,
			Examples: []string{
				"[01/02/23, 9:15:00 AM] Alice: Hello",
				"[01/02/23, 11:05:42 PM] Bob: Night",
			},
		},
		{
			Name:   "24-hour",
			Clock:  parser.Clock24Hour,
			Layout: parser.Layout24Hour,
			Examples: []string{
				"[01/02/23, 09:15:00] Alice: Hello",
				"[01/02/23, 23:05:42] Bob: Night",
			},
		},
	}
}

func formatFor(formats []*ClockFormat, c parser.Clock) *ClockFormat {
	for _, f := range formats {
		if f.Clock == c {
			return f
		}
	}
	return nil
}
