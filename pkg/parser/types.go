// Package parser turns exported chat transcripts into ordered message records.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire format for message timestamps: ISO 8601
// without a zone offset, second precision.
const TimestampLayout = "2006-01-02T15:04:05"

// Message is a single user message recovered from a transcript.
type Message struct {
	// Sender is the normalized display name.
	Sender string

	// Body is the normalized message text. Continuation lines are joined
	// with "\n".
	Body string

	// Timestamp is the wall-clock time from the message-start line. It
	// carries no zone information and is always in UTC.
	Timestamp time.Time
}

// wireMessage is the JSON shape of a Message.
type wireMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON encodes the message as {sender, message, timestamp}.
// Non-ASCII and HTML characters are written as-is.
func (m Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(wireMessage{
		Sender:    m.Sender,
		Message:   m.Body,
		Timestamp: m.Timestamp.Format(TimestampLayout),
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the {sender, message, timestamp} shape.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.Parse(TimestampLayout, w.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", w.Timestamp, err)
	}
	m.Sender = w.Sender
	m.Body = w.Message
	m.Timestamp = ts
	return nil
}

// Stats counts how the lines of a single transcript were classified.
// It is informational only and never affects the parsed output.
type Stats struct {
	// Lines is the number of lines after splitting.
	Lines int `json:"lines"`

	// StartLines is the number of lines matching the message-start grammar.
	StartLines int `json:"start_lines"`

	// ContinuationLines is the number of lines not matching the grammar.
	ContinuationLines int `json:"continuation_lines"`

	// DroppedLines counts continuation lines that arrived with no open message.
	DroppedLines int `json:"dropped_lines"`

	// BadTimestamps counts start lines discarded because neither clock
	// format parsed.
	BadTimestamps int `json:"bad_timestamps"`

	// SystemMessages counts start lines discarded as system notices.
	SystemMessages int `json:"system_messages"`

	// Messages is the number of records emitted.
	Messages int `json:"messages"`
}
