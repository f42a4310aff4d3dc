// Package output provides formatting and persistence for cleaned transcripts.
package output

import (
	"time"

	"github.com/ccollicutt/chatclean/pkg/parser"
)

// StatusSuccess is the status reported for a completed parse.
const StatusSuccess = "success"

// Report is the envelope returned to clients.
type Report struct {
	Status          string           `json:"status"`
	MessagesCleaned int              `json:"messages_cleaned"`
	Data            []parser.Message `json:"data"`

	// Metadata is not part of the wire format.
	Metadata Metadata `json:"-"`
}

// Metadata provides context about the parse run.
type Metadata struct {
	// Sources lists the transcripts that were parsed.
	Sources []string

	// ParsedAt is when the parse finished.
	ParsedAt time.Time

	// Duration is how long the parse took.
	Duration time.Duration

	// Stats aggregates parser counters across all sources.
	Stats parser.Stats
}

// NewReport wraps parsed messages in a success envelope.
func NewReport(msgs []parser.Message) *Report {
	if msgs == nil {
		msgs = []parser.Message{}
	}
	return &Report{
		Status:          StatusSuccess,
		MessagesCleaned: len(msgs),
		Data:            msgs,
	}
}

// HasMessages returns true if at least one message was kept.
func (r *Report) HasMessages() bool {
	return r.MessagesCleaned > 0
}

// SenderCount is the number of messages attributed to one sender.
type SenderCount struct {
	Sender string
	Count  int
}

// Senders returns per-sender message counts in order of first appearance.
func (r *Report) Senders() []SenderCount {
	index := make(map[string]int)
	var counts []SenderCount
	for _, m := range r.Data {
		i, ok := index[m.Sender]
		if !ok {
			i = len(counts)
			index[m.Sender] = i
			counts = append(counts, SenderCount{Sender: m.Sender})
		}
		counts[i].Count++
	}
	return counts
}

// AddStats accumulates parser counters into the report metadata.
func (m *Metadata) AddStats(s parser.Stats) {
	m.Stats.Lines += s.Lines
	m.Stats.StartLines += s.StartLines
	m.Stats.ContinuationLines += s.ContinuationLines
	m.Stats.DroppedLines += s.DroppedLines
	m.Stats.BadTimestamps += s.BadTimestamps
	m.Stats.SystemMessages += s.SystemMessages
	m.Stats.Messages += s.Messages
}
