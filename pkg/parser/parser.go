package parser

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when transcript bytes are not valid UTF-8.
// No messages are returned alongside it.
var ErrInvalidUTF8 = errors.New("transcript is not valid UTF-8")

const initialLineBuffer = 64 * 1024

// Parser converts transcripts into messages. A Parser is immutable after
// construction and safe for concurrent use.
type Parser struct {
	phrases []string
}

// Option configures a Parser.
type Option func(*Parser)

// WithExtraSystemPhrases adds phrases to the default system-message list.
// Empty phrases are ignored since they would match every message.
func WithExtraSystemPhrases(phrases ...string) Option {
	return func(p *Parser) {
		for _, phrase := range phrases {
			if phrase != "" {
				p.phrases = append(p.phrases, phrase)
			}
		}
	}
}

// New creates a Parser with the default system phrases.
func New(opts ...Option) *Parser {
	p := &Parser{
		phrases: append([]string(nil), DefaultSystemPhrases...),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SystemPhrases returns a copy of the phrases this parser filters on.
func (p *Parser) SystemPhrases() []string {
	return append([]string(nil), p.phrases...)
}

var defaultParser = New()

// Parse converts a transcript with the default configuration.
func Parse(text string) []Message {
	msgs, _ := defaultParser.Parse(text)
	return msgs
}

// ParseBytes validates that data is UTF-8 and parses it with the default
// configuration.
func ParseBytes(data []byte) ([]Message, error) {
	msgs, _, err := defaultParser.ParseBytes(data)
	return msgs, err
}

// ParseBytes validates that data is UTF-8 before parsing it.
func (p *Parser) ParseBytes(data []byte) ([]Message, Stats, error) {
	if !utf8.Valid(data) {
		return nil, Stats{}, ErrInvalidUTF8
	}
	msgs, stats := p.Parse(string(data))
	return msgs, stats, nil
}

// openMessage is the record currently receiving continuation lines.
type openMessage struct {
	msg  Message
	body strings.Builder
}

func (o *openMessage) close() Message {
	m := o.msg
	m.Body = o.body.String()
	return m
}

// Parse converts a transcript into messages in transcript order.
//
// Start lines with a timestamp in neither clock format are skipped and leave
// the open message untouched. Start lines carrying a system notice close the
// open message and are dropped, along with any continuation lines after them.
func (p *Parser) Parse(text string) ([]Message, Stats) {
	text = StripFormat(text)

	var (
		out   = make([]Message, 0)
		open  *openMessage
		stats Stats
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, initialLineBuffer), len(text)+1)
	sc.Split(ScanLines)

	for sc.Scan() {
		line := sc.Text()
		stats.Lines++

		start, ok := MatchStart(line)
		if !ok {
			stats.ContinuationLines++
			if open == nil {
				stats.DroppedLines++
				continue
			}
			open.body.WriteByte('\n')
			open.body.WriteString(normalizeContinuation(line))
			continue
		}

		stats.StartLines++
		ts, _, err := ParseTimestamp(start.Date, start.Time, start.Meridiem)
		if err != nil {
			stats.BadTimestamps++
			continue
		}

		if open != nil {
			out = append(out, open.close())
			open = nil
		}

		body := NormalizeBody(start.Text)
		if p.IsSystemMessage(body) {
			stats.SystemMessages++
			continue
		}

		open = &openMessage{msg: Message{
			Sender:    NormalizeSender(start.Sender),
			Timestamp: ts,
		}}
		open.body.WriteString(body)
	}

	if open != nil {
		out = append(out, open.close())
	}
	stats.Messages = len(out)
	return out, stats
}

// ScanLines is a bufio.SplitFunc that ends a line at "\n", "\r\n" or a bare
// "\r". A final unterminated line is returned as-is.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			// Need one more byte to tell "\r" from "\r\n".
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
