// Package detector samples a chat transcript and reports which clock format
// its message-start lines use.
package detector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/chatclean/pkg/parser"
)

// DefaultSampleSize is the number of non-empty lines sampled by default.
const DefaultSampleSize = 100

// LineKind classifies a sampled line.
type LineKind int

const (
	// KindContinuation is a line that does not match the message-start grammar.
	KindContinuation LineKind = iota
	// KindStart12Hour is a message start with a 12-hour timestamp.
	KindStart12Hour
	// KindStart24Hour is a message start with a 24-hour timestamp.
	KindStart24Hour
	// KindBadTimestamp is a message start whose timestamp fits neither format.
	KindBadTimestamp
)

// String returns a short name for the kind.
func (k LineKind) String() string {
	switch k {
	case KindStart12Hour:
		return "start-12h"
	case KindStart24Hour:
		return "start-24h"
	case KindBadTimestamp:
		return "bad-timestamp"
	default:
		return "continuation"
	}
}

// LineClass is the classification of one sampled line.
type LineClass struct {
	Line   string
	Kind   LineKind
	System bool // Start line whose body is a system notice
}

// DetectionResult holds the result of sampling a transcript.
type DetectionResult struct {
	Matches           []FormatMatch // Formats that matched, sorted by confidence descending
	Lines             []LineClass   // Per-line classification in sample order
	SampledLines      int           // Number of lines sampled
	StartLines        int           // Lines matching the message-start grammar
	ContinuationLines int           // Lines that continue a previous message
	BadTimestamps     int           // Start lines with an unparseable timestamp
	SystemMessages    int           // Start lines carrying a system notice
	MixedNote         string        // Warning when both clock formats appear
}

// FormatMatch represents a clock format with its confidence score.
type FormatMatch struct {
	Format     *ClockFormat
	Confidence float64   // 0.0 to 1.0, share of start lines in this format
	MatchCount int       // Number of start lines in this format
	SampleLine string    // First line in this format
	ParsedTime time.Time // Timestamp parsed from the sample line
}

// Detector samples transcripts to identify their clock format.
type Detector struct {
	formats    []*ClockFormat
	parser     *parser.Parser
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithParser uses p's system phrases when flagging system notices.
func WithParser(p *parser.Parser) Option {
	return func(d *Detector) {
		if p != nil {
			d.parser = p
		}
	}
}

// New creates a new Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		parser:     parser.New(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples a transcript file.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// Classify reports the kind of a single line.
func (d *Detector) Classify(line string) LineClass {
	line = parser.StripFormat(line)
	class := LineClass{Line: line, Kind: KindContinuation}

	start, ok := parser.MatchStart(line)
	if !ok {
		return class
	}

	_, clock, err := parser.ParseTimestamp(start.Date, start.Time, start.Meridiem)
	if err != nil {
		class.Kind = KindBadTimestamp
		return class
	}

	switch clock {
	case parser.Clock12Hour:
		class.Kind = KindStart12Hour
	case parser.Clock24Hour:
		class.Kind = KindStart24Hour
	}
	class.System = d.parser.IsSystemMessage(parser.NormalizeBody(start.Text))
	return class
}

// DetectFromLines classifies a slice of transcript lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	type formatStats struct {
		format     *ClockFormat
		matchCount int
		sampleLine string
		parsedTime time.Time
	}
	stats := make(map[parser.Clock]*formatStats)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if result.SampledLines >= d.sampleSize {
			break
		}
		result.SampledLines++

		class := d.Classify(line)
		result.Lines = append(result.Lines, class)

		switch class.Kind {
		case KindContinuation:
			result.ContinuationLines++
			continue
		case KindBadTimestamp:
			result.StartLines++
			result.BadTimestamps++
			continue
		}

		result.StartLines++
		if class.System {
			result.SystemMessages++
		}

		start, _ := parser.MatchStart(class.Line)
		ts, clock, _ := parser.ParseTimestamp(start.Date, start.Time, start.Meridiem)
		if stats[clock] == nil {
			stats[clock] = &formatStats{
				format:     formatFor(d.formats, clock),
				sampleLine: class.Line,
				parsedTime: ts,
			}
		}
		stats[clock].matchCount++
	}

	for _, s := range stats {
		if s.format == nil {
			continue
		}
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(result.StartLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			ParsedTime: s.parsedTime,
		})
	}

	// Ties go to the format the parser tries first.
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].MatchCount != result.Matches[j].MatchCount {
			return result.Matches[i].MatchCount > result.Matches[j].MatchCount
		}
		return result.Matches[i].Format.Clock < result.Matches[j].Format.Clock
	})

	if len(result.Matches) > 1 {
		result.MixedNote = fmt.Sprintf(
			"Transcript mixes clock formats (%d %s, %d %s). Both are parsed; check the export settings if this is unexpected.",
			result.Matches[0].MatchCount, result.Matches[0].Format.Clock,
			result.Matches[1].MatchCount, result.Matches[1].Format.Clock)
	}

	return result
}

// sampleFile reads up to sampleSize non-empty lines from a file using the
// parser's line terminators.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), parser.MaxTranscriptSize)
	scanner.Split(parser.ScanLines)

	for len(lines) < d.sampleSize && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
