package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ccollicutt/chatclean/pkg/parser"
)

const displayTimeLayout = "2006-01-02 15:04:05"

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "chatclean: %s cleaned from %s\n",
		plural(report.MessagesCleaned, "message"),
		plural(len(report.Metadata.Sources), "source"))
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Cleaned Transcript ===")
	fmt.Fprintln(w)

	for i := range report.Data {
		f.formatMessage(&report.Data[i], w)
	}
	if len(report.Data) == 0 {
		fmt.Fprintln(w, "No messages found")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %s from %s\n",
		plural(report.MessagesCleaned, "message"),
		plural(len(report.Senders()), "sender"))

	for _, sc := range report.Senders() {
		fmt.Fprintf(w, "  %-20s %s\n", sc.Sender, humanize.Comma(int64(sc.Count)))
	}

	if f.opts.Verbose {
		s := report.Metadata.Stats
		fmt.Fprintf(w, "Lines processed: %s\n", humanize.Comma(int64(s.Lines)))
		fmt.Fprintf(w, "Continuation lines: %d (dropped: %d)\n", s.ContinuationLines, s.DroppedLines)
		fmt.Fprintf(w, "System messages: %d\n", s.SystemMessages)
		fmt.Fprintf(w, "Bad timestamps: %d\n", s.BadTimestamps)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatMessage(m *parser.Message, w io.Writer) {
	fmt.Fprintf(w, "[%s] %s\n", m.Timestamp.Format(displayTimeLayout), m.Sender)
	for _, line := range strings.Split(m.Body, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
