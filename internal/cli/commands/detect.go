package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatclean/pkg/config"
	"github.com/ccollicutt/chatclean/pkg/detector"
	"github.com/ccollicutt/chatclean/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output     string
	SampleSize int
	ShowLines  bool
	ConfigPath string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <transcript>",
		Short: "Detect the clock format of a transcript",
		Long: `Sample a transcript and report which clock format its messages use.

Each sampled line is classified as a 12-hour message start, a 24-hour
message start, a message start with an unparseable timestamp, or a
continuation of the previous message. System notices are counted too.

Example:
  chatclean detect chat.txt
  chatclean detect -n 500 --lines chat.txt
  chatclean detect -o json chat.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of non-empty lines to sample")
	cmd.Flags().BoolVar(&opts.ShowLines, "lines", false, "Show the classification of every sampled line")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (for extra system phrases)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	path := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("transcript not found: %s", path)
	}

	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithParser(parser.New(parser.WithExtraSystemPhrases(cfg.Parser.ExtraSystemPhrases...))),
	)

	result, err := d.DetectFromFile(ctx, path)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(cmd.OutOrStdout(), result, path, opts)
	default:
		return outputDetectText(cmd.OutOrStdout(), result, path, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, path string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Clock Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Message starts: %d\n", result.StartLines)
	fmt.Fprintf(w, "Continuation lines: %d\n", result.ContinuationLines)
	if result.BadTimestamps > 0 {
		fmt.Fprintf(w, "Unparseable timestamps: %d\n", result.BadTimestamps)
	}
	if result.SystemMessages > 0 {
		fmt.Fprintf(w, "System notices: %d\n", result.SystemMessages)
	}
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No message-start lines detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: Lines must look like \"[DD/MM/YY, H:MM:SS AM] Name: text\".")
		fmt.Fprintln(w, "Check that the file is a chat export and not a different log format.")
	} else {
		best := result.BestMatch()
		fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
		fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d message starts)\n",
			best.Confidence*100, best.MatchCount, result.StartLines)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
		fmt.Fprintf(w, "Parsed as: %s\n", best.ParsedTime.Format(parser.TimestampLayout))
		fmt.Fprintln(w)

		if result.MixedNote != "" {
			fmt.Fprintf(w, "Note: %s\n", result.MixedNote)
			fmt.Fprintln(w)
		}
	}

	if opts.ShowLines {
		fmt.Fprintln(w, "--- Sampled lines ---")
		for i, l := range result.Lines {
			marker := ""
			if l.System {
				marker = " (system)"
			}
			fmt.Fprintf(w, "%4d %-14s%s %s\n", i+1, l.Kind, marker, truncate(l.Line, 80))
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Clock      string  `json:"clock"`
	Layout     string  `json:"layout"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONLine represents a classified line in JSON output.
type JSONLine struct {
	Line   string `json:"line"`
	Kind   string `json:"kind"`
	System bool   `json:"system,omitempty"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File              string      `json:"file"`
	Matches           []JSONMatch `json:"matches"`
	SampledLines      int         `json:"sampled_lines"`
	StartLines        int         `json:"start_lines"`
	ContinuationLines int         `json:"continuation_lines"`
	BadTimestamps     int         `json:"bad_timestamps"`
	SystemMessages    int         `json:"system_messages"`
	MixedNote         string      `json:"mixed_note,omitempty"`
	Lines             []JSONLine  `json:"lines,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, path string, opts *DetectOptions) error {
	out := JSONOutput{
		File:              path,
		Matches:           make([]JSONMatch, 0, len(result.Matches)),
		SampledLines:      result.SampledLines,
		StartLines:        result.StartLines,
		ContinuationLines: result.ContinuationLines,
		BadTimestamps:     result.BadTimestamps,
		SystemMessages:    result.SystemMessages,
		MixedNote:         result.MixedNote,
	}

	for _, m := range result.Matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Clock:      m.Format.Clock.String(),
			Layout:     m.Format.Layout,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	if opts.ShowLines {
		for _, l := range result.Lines {
			out.Lines = append(out.Lines, JSONLine{Line: l.Line, Kind: l.Kind.String(), System: l.System})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(out)
}
