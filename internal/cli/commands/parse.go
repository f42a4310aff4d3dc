package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatclean/pkg/config"
	"github.com/ccollicutt/chatclean/pkg/logger"
	"github.com/ccollicutt/chatclean/pkg/output"
	"github.com/ccollicutt/chatclean/pkg/parser"
	"github.com/ccollicutt/chatclean/pkg/webhook"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	ConfigPath string
	Output     string
	WriteFile  string
	Verbose    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <transcript>...",
		Short: "Clean one or more chat transcripts",
		Long: `Parse exported chat transcripts into structured messages.

Each argument is a file path or glob. Files are parsed independently and
their messages are emitted in file order, then transcript order.

Removes:
  - System notices (encryption banners, omitted media, membership changes)
  - Invisible formatting characters and emoji
  - Lines with timestamps in neither 12-hour nor 24-hour form

Exit codes:
  0 - Transcripts parsed
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "json", "Output format (text|json)")
	cmd.Flags().StringVarP(&opts.WriteFile, "write", "w", "", "Also write the JSON report to this file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include parser statistics")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no messages")

	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnMessages), "When to fire webhook (on_messages|always|never)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Init(logLevel(cmd, cfg))

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding transcripts: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no transcripts matched: %v", args)
	}

	report, err := parseFiles(ctx, cfg, files)
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if opts.WriteFile != "" {
		if err := writeReport(ctx, opts.WriteFile, report); err != nil {
			return err
		}
	}

	sendWebhooks(ctx, cmd.ErrOrStderr(), cfg, opts, report)
	return nil
}

// parseFiles parses each transcript independently and concatenates the
// results in file order.
func parseFiles(ctx context.Context, cfg *config.Config, files []string) (*output.Report, error) {
	p := parser.New(parser.WithExtraSystemPhrases(cfg.Parser.ExtraSystemPhrases...))

	start := time.Now()
	var (
		all  []parser.Message
		meta output.Metadata
	)
	for _, f := range files {
		msgs, stats, err := p.ParseFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		logger.Log.Debug("transcript parsed", "file", f, "messages", len(msgs), "lines", stats.Lines)
		all = append(all, msgs...)
		meta.AddStats(stats)
	}

	report := output.NewReport(all)
	meta.Sources = files
	meta.ParsedAt = time.Now()
	meta.Duration = meta.ParsedAt.Sub(start)
	report.Metadata = meta
	return report, nil
}

func writeReport(ctx context.Context, path string, report *output.Report) error {
	f, err := os.Create(path) // #nosec G304 -- user-provided output path
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	ferr := output.NewJSONFormatter(output.FormatOptions{}).Format(ctx, report, f)
	if cerr := f.Close(); ferr == nil {
		ferr = cerr
	}
	if ferr != nil {
		return fmt.Errorf("writing %s: %w", path, ferr)
	}
	return nil
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are reported to stderr but don't fail the parse.
func sendWebhooks(ctx context.Context, stderr io.Writer, cfg *config.Config, opts *ParseOptions, report *output.Report) {
	hooks := collectWebhooks(cfg, opts)
	if len(hooks) == 0 {
		return
	}

	for _, r := range webhook.NewClient().Dispatch(ctx, hooks, report) {
		if r.Response.Success() {
			fmt.Fprintf(stderr, "Webhook %s: sent (%d, %s)\n", r.Name, r.Response.StatusCode, r.Response.Duration)
		} else {
			fmt.Fprintf(stderr, "Webhook %s: failed (%v)\n", r.Name, r.Response.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ParseOptions) []config.WebhookConfig {
	hooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	hooks = append(hooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnMessages
		}

		hooks = append(hooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return hooks
}

// logLevel prefers an explicit --log-level flag over the configured level.
func logLevel(cmd *cobra.Command, cfg *config.Config) string {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		return f.Value.String()
	}
	return cfg.Logging.Level
}
