package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatclean/pkg/config"
	"github.com/ccollicutt/chatclean/pkg/detector"
	"github.com/ccollicutt/chatclean/pkg/parser"
)

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigPath string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [transcript]...",
		Short: "Diagnose common configuration and transcript issues",
		Long: `Diagnose common configuration and transcript issues.

Checks:
- Config file syntax and structure (with --config)
- Temp directory is writable
- Transcript existence, size and UTF-8 encoding
- How many lines parse as messages, notices or noise
- Webhook configuration (and reachability with -v)

Example:
  chatclean diagnose chat.txt
  chatclean diagnose -c chatclean.yaml -v exports/*.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, transcripts []string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []DiagnosticResult{}

	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		result := checkConfigExists(opts.ConfigPath)
		results = append(results, result)
		if result.Status == statusError {
			printDiagnostics(w, results, opts)
			return nil
		}

		var loaded *config.Config
		loaded, result = checkConfigParseable(ctx, opts.ConfigPath)
		results = append(results, result)
		if result.Status == statusError {
			printDiagnostics(w, results, opts)
			return nil
		}
		cfg = loaded
	}

	results = append(results, checkTempDir(cfg))

	p := parser.New(parser.WithExtraSystemPhrases(cfg.Parser.ExtraSystemPhrases...))
	results = append(results, checkTranscripts(ctx, p, transcripts, opts)...)

	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = statusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Omit --config to run with built-in defaults",
		}
		return result
	}
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = statusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = statusWarning
		result.Message = "Config file is empty; defaults will be used"
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("Found: %s (%s)", path, humanize.Bytes(uint64(info.Size())))
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = statusOK
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Listen address: %s", cfg.Server.Addr),
		fmt.Sprintf("Max upload size: %s", cfg.Server.MaxUploadSize),
		fmt.Sprintf("Extra system phrases: %d", len(cfg.Parser.ExtraSystemPhrases)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkTempDir(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Temp Directory",
	}

	if !cfg.Output.PersistTempFile {
		result.Status = statusOK
		result.Message = "Persistence disabled"
		return result
	}

	dir := cfg.Output.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	f, err := os.CreateTemp(dir, ".chatclean-diagnose-*")
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot write to %s: %v", dir, err)
		result.Suggests = []string{
			"Set output.temp_dir or CHATCLEAN_TEMP_DIR to a writable directory",
			"Or set output.persist_temp_file: false",
		}
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = statusOK
	result.Message = fmt.Sprintf("Writable: %s", dir)
	return result
}

func checkTranscripts(ctx context.Context, p *parser.Parser, patterns []string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(patterns) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Transcripts",
				Status:  statusOK,
				Message: "No transcripts given (optional)",
			})
		}
		return results
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		return append(results, DiagnosticResult{
			Check:   "Transcripts",
			Status:  statusError,
			Message: fmt.Sprintf("Invalid glob pattern: %v", err),
		})
	}

	for _, f := range files {
		results = append(results, checkTranscript(ctx, p, f, opts))
	}
	return results
}

func checkTranscript(ctx context.Context, p *parser.Parser, path string, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Transcript: %s", path),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = statusError
		result.Message = "File does not exist"
		result.Suggests = []string{"Check if the transcript path is correct"}
		return result
	case err != nil:
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	case info.Size() == 0:
		result.Status = statusWarning
		result.Message = "File is empty (0 bytes)"
		return result
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided transcript paths
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot read file: %v", err)
		return result
	}
	if !utf8.Valid(data) {
		result.Status = statusError
		result.Message = "File is not valid UTF-8"
		result.Suggests = []string{
			"Re-export the chat, or convert it with: iconv -t UTF-8 " + path,
		}
		return result
	}

	msgs, stats := p.Parse(string(data))
	result.Details = []string{
		fmt.Sprintf("Size: %s", humanize.Bytes(uint64(info.Size()))),
		fmt.Sprintf("Lines: %s", humanize.Comma(int64(stats.Lines))),
		fmt.Sprintf("Message starts: %d", stats.StartLines),
		fmt.Sprintf("System notices: %d", stats.SystemMessages),
		fmt.Sprintf("Unparseable timestamps: %d", stats.BadTimestamps),
		fmt.Sprintf("Orphan continuation lines: %d", stats.DroppedLines),
	}

	if opts.Verbose {
		d := detector.New(detector.WithParser(p))
		if det, err := d.DetectFromFile(ctx, path); err == nil && det.HasMatch() {
			result.Details = append(result.Details, fmt.Sprintf("Clock format: %s", det.BestMatch().Format.Name))
			if det.MixedNote != "" {
				result.Details = append(result.Details, det.MixedNote)
			}
		}
	}

	switch {
	case stats.StartLines == 0:
		result.Status = statusError
		result.Message = "No message-start lines found"
		result.Suggests = []string{
			"Lines must look like \"[DD/MM/YY, H:MM:SS AM] Name: text\"",
			"Use 'chatclean detect " + path + " --lines' to see how lines are classified",
		}
	case stats.BadTimestamps > 0 || stats.DroppedLines > 0:
		result.Status = statusWarning
		result.Message = fmt.Sprintf("%d message(s); some lines will be discarded", len(msgs))
	default:
		result.Status = statusOK
		result.Message = fmt.Sprintf("%d message(s)", len(msgs))
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== chatclean Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case statusOK:
			icon = "PASS"
			okCount++
		case statusWarning:
			icon = "WARN"
			warnCount++
		case statusError:
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != statusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before parsing.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nUsable, but some input will be discarded.")
	} else {
		fmt.Fprintln(w, "\nEverything looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  statusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// URL and trigger errors were already rejected by config.Load.
	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  statusOK,
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}

		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = statusWarning
			result.Message = "Trigger is \"never\"; this webhook is disabled"
		}
		if wh.Token == "" && strings.HasPrefix(wh.URL, "https://") {
			result.Details = append(result.Details, "No token configured")
		}
		if opts.Verbose {
			result.Details = append(result.Details,
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			)
		}

		results = append(results, result)
	}

	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = statusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (deliveries will still work)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
