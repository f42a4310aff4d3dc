package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/chatclean/pkg/config"
)

const sampleTranscript = "[01/02/23, 9:15:00 AM] Alice: Hello\n" +
	"[01/02/23, 9:16:00 AM] Bob: Hi Alice\n" +
	"how are you?\n" +
	"[01/02/23, 9:17:00 AM] Alice: image omitted\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// wireReport mirrors the JSON report for assertions.
type wireReport struct {
	Status          string `json:"status"`
	MessagesCleaned int    `json:"messages_cleaned"`
	Data            []struct {
		Sender    string `json:"sender"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}

func TestNewParseCommand(t *testing.T) {
	cmd := NewParseCommand()

	if cmd.Use != "parse <transcript>..." {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"config", "output", "write", "verbose", "quiet", "webhook-url", "webhook-token", "webhook-trigger"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	if cmd.Use != "serve" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
	for _, flag := range []string{"config", "addr"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := buf.String(); got != "chatclean "+Version+"\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunValidate_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "config.yaml", `server:
  addr: ":9000"
  max_upload_size: 5MB
  rate_limit:
    rps: 2
parser:
  extra_system_phrases:
    - "pinned a message"
webhooks:
  - name: archive
    url: https://example.com/hook
`)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Configuration valid!",
		":9000",
		"5.0 MB",
		"2 req/s (burst 10)",
		`"pinned a message"`,
		"1. archive [on_messages]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "invalid.yaml", "invalid: yaml: content")

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})
	cmd.SetOut(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetArgs([]string{"/nonexistent/config.yaml"})
	cmd.SetOut(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunParse_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chat.txt", sampleTranscript)

	cmd := NewParseCommand()
	cmd.SetArgs([]string{path})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var got wireReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}

	if got.Status != "success" {
		t.Errorf("status = %q", got.Status)
	}
	if got.MessagesCleaned != 2 || len(got.Data) != 2 {
		t.Fatalf("messages = %d/%d, want 2", got.MessagesCleaned, len(got.Data))
	}
	if got.Data[1].Sender != "Bob" || got.Data[1].Message != "Hi Alice\nhow are you?" {
		t.Errorf("second message = %+v", got.Data[1])
	}
	if got.Data[0].Timestamp != "2023-02-01T09:15:00" {
		t.Errorf("timestamp = %q", got.Data[0].Timestamp)
	}
}

func TestRunParse_MultipleFilesInOrder(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "b.txt", "[01/02/23, 08:00:00] Bob: from b\n")
	writeFile(t, tmpDir, "a.txt", "[02/02/23, 08:00:00] Alice: from a\n")

	cmd := NewParseCommand()
	cmd.SetArgs([]string{filepath.Join(tmpDir, "*.txt")})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var got wireReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(got.Data) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Data))
	}
	// Files are concatenated in sorted order, not merged by time.
	if got.Data[0].Message != "from a" || got.Data[1].Message != "from b" {
		t.Errorf("order = %q, %q", got.Data[0].Message, got.Data[1].Message)
	}
}

func TestRunParse_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chat.txt", sampleTranscript)

	cmd := NewParseCommand()
	cmd.SetArgs([]string{"-o", "text", "-v", path})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"=== Cleaned Transcript ===", "[2023-02-01 09:15:00] Alice", "System messages: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunParse_WriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "chat.txt", sampleTranscript)
	outPath := filepath.Join(tmpDir, "out.json")

	cmd := NewParseCommand()
	cmd.SetArgs([]string{"-q", "-w", outPath, path})
	cmd.SetOut(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var got wireReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON in report file: %v", err)
	}
	// The written report is always complete, even with -q.
	if len(got.Data) != 2 {
		t.Errorf("written messages = %d, want 2", len(got.Data))
	}
}

func TestRunParse_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	good := writeFile(t, tmpDir, "chat.txt", sampleTranscript)
	bad := writeFile(t, tmpDir, "latin1.txt", "[01/02/23, 9:15:00 AM] Alice: caf\xe9\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing file", args: []string{filepath.Join(tmpDir, "nope.txt")}, want: "nope.txt"},
		{name: "invalid utf-8", args: []string{bad}, want: "not valid UTF-8"},
		{name: "bad output format", args: []string{"-o", "xml", good}, want: "xml"},
		{name: "missing config", args: []string{"-c", "/nonexistent.yaml", good}, want: "loading config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewParseCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.ExecuteContext(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRunParse_Webhook(t *testing.T) {
	var received wireReport
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeFile(t, t.TempDir(), "chat.txt", sampleTranscript)

	cmd := NewParseCommand()
	cmd.SetArgs([]string{"--webhook-url", srv.URL, "--webhook-token", "secret", path})

	var stderr bytes.Buffer
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if received.MessagesCleaned != 2 {
		t.Errorf("webhook received %d messages, want 2", received.MessagesCleaned)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.Contains(stderr.String(), "Webhook cli: sent") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunParse_WebhookFailureDoesNotFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := writeFile(t, t.TempDir(), "chat.txt", sampleTranscript)

	cmd := NewParseCommand()
	cmd.SetArgs([]string{"--webhook-url", srv.URL, path})

	var stderr bytes.Buffer
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "failed") {
		t.Errorf("stderr = %q, want failure notice", stderr.String())
	}
}

func TestCollectWebhooks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Webhooks = []config.WebhookConfig{{Name: "file", URL: "https://example.com/a"}}

	t.Run("config only", func(t *testing.T) {
		hooks := collectWebhooks(cfg, &ParseOptions{})
		if len(hooks) != 1 {
			t.Errorf("len = %d, want 1", len(hooks))
		}
	})

	t.Run("cli appended", func(t *testing.T) {
		hooks := collectWebhooks(cfg, &ParseOptions{WebhookURL: "https://example.com/b"})
		if len(hooks) != 2 {
			t.Fatalf("len = %d, want 2", len(hooks))
		}
		cli := hooks[1]
		if cli.Name != "cli" || cli.Trigger != config.WebhookTriggerOnMessages || cli.Timeout != config.DefaultWebhookTimeout {
			t.Errorf("cli hook = %+v", cli)
		}
	})

	t.Run("cli trigger", func(t *testing.T) {
		hooks := collectWebhooks(cfg, &ParseOptions{WebhookURL: "https://example.com/b", WebhookTrigger: "always"})
		if hooks[1].Trigger != config.WebhookTriggerAlways {
			t.Errorf("trigger = %s", hooks[1].Trigger)
		}
	})
}

func TestRunDetect_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chat.txt", sampleTranscript)

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"--lines", path})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Detected Format: 12-hour with AM/PM",
		"Confidence: 100.0% (3/3 message starts)",
		"Parsed as: 2023-02-01T09:15:00",
		"System notices: 1",
		"continuation",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDetect_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chat.txt",
		"[01/02/23, 9:15:00 AM] Alice: one\n[01/02/23, 21:15:00] Bob: two\n[01/02/23, 21:16:00] Bob: three\n")

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"-o", "json", path})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var got JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(got.Matches))
	}
	if got.Matches[0].Clock != "24-hour" || got.Matches[0].MatchCount != 2 {
		t.Errorf("best match = %+v", got.Matches[0])
	}
	if got.MixedNote == "" {
		t.Error("expected mixed clock note")
	}
	if got.Lines != nil {
		t.Error("lines should be omitted without --lines")
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.log", "2024-01-15 10:00:00 INFO started\n")

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{path})

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No message-start lines detected") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"/nonexistent/chat.txt"})
	cmd.SetOut(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "transcript not found") {
		t.Errorf("error = %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
