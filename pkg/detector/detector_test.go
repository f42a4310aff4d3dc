package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/chatclean/pkg/parser"
)

func TestDetector_DetectFromLines_12Hour(t *testing.T) {
	lines := []string{
		"[01/02/23, 9:15:00 AM] Alice: Hello",
		"[01/02/23, 9:16:00 AM] Bob: Hi",
		"[01/02/23, 1:16:00 PM] Alice: Lunch?",
	}

	d := New()
	result := d.DetectFromLines(lines)

	if !result.HasMatch() {
		t.Fatal("Expected to detect a format")
	}

	best := result.BestMatch()
	if best.Format.Clock != parser.Clock12Hour {
		t.Errorf("Expected 12-hour, got %s", best.Format.Clock)
	}
	if best.Confidence != 1.0 {
		t.Errorf("Expected 100%% confidence, got %.1f%%", best.Confidence*100)
	}
	if best.MatchCount != 3 {
		t.Errorf("Expected 3 matches, got %d", best.MatchCount)
	}
	if !best.ParsedTime.Equal(time.Date(2023, 2, 1, 9, 15, 0, 0, time.UTC)) {
		t.Errorf("ParsedTime = %v", best.ParsedTime)
	}
	if result.MixedNote != "" {
		t.Errorf("Unexpected mixed note: %s", result.MixedNote)
	}
}

func TestDetector_DetectFromLines_24Hour(t *testing.T) {
	lines := []string{
		"[01/02/23, 09:15:00] Alice: Hello",
		"[01/02/23, 21:16:00] Bob: Hi",
	}

	result := New().DetectFromLines(lines)

	best := result.BestMatch()
	if best == nil {
		t.Fatal("Expected to detect a format")
	}
	if best.Format.Clock != parser.Clock24Hour {
		t.Errorf("Expected 24-hour, got %s", best.Format.Clock)
	}
	if best.Format.Layout != parser.Layout24Hour {
		t.Errorf("Layout = %q, want %q", best.Format.Layout, parser.Layout24Hour)
	}
}

func TestDetector_DetectFromLines_Classification(t *testing.T) {
	lines := []string{
		"[01/02/23, 9:15:00 AM] Alice: Hello",
		"second line",
		"",
		"[31/02/23, 9:16:00 AM] Bob: bad date",
		"[01/02/23, 9:17:00 AM] Carol: image omitted",
	}

	result := New().DetectFromLines(lines)

	if result.SampledLines != 4 {
		t.Errorf("SampledLines = %d, want 4 (blank lines skipped)", result.SampledLines)
	}
	if result.StartLines != 3 {
		t.Errorf("StartLines = %d, want 3", result.StartLines)
	}
	if result.ContinuationLines != 1 {
		t.Errorf("ContinuationLines = %d, want 1", result.ContinuationLines)
	}
	if result.BadTimestamps != 1 {
		t.Errorf("BadTimestamps = %d, want 1", result.BadTimestamps)
	}
	if result.SystemMessages != 1 {
		t.Errorf("SystemMessages = %d, want 1", result.SystemMessages)
	}

	wantKinds := []LineKind{KindStart12Hour, KindContinuation, KindBadTimestamp, KindStart12Hour}
	if len(result.Lines) != len(wantKinds) {
		t.Fatalf("len(Lines) = %d, want %d", len(result.Lines), len(wantKinds))
	}
	for i, want := range wantKinds {
		if result.Lines[i].Kind != want {
			t.Errorf("Lines[%d].Kind = %s, want %s", i, result.Lines[i].Kind, want)
		}
	}
	if !result.Lines[3].System {
		t.Error("Lines[3] should be flagged as a system notice")
	}

	best := result.BestMatch()
	if best.MatchCount != 2 {
		t.Errorf("MatchCount = %d, want 2", best.MatchCount)
	}
	if got, want := best.Confidence, 2.0/3.0; got != want {
		t.Errorf("Confidence = %v, want %v", got, want)
	}
}

func TestDetector_DetectFromLines_Mixed(t *testing.T) {
	lines := []string{
		"[01/02/23, 9:15:00 AM] Alice: Hello",
		"[01/02/23, 21:16:00] Bob: Hi",
		"[01/02/23, 22:16:00] Bob: Again",
	}

	result := New().DetectFromLines(lines)

	if len(result.Matches) != 2 {
		t.Fatalf("len(Matches) = %d, want 2", len(result.Matches))
	}
	if result.Matches[0].Format.Clock != parser.Clock24Hour {
		t.Errorf("Expected 24-hour first, got %s", result.Matches[0].Format.Clock)
	}
	if result.MixedNote == "" {
		t.Error("Expected a mixed-format note")
	}
	if !strings.Contains(result.MixedNote, "2 24-hour") {
		t.Errorf("MixedNote = %q", result.MixedNote)
	}
}

func TestDetector_DetectFromLines_TieFavours12Hour(t *testing.T) {
	lines := []string{
		"[01/02/23, 21:16:00] Bob: Hi",
		"[01/02/23, 9:15:00 AM] Alice: Hello",
	}

	result := New().DetectFromLines(lines)
	if result.BestMatch().Format.Clock != parser.Clock12Hour {
		t.Errorf("Expected tie to favour 12-hour, got %s", result.BestMatch().Format.Clock)
	}
}

func TestDetector_DetectFromLines_FormatCharacters(t *testing.T) {
	lines := []string{"\u200e[01/02/23, 9:15:00\u202fAM] Alice: Hello"}

	result := New().DetectFromLines(lines)
	if !result.HasMatch() {
		t.Fatal("Expected format characters to be ignored")
	}
	if result.Lines[0].Kind != KindStart12Hour {
		t.Errorf("Kind = %s, want start-12h", result.Lines[0].Kind)
	}
}

func TestDetector_DetectFromLines_NoMatch(t *testing.T) {
	lines := []string{
		"just some text",
		"more text",
	}

	result := New().DetectFromLines(lines)
	if result.HasMatch() {
		t.Error("Expected no match for plain text")
	}
	if result.BestMatch() != nil {
		t.Error("BestMatch() should be nil")
	}
	if result.ContinuationLines != 2 {
		t.Errorf("ContinuationLines = %d, want 2", result.ContinuationLines)
	}
}

func TestDetector_DetectFromLines_EmptyInput(t *testing.T) {
	result := New().DetectFromLines(nil)
	if result.HasMatch() {
		t.Error("Expected no match for empty input")
	}
	if result.SampledLines != 0 {
		t.Errorf("SampledLines = %d, want 0", result.SampledLines)
	}
}

func TestDetector_DetectFromLines_SampleSize(t *testing.T) {
	lines := []string{
		"[01/02/23, 9:15:00 AM] Alice: one",
		"[01/02/23, 9:16:00 AM] Alice: two",
		"[01/02/23, 9:17:00 AM] Alice: three",
	}

	result := New(WithSampleSize(2)).DetectFromLines(lines)
	if result.SampledLines != 2 {
		t.Errorf("SampledLines = %d, want 2", result.SampledLines)
	}
}

func TestDetector_WithParser(t *testing.T) {
	p := parser.New(parser.WithExtraSystemPhrases("Missed voice call"))
	d := New(WithParser(p))

	class := d.Classify("[01/02/23, 9:15:00 AM] Alice: Missed voice call")
	if !class.System {
		t.Error("Expected extra phrase to be flagged as a system notice")
	}

	class = New().Classify("[01/02/23, 9:15:00 AM] Alice: Missed voice call")
	if class.System {
		t.Error("Default detector should not flag the extra phrase")
	}
}

func TestDetector_WithSampleSize(t *testing.T) {
	d := New(WithSampleSize(50))
	if d.sampleSize != 50 {
		t.Errorf("Expected sample size 50, got %d", d.sampleSize)
	}
}

func TestDetector_WithSampleSize_Invalid(t *testing.T) {
	d := New(WithSampleSize(-1))
	if d.sampleSize != DefaultSampleSize {
		t.Errorf("Expected default sample size %d, got %d", DefaultSampleSize, d.sampleSize)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "chat.txt")

	content := "[01/02/23, 9:15:00 AM] Alice: Hello\r\n" +
		"second line\r\n" +
		"[01/02/23, 9:16:00 AM] Bob: Hi\r\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	result, err := New().DetectFromFile(context.Background(), tmpFile)
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}

	if result.SampledLines != 3 {
		t.Errorf("SampledLines = %d, want 3", result.SampledLines)
	}
	best := result.BestMatch()
	if best == nil || best.Format.Clock != parser.Clock12Hour {
		t.Fatalf("Expected 12-hour, got %+v", best)
	}
	if best.SampleLine != "[01/02/23, 9:15:00 AM] Alice: Hello" {
		t.Errorf("SampleLine = %q", best.SampleLine)
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	_, err := New().DetectFromFile(context.Background(), "/nonexistent/chat.txt")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestDetector_DetectFromFile_Cancelled(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "chat.txt")
	if err := os.WriteFile(tmpFile, []byte("[01/02/23, 9:15:00 AM] Alice: Hello\n"), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().DetectFromFile(ctx, tmpFile); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestDefaultFormats(t *testing.T) {
	formats := DefaultFormats()
	if len(formats) != 2 {
		t.Fatalf("len(DefaultFormats()) = %d, want 2", len(formats))
	}

	for _, f := range formats {
		if f.Name == "" || f.Layout == "" {
			t.Errorf("format %+v missing name or layout", f)
		}
		for _, ex := range f.Examples {
			class := New().Classify(ex)
			if class.Kind == KindContinuation || class.Kind == KindBadTimestamp {
				t.Errorf("example %q for %s classified as %s", ex, f.Name, class.Kind)
			}
		}
	}
}

func TestLineKind_String(t *testing.T) {
	tests := map[LineKind]string{
		KindContinuation: "continuation",
		KindStart12Hour:  "start-12h",
		KindStart24Hour:  "start-24h",
		KindBadTimestamp: "bad-timestamp",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("LineKind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
