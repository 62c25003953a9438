package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"
)

func TestCrashReport_CapturesContext(t *testing.T) {
	crash = &crashContext{}
	SetVersion("1.2.3")
	SetCommand("generate")
	SetPrompt("  build a todo app  ")
	SetStage("run-1", "coder")

	report := newCrashReport("boom", time.Unix(0, 0))

	if report.PanicValue != "boom" {
		t.Errorf("PanicValue = %q", report.PanicValue)
	}
	if report.Version != "1.2.3" || report.Command != "generate" {
		t.Errorf("unexpected version/command: %+v", report)
	}
	if report.Prompt != "build a todo app" {
		t.Errorf("Prompt = %q", report.Prompt)
	}
	if report.RunID != "run-1" || report.Stage != "coder" {
		t.Errorf("unexpected run/stage: %q/%q", report.RunID, report.Stage)
	}
	if report.StackTrace == "" {
		t.Error("expected a stack trace")
	}
}

func TestSetPrompt_Truncates(t *testing.T) {
	crash = &crashContext{}
	SetPrompt(strings.Repeat("a", 3000))

	if len(crash.prompt) > 1100 {
		t.Errorf("prompt not truncated: %d", len(crash.prompt))
	}
	if !strings.HasSuffix(crash.prompt, "[truncated]") {
		t.Error("expected truncation marker")
	}
}

func TestSetPrompt_TruncatesOnCharacterBoundary(t *testing.T) {
	crash = &crashContext{}
	SetPrompt("a" + strings.Repeat("ü", 1000))

	if !utf8.ValidString(crash.prompt) {
		t.Errorf("truncated prompt is not valid UTF-8: %q", crash.prompt[990:])
	}
	if want := "a" + strings.Repeat("ü", 499) + "... [truncated]"; crash.prompt != want {
		t.Errorf("prompt = %q", crash.prompt[len(crash.prompt)-40:])
	}
}

func TestWriteCrashReport_PrunesOldReports(t *testing.T) {
	dir := t.TempDir()
	crash = &crashContext{dir: dir}

	for i := 0; i < MaxCrashReports+3; i++ {
		name := fmt.Sprintf("crash_20240101_0000%02d.000.json", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, err := writeCrashReport(newCrashReport("x", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("writeCrashReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded CrashReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}

	reports, err := ListCrashReports(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != MaxCrashReports {
		t.Errorf("kept %d reports, want %d", len(reports), MaxCrashReports)
	}
	if reports[len(reports)-1] != path {
		t.Errorf("newest report should survive, got %v", reports[len(reports)-1])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"":       zapcore.InfoLevel,
		"bogus":  zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	log := L()
	prev := Level()
	t.Cleanup(func() { level.SetLevel(prev) })

	SetLevel("warn")
	if Level() != zapcore.WarnLevel {
		t.Fatalf("Level() = %v, want warn", Level())
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled after SetLevel(warn)")
	}

	SetLevel("bogus")
	if Level() != zapcore.InfoLevel {
		t.Errorf("unknown level should fall back to info, got %v", Level())
	}
}
