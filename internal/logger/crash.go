package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxCrashReports is the number of crash reports kept on disk.
const MaxCrashReports = 10

type crashContext struct {
	mu      sync.RWMutex
	dir     string
	version string
	command string
	prompt  string
	runID   string
	stage   string
}

var crash = &crashContext{}

// SetCrashDir sets where crash reports are written.
func SetCrashDir(dir string) {
	crash.mu.Lock()
	defer crash.mu.Unlock()
	crash.dir = dir
}

// SetVersion records the binary version for crash reports.
func SetVersion(version string) {
	crash.mu.Lock()
	defer crash.mu.Unlock()
	crash.version = version
}

// SetCommand records the CLI command being executed.
func SetCommand(cmd string) {
	crash.mu.Lock()
	defer crash.mu.Unlock()
	crash.command = cmd
}

// SetPrompt records the project description of the current run.
func SetPrompt(prompt string) {
	crash.mu.Lock()
	defer crash.mu.Unlock()
	crash.prompt = truncate(strings.TrimSpace(prompt), 1000)
}

// SetStage records the pipeline stage currently executing.
func SetStage(runID, stage string) {
	crash.mu.Lock()
	defer crash.mu.Unlock()
	crash.runID = runID
	crash.stage = stage
}

func truncate(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	for maxLen > 0 && !utf8.RuneStart(value[maxLen]) {
		maxLen--
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashReport is the JSON document written when the process panics.
type CrashReport struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	Command    string    `json:"command,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Prompt     string    `json:"prompt,omitempty"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	GoVersion  string    `json:"go_version"`
	Platform   string    `json:"platform"`
}

// HandlePanic recovers a panic, writes a crash report, and exits.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	report := newCrashReport(r, time.Now())
	path, err := writeCrashReport(report)
	L().Error("panic", zap.Any("value", r), zap.String("stage", report.Stage), zap.String("run_id", report.RunID))
	Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] could not write crash report: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] panic: %v\n%s\n", r, report.StackTrace)
	} else {
		fmt.Fprintf(os.Stderr, "\nThe builder crashed unexpectedly. Report saved to:\n  %s\n", path)
	}
	os.Exit(2)
}

func newCrashReport(value any, now time.Time) CrashReport {
	crash.mu.RLock()
	defer crash.mu.RUnlock()
	return CrashReport{
		Timestamp:  now,
		Version:    crash.version,
		Command:    crash.command,
		RunID:      crash.runID,
		Stage:      crash.stage,
		Prompt:     crash.prompt,
		PanicValue: fmt.Sprintf("%v", value),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func crashDir() string {
	crash.mu.RLock()
	defer crash.mu.RUnlock()
	if crash.dir == "" {
		return filepath.Join(".builder", "crash")
	}
	return crash.dir
}

func writeCrashReport(report CrashReport) (string, error) {
	dir := crashDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode crash report: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash_%s.json", report.Timestamp.Format("20060102_150405.000")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	if err := pruneCrashReports(dir, MaxCrashReports); err != nil {
		L().Warn("prune crash reports", zap.Error(err))
	}
	return path, nil
}

// pruneCrashReports keeps only the newest keep reports in dir.
func pruneCrashReports(dir string, keep int) error {
	reports, err := ListCrashReports(dir)
	if err != nil || len(reports) <= keep {
		return err
	}
	for _, p := range reports[:len(reports)-keep] {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// ListCrashReports returns report paths in dir, oldest first.
func ListCrashReports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".json") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
