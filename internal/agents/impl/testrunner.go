package impl

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

const maxTestOutput = 1000

var (
	pytestVersionCmd = []string{"python", "-m", "pytest", "--version"}
	pytestRunCmd     = []string{"python", "-m", "pytest", "tests/", "-v", "--tb=short"}
)

// TestRunner executes generated tests where it can. It never fails the
// pipeline: anything it cannot run is reported for manual verification.
type TestRunner struct {
	core.Base
}

// NewTestRunner creates the test runner stage.
func NewTestRunner(deps core.Deps) *TestRunner {
	return &TestRunner{Base: core.NewBase(StageTestRunner, "Runs generated tests", deps)}
}

// Run implements core.Stage.
func (r *TestRunner) Run(ctx context.Context, s state.State) (state.Update, error) {
	log := r.Logger()
	trs := s.TestRunState.OrElse(state.TestRunState{})
	tp, ok := trs.TestPlan.Get()
	if !ok || len(tp.TestFiles) == 0 {
		log.Info("no tests to run")
		return r.complete(state.TestRunState{TestPlan: trs.TestPlan, Results: []state.TestResult{}, AllPassed: true}), nil
	}

	framework := strings.ToLower(tp.TestFramework)
	if framework == "" {
		framework = FrameworkManual
	}
	log = log.With(zap.String("framework", framework), zap.Int("tests", len(tp.TestFiles)))

	var results []state.TestResult
	switch framework {
	case FrameworkPytest:
		results = r.runPytest(ctx, tp, log)
	case FrameworkManual:
		results = r.checkManual(tp)
	default:
		for _, tc := range tp.TestFiles {
			results = append(results, state.TestResult{
				TestName: tc.TestName,
				Passed:   true,
				Output:   fmt.Sprintf("Unknown framework '%s' - manual verification required", framework),
			})
		}
	}

	out := state.TestRunState{TestPlan: trs.TestPlan, Results: results}.Tally()
	log.Info("tests complete",
		zap.Int("total", out.TotalTests),
		zap.Int("passed", out.PassedTests),
		zap.Bool("all_passed", out.AllPassed))
	return r.complete(out), nil
}

func (r *TestRunner) complete(trs state.TestRunState) state.Update {
	return state.Update{
		Phase:        state.Some(state.PhaseTesting),
		Status:       state.Some(state.StatusTestsComplete),
		TestRunState: state.Some(trs),
		Log:          []state.LogEntry{r.Entry("%d/%d tests passed", trs.PassedTests, trs.TotalTests)},
	}
}

func (r *TestRunner) runPytest(ctx context.Context, tp state.TestPlan, log *zap.Logger) []state.TestResult {
	deps := r.Deps()
	manual := func(output string) []state.TestResult {
		out := make([]state.TestResult, 0, len(tp.TestFiles))
		for _, tc := range tp.TestFiles {
			out = append(out, state.TestResult{TestName: tc.TestName, Passed: true, Output: output})
		}
		return out
	}
	if deps.Runner == nil {
		return manual("pytest not available - manual verification required")
	}

	check, err := deps.Runner.Run(ctx, pytestVersionCmd, deps.Options.VersionTimeout)
	if err != nil {
		log.Info("pytest unavailable", zap.Error(err))
		return manual(fmt.Sprintf("Could not run pytest: %v", err))
	}
	if check.ExitCode != 0 || !strings.Contains(strings.ToLower(check.Combined()), "pytest") {
		return manual("pytest not available - manual verification required")
	}

	start := deps.Now()
	res, err := deps.Runner.Run(ctx, pytestRunCmd, deps.Options.RunTimeout)
	elapsed := deps.Now().Sub(start)
	if err != nil {
		log.Warn("pytest run failed", zap.Error(err))
		return manual(fmt.Sprintf("Could not run pytest: %v", err))
	}

	output := res.Combined()
	lower := strings.ToLower(output)
	passed := strings.Contains(lower, "passed") && !strings.Contains(lower, "failed")
	if len(output) > maxTestOutput {
		cut := maxTestOutput
		for cut > 0 && !utf8.RuneStart(output[cut]) {
			cut--
		}
		output = output[:cut]
	}
	result := state.TestResult{TestName: "pytest_suite", Passed: passed, Output: output, Duration: elapsed}
	if !passed {
		result.Error = "Some tests failed"
	}
	return []state.TestResult{result}
}

func (r *TestRunner) checkManual(tp state.TestPlan) []state.TestResult {
	out := make([]state.TestResult, 0, len(tp.TestFiles))
	for _, tc := range tp.TestFiles {
		p := tc.TestName
		if !strings.HasPrefix(p, "tests/") {
			p = "tests/" + p
		}
		content, found, err := r.Deps().FS.Read(p)
		if err == nil && found && content != "" {
			out = append(out, state.TestResult{TestName: tc.TestName, Passed: true, Output: "Test checklist created at " + p})
			continue
		}
		out = append(out, state.TestResult{
			TestName: tc.TestName,
			Passed:   false,
			Output:   "Test file not found",
			Error:    "Test file was not created",
		})
	}
	return out
}
