package impl

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// ProjectType is the kind of project tests are generated for.
type ProjectType string

const (
	ProjectWeb     ProjectType = "web"
	ProjectPython  ProjectType = "python"
	ProjectUnknown ProjectType = "unknown"
)

// Test frameworks recorded in the TestPlan.
const (
	FrameworkManual = "manual"
	FrameworkPytest = "pytest"
)

// Generated test artifacts.
const (
	ChecklistPath = "tests/test_checklist.md"
	PytestPath    = "tests/test_main.py"
	PytestIniPath = "pytest.ini"
)

var (
	webKeywords    = []string{"html", "css", "javascript", "js", "web", "frontend", "front-end", "react", "vue", "angular", "svelte"}
	pythonKeywords = []string{"python", "py", "django", "flask", "fastapi"}
	webExts        = map[string]bool{"html": true, "css": true, "js": true, "jsx": true, "tsx": true, "vue": true, "svelte": true}
	pythonExts     = map[string]bool{"py": true, "pyw": true, "pyx": true}
)

// DetectProjectType classifies a project from its tech stack, falling back
// to the extensions of its files.
func DetectProjectType(techStack string, files []string) ProjectType {
	stack := strings.ToLower(techStack)
	if stack != "" {
		for _, kw := range webKeywords {
			if strings.Contains(stack, kw) {
				return ProjectWeb
			}
		}
		for _, kw := range pythonKeywords {
			if strings.Contains(stack, kw) {
				return ProjectPython
			}
		}
	}
	exts := make(map[string]bool, len(files))
	for _, f := range files {
		exts[fileExt(f)] = true
	}
	for ext := range exts {
		if webExts[ext] {
			return ProjectWeb
		}
	}
	for ext := range exts {
		if pythonExts[ext] {
			return ProjectPython
		}
	}
	return ProjectUnknown
}

// TestGenerator writes a test artifact suited to the project type.
type TestGenerator struct {
	core.Base
}

// NewTestGenerator creates the test generator stage.
func NewTestGenerator(deps core.Deps) *TestGenerator {
	return &TestGenerator{Base: core.NewBase(StageTestGenerator, "Generates tests or a manual checklist for the project", deps)}
}

// Run implements core.Stage.
func (g *TestGenerator) Run(ctx context.Context, s state.State) (state.Update, error) {
	log := g.Logger()
	plan, hasPlan := s.Plan.Get()

	_, order, err := g.Deps().FS.Snapshot()
	if err != nil {
		log.Warn("snapshot project", zap.Error(err))
	}
	if !hasPlan || len(order) == 0 {
		log.Info("nothing to test", zap.Bool("plan", hasPlan), zap.Int("files", len(order)))
		return state.Update{
			Phase:        state.Some(state.PhaseTesting),
			Status:       state.Some(state.StatusNoTestsNeeded),
			TestRunState: state.Some(state.TestRunState{Results: []state.TestResult{}, AllPassed: true}),
			Log:          []state.LogEntry{g.Entry("No files to test")},
		}, nil
	}

	kind := DetectProjectType(plan.TechStack, order)
	log = log.With(zap.String("project_type", string(kind)))

	var (
		tp      state.TestPlan
		outputs = map[string]string{}
	)
	switch kind {
	case ProjectWeb:
		tp = webTests(plan, order)
		outputs[ChecklistPath] = tp.TestFiles[0].TestCode
	case ProjectPython:
		tp = pythonTests(plan, order)
		outputs[PytestPath] = tp.TestFiles[0].TestCode
		outputs[PytestIniPath] = pytestIni
	default:
		tp = genericTests(plan, order)
		outputs[ChecklistPath] = tp.TestFiles[0].TestCode
	}

	for _, p := range []string{ChecklistPath, PytestPath, PytestIniPath} {
		content, ok := outputs[p]
		if !ok {
			continue
		}
		if err := g.Deps().FS.Write(ctx, p, content); err != nil {
			log.Warn("write test artifact", zap.String("file", p), zap.Error(err))
			continue
		}
		log.Info("test artifact written", zap.String("file", p))
	}

	n := len(tp.TestFiles)
	return state.Update{
		Phase:  state.Some(state.PhaseTesting),
		Status: state.Some(state.StatusTestsGenerated),
		TestRunState: state.Some(state.TestRunState{
			TestPlan:    state.Some(tp),
			Results:     []state.TestResult{},
			AllPassed:   true,
			TotalTests:  n,
			PassedTests: n,
		}),
		Log: []state.LogEntry{g.Entry("Generated %s tests (%s)", kind, tp.TestFramework)},
	}, nil
}

func fileList(files []string) string {
	if len(files) == 0 {
		return "- No files"
	}
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = "- " + f
	}
	return strings.Join(lines, "\n")
}

const webChecklist = `# Test Checklist for {{.Name}}

## Project Files
{{.Files}}

## Basic Functionality Tests

### Page Load
1. [ ] Page loads without errors
2. [ ] No JavaScript errors in browser console (F12 -> Console)
3. [ ] No 404 errors for CSS/JS files (F12 -> Network)
4. [ ] All images and assets load correctly

### UI Elements
1. [ ] All UI elements are visible
2. [ ] Layout displays correctly
3. [ ] Colors and styling match design
4. [ ] Text is readable

### Interactivity
1. [ ] Buttons respond to clicks
2. [ ] Form inputs accept text
3. [ ] Interactive elements have hover states
4. [ ] Animations/transitions work smoothly
{{if .Features}}
## Feature Tests
{{range $i, $f := .Features}}{{inc $i}}. [ ] {{$f}}
{{end}}{{end}}
## Responsive Design
1. [ ] Works on desktop (1920x1080)
2. [ ] Works on tablet (768x1024)
3. [ ] Works on mobile (375x667)

## Data Persistence (if applicable)
1. [ ] Data saves correctly
2. [ ] Data persists after page refresh
3. [ ] Data can be deleted/modified

## Browser Compatibility
1. [ ] Works in Chrome
2. [ ] Works in Firefox
3. [ ] Works in Safari (if available)
4. [ ] Works in Edge

## How to Test
1. Open ` + "`index.html`" + ` in a web browser
2. Open Developer Tools (F12)
3. Check the Console tab for errors
4. Check the Network tab for failed requests
5. Test each feature manually
6. Check each item in this list

## Notes
- Mark items with [x] when verified
- Add any bugs found below

## Bugs Found
(Add any bugs discovered during testing here)
`

const genericChecklist = `# Test Checklist for {{.Name}}

## Project Files
{{.Files}}

## Verification Steps

### File Verification
1. [ ] All expected files are present
2. [ ] Files are not empty
3. [ ] No syntax errors in code files

### Functionality
1. [ ] Project runs without errors
2. [ ] Main functionality works as expected
3. [ ] Output is correct

### Edge Cases
1. [ ] Empty input handled
2. [ ] Invalid input handled
3. [ ] Large input handled

## How to Test
1. Review the files above
2. Run the main entry point
3. Test each feature manually
4. Check each item in this list

## Bugs Found
(Add any bugs discovered during testing here)
`

const pytestSuite = `"""
Test Suite for {{.Name}}

Run tests with: pytest tests/test_main.py -v
"""

import os
import sys

import pytest

sys.path.insert(0, os.path.dirname(os.path.dirname(os.path.abspath(__file__))))

{{range .Modules}}# from {{.Module}} import *  # Uncomment and modify as needed
{{end}}

def test_project_structure():
    """Test that required files exist."""
    required_files = [{{.Required}}]

    for filepath in required_files:
        assert os.path.exists(filepath), f"Missing file: {filepath}"

{{range .Modules}}
def test_{{.Safe}}_exists():
    """Test that {{.File}} can be imported."""
    assert True, "{{.File}} exists"

{{end}}
def test_placeholder():
    """Placeholder test - replace with tests for the main functionality."""
    assert True


if __name__ == "__main__":
    pytest.main([__file__, "-v"])
`

const pytestIni = `[pytest]
testpaths = tests
python_files = test_*.py
python_functions = test_*
addopts = -v --tb=short
`

func mustRender(name, text string, data any) string {
	out, err := render(name, text, data)
	if err != nil {
		// The templates are constants; a failure here is a programming error.
		panic(err)
	}
	return out
}

func webTests(plan state.Plan, files []string) state.TestPlan {
	content := mustRender("web-checklist", webChecklist, map[string]any{
		"Name":     plan.Name,
		"Files":    fileList(files),
		"Features": plan.Features,
	})
	return state.TestPlan{
		TestFramework: FrameworkManual,
		TestFiles: []state.TestCase{{
			TestName:    path.Base(ChecklistPath),
			TestType:    FrameworkManual,
			TargetFile:  "index.html",
			TestCode:    content,
			Description: "Manual test checklist for web project",
		}},
		SetupInstructions: "Open index.html in a web browser and follow the checklist",
	}
}

func genericTests(plan state.Plan, files []string) state.TestPlan {
	content := mustRender("generic-checklist", genericChecklist, map[string]any{
		"Name":  plan.Name,
		"Files": fileList(files),
	})
	return state.TestPlan{
		TestFramework: FrameworkManual,
		TestFiles: []state.TestCase{{
			TestName:    path.Base(ChecklistPath),
			TestType:    FrameworkManual,
			TargetFile:  "*",
			TestCode:    content,
			Description: "Generic test checklist",
		}},
		SetupInstructions: "Review files and test manually",
	}
}

type pyModule struct {
	File   string
	Module string
	Safe   string
}

func pythonTests(plan state.Plan, files []string) state.TestPlan {
	var (
		pyFiles []string
		modules []pyModule
	)
	for _, f := range files {
		if !strings.HasSuffix(f, ".py") {
			continue
		}
		pyFiles = append(pyFiles, f)
		mod := strings.TrimPrefix(strings.ReplaceAll(strings.TrimSuffix(f, ".py"), "/", "."), ".")
		if strings.Contains(strings.ToLower(mod), "test") || path.Base(f) == "__init__.py" {
			continue
		}
		modules = append(modules, pyModule{File: f, Module: mod, Safe: strings.ReplaceAll(mod, ".", "_")})
	}

	required := pyFiles
	if len(required) > 5 {
		required = required[:5]
	}
	quoted := make([]string, len(required))
	for i, f := range required {
		quoted[i] = fmt.Sprintf("'%s'", f)
	}

	content := mustRender("pytest-suite", pytestSuite, map[string]any{
		"Name":     plan.Name,
		"Modules":  modules,
		"Required": strings.Join(quoted, ", "),
	})
	return state.TestPlan{
		TestFramework: FrameworkPytest,
		TestFiles: []state.TestCase{{
			TestName:    path.Base(PytestPath),
			TestType:    "unit",
			TargetFile:  "*.py",
			TestCode:    content,
			Description: "Main test file for Python project",
		}},
		SetupInstructions: "Run: pip install pytest && pytest tests/ -v",
	}
}
