package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// maxListedFiles caps the file list in the result panel.
const maxListedFiles = 15

// RenderResult formats a finished run as a coloured panel.
func RenderResult(res pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", StyleSubtle.Render("Run:     "), res.RunID)
	fmt.Fprintf(&b, "%s %s\n", StyleSubtle.Render("Location:"), res.ProjectPath)
	fmt.Fprintf(&b, "%s %s\n", StyleSubtle.Render("Status:  "), statusStyle(res.Status).Render(string(res.Status)))

	if len(res.Files) > 0 {
		fmt.Fprintf(&b, "\n%s\n", StyleSectionTitle.Render(fmt.Sprintf("Files (%d)", len(res.Files))))
		for i, f := range res.Files {
			if i == maxListedFiles {
				b.WriteString(StyleSubtle.Render(fmt.Sprintf("  ... and %d more", len(res.Files)-maxListedFiles)) + "\n")
				break
			}
			fmt.Fprintf(&b, "  %s %s\n", StyleSuccess.Render("+"), f)
		}
	}
	if len(res.UnresolvedFiles) > 0 {
		fmt.Fprintf(&b, "\n%s\n", StyleWarning.Render("Accepted with known issues"))
		for _, f := range res.UnresolvedFiles {
			fmt.Fprintf(&b, "  %s %s\n", StyleWarning.Render("!"), f)
		}
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(&b, "\n%s\n", StyleError.Render("Errors"))
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "  %s %s\n", StyleError.Render("✗"), e)
		}
	}

	title := "Project generated"
	color := ColorSuccess
	switch {
	case res.Status == state.StatusFailed:
		title, color = "Generation failed", ColorError
	case res.Status != state.StatusDone:
		title, color = "Generation stopped", ColorWarning
	case len(res.UnresolvedFiles) > 0:
		color = ColorWarning
	}
	return NewPanel(title, strings.TrimRight(b.String(), "\n")).WithBorderColor(color).Render()
}

func statusStyle(s state.Status) lipgloss.Style {
	switch s {
	case state.StatusDone:
		return StyleSuccess
	case state.StatusFailed:
		return StyleError
	default:
		return StyleWarning
	}
}
