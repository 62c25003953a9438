package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/compose"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/impl"
)

// Output formats accepted by Describe.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Title turns a stage name into a display title, e.g. "test_runner" into
// "Test Runner".
func Title(stage string) string {
	if stage == compose.END {
		return "End"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(stage, "_", " "))
}

// StageInfo describes one node of the builder graph.
type StageInfo struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Description is the static shape of the builder graph.
type Description struct {
	Entry  string       `yaml:"entry"`
	Stages []StageInfo  `yaml:"stages"`
	Edges  []Edge       `yaml:"edges"`
}

// Describe builds the graph without dependencies and reports its shape.
func Describe() (Description, error) {
	stages := impl.Stages(core.Deps{})
	g, err := BuildGraph(context.Background(), stages)
	if err != nil {
		return Description{}, err
	}
	d := Description{Entry: g.Entry(), Edges: g.Edges()}
	for _, st := range stages {
		d.Stages = append(d.Stages, StageInfo{Name: st.Name(), Title: Title(st.Name()), Description: st.Description()})
	}
	return d, nil
}

// WriteDescription renders the graph shape to w in format.
func WriteDescription(w io.Writer, format string) error {
	d, err := Describe()
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", FormatText:
		return writeText(w, d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatText, FormatYAML)
	}
}

func writeText(w io.Writer, d Description) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Entry: %s\n\nStages:\n", d.Entry)
	for i, st := range d.Stages {
		fmt.Fprintf(&b, "  %d. %-16s %s\n", i+1, st.Title, st.Description)
	}
	b.WriteString("\nEdges:\n")
	for _, e := range d.Edges {
		targets := make([]string, len(e.To))
		for i, t := range e.To {
			targets[i] = Title(t)
		}
		kind := ""
		if e.Conditional {
			kind = " (conditional)"
		}
		fmt.Fprintf(&b, "  %s -> %s%s\n", Title(e.From), strings.Join(targets, " | "), kind)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
