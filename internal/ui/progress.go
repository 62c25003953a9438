package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
)

type StageStatus int

const (
	StageWaiting StageStatus = iota
	StageRunning
	StageDone
	StageError
)

// StageRow is one line of the progress view. Looping stages such as the
// coder and reviewer accumulate visits and time.
type StageRow struct {
	Name    string
	Title   string
	Status  StageStatus
	Visits  int
	Elapsed time.Duration
	Message string
}

// eventMsg wraps a pipeline event for the tea loop.
type eventMsg pipeline.Event

// RunDoneMsg ends the progress view with the run outcome.
type RunDoneMsg struct {
	Result pipeline.Result
	Err    error
}

// ProgressModel is a bubbletea model fed by pipeline events.
type ProgressModel struct {
	rows    []*StageRow
	index   map[string]int
	spinner spinner.Model
	events  <-chan pipeline.Event
	done    <-chan RunDoneMsg

	Outcome     *RunDoneMsg
	Interrupted bool
}

// NewProgressModel lists stages in graph order. events must be closed by the
// producer when the run ends; done delivers the final outcome.
func NewProgressModel(stages []pipeline.StageInfo, events <-chan pipeline.Event, done <-chan RunDoneMsg) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StylePrimary

	m := ProgressModel{
		index:   make(map[string]int, len(stages)),
		spinner: s,
		events:  events,
		done:    done,
	}
	for i, st := range stages {
		m.rows = append(m.rows, &StageRow{Name: st.Name, Title: st.Title})
		m.index[st.Name] = i
	}
	return m
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

// listen delivers the next event, then the outcome once events is closed.
func (m ProgressModel) listen() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return <-m.done
		}
		return eventMsg(e)
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.Interrupted = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.Apply(pipeline.Event(msg))
		return m, m.listen()

	case RunDoneMsg:
		m.Outcome = &msg
		return m, tea.Quit
	}
	return m, nil
}

// Apply folds one event into the rows.
func (m *ProgressModel) Apply(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventStageStart:
		if row := m.row(e.Stage); row != nil {
			row.Status = StageRunning
			row.Visits++
		}
	case pipeline.EventStageEnd:
		row := m.row(e.Stage)
		if row == nil {
			return
		}
		row.Elapsed += e.Duration
		if e.Message != "" {
			row.Status = StageError
			row.Message = e.Message
			return
		}
		row.Status = StageDone
	case pipeline.EventError:
		for _, row := range m.rows {
			if row.Status == StageRunning {
				row.Status = StageError
				row.Message = e.Message
			}
		}
	}
}

func (m *ProgressModel) row(name string) *StageRow {
	i, ok := m.index[name]
	if !ok {
		return nil
	}
	return m.rows[i]
}

// Rows exposes the current stage lines.
func (m ProgressModel) Rows() []StageRow {
	out := make([]StageRow, len(m.rows))
	for i, r := range m.rows {
		out[i] = *r
	}
	return out
}

func (m ProgressModel) View() string {
	var s strings.Builder
	s.WriteString(StyleHeader.Render("Building project"))
	s.WriteString(StyleSubtle.Render("(ctrl+c to stop after the current stage)"))
	s.WriteString("\n\n")

	for _, row := range m.rows {
		s.WriteString(" ")
		switch row.Status {
		case StageWaiting:
			s.WriteString(StyleSubtle.Render("·"))
		case StageRunning:
			s.WriteString(m.spinner.View())
		case StageDone:
			s.WriteString(StyleSuccess.Render("✓"))
		case StageError:
			s.WriteString(StyleError.Render("✗"))
		}
		s.WriteString("  ")
		s.WriteString(StyleTitle.Render(fmt.Sprintf("%-15s", row.Title)))
		if row.Visits > 1 {
			s.WriteString(StyleSubtle.Render(fmt.Sprintf(" x%d", row.Visits)))
		}
		if row.Elapsed > 0 {
			s.WriteString(StyleSubtle.Render(fmt.Sprintf(" • %s", row.Elapsed.Round(100*time.Millisecond))))
		}
		if row.Message != "" {
			s.WriteString(" ")
			s.WriteString(StyleError.Render(Truncate(row.Message, 60)))
		}
		s.WriteString("\n")
	}
	return s.String()
}
