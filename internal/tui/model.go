// Package tui renders a conversion session as a bubbletea program.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"wordxl/internal/intake"
	"wordxl/internal/session"
)

// SnapshotMsg carries a controller snapshot into the program.
type SnapshotMsg session.Snapshot

type beginFailedMsg struct{ err error }

// Hooks connect the view to a controller. Begin runs once the program
// starts; Reset runs when the user presses r.
type Hooks struct {
	Begin func() error
	Reset func()
}

// Model is the session view.
type Model struct {
	snap     session.Snapshot
	bar      progress.Model
	width    int
	height   int
	hooks    Hooks
	beginErr error
	quitting bool
}

// NewModel builds the view.
func NewModel(initial session.Snapshot, hooks Hooks) Model {
	return Model{
		snap:   initial,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:  80,
		height: 24,
		hooks:  hooks,
	}
}

// Observer forwards snapshots to p. Register it with Controller.Observe.
func Observer(p *tea.Program) session.Observer {
	return func(s session.Snapshot) {
		p.Send(SnapshotMsg(s))
	}
}

// NewProgram wires ctrl to a new program. The session begins under ctx
// once the program is running, so every snapshot reaches the view.
func NewProgram(ctx context.Context, ctrl *session.Controller, opts ...tea.ProgramOption) *tea.Program {
	hooks := Hooks{
		Begin: func() error {
			_, err := ctrl.Begin(ctx)
			return err
		},
		Reset: ctrl.Reset,
	}
	p := tea.NewProgram(NewModel(ctrl.Snapshot(), hooks), opts...)
	ctrl.Observe(Observer(p))
	return p
}

func (m Model) Init() tea.Cmd {
	if m.hooks.Begin == nil {
		return nil
	}
	begin := m.hooks.Begin
	return func() tea.Msg {
		if err := begin(); err != nil {
			return beginFailedMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, nil

	case beginFailedMsg:
		m.beginErr = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Reset publishes a snapshot through p.Send, which only this
			// loop drains, so it must run as a command.
			if reset := m.hooks.Reset; reset != nil {
				return m, func() tea.Msg {
					reset()
					return nil
				}
			}
			return m, nil
		case "enter":
			if m.snap.Phase.Terminal() {
				m.quitting = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// Snapshot returns the last snapshot the view received.
func (m Model) Snapshot() session.Snapshot {
	return m.snap
}

// Err returns the error that kept the session from starting, if any.
func (m Model) Err() error {
	return m.beginErr
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render("wordxl") + phaseStyle.Render(string(m.snap.Phase)))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(float64(m.snap.Progress) / 100))
	b.WriteString(fmt.Sprintf(" %3d%%\n", m.snap.Progress))
	switch {
	case m.beginErr != nil:
		b.WriteString(errorStyle.Render(m.beginErr.Error()) + "\n")
	case m.snap.Error != "":
		b.WriteString(errorStyle.Render(m.snap.Error) + "\n")
	case m.snap.Message != "":
		b.WriteString(m.snap.Message + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString("\n")

	rows := m.listRows()
	files := m.snap.Files
	for i, f := range files {
		if i == rows && len(files) > rows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more", len(files)-rows)) + "\n")
			break
		}
		b.WriteString(renderFile(f) + "\n")
	}

	sum := m.snap.Summary
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d files, %s, %d converted, %d failed",
		sum.Total, sum.BytesLabel(), sum.Succeeded, sum.Failed)))
	b.WriteString("\n")
	if m.snap.Result != nil {
		b.WriteString(successBadge.Render("Saved ") + m.snap.Result.DownloadPath() + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) listRows() int {
	// title, bar, message, summary, result, help and spacing
	rows := m.height - 10
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m Model) renderHelp() string {
	if m.snap.Phase.Terminal() {
		return helpStyle.Render("  r: reset  enter/q: quit")
	}
	return helpStyle.Render("  r: reset  q: quit")
}

func renderFile(f intake.StagedFile) string {
	return fmt.Sprintf("  %s %s %s", badge(f.Status), f.Name, dimStyle.Render(f.SizeLabel()))
}

func badge(status intake.Status) string {
	label := fmt.Sprintf("%-10s", status)
	switch status {
	case intake.StatusConverting:
		return convertingBadge.Render(label)
	case intake.StatusSuccess:
		return successBadge.Render(label)
	case intake.StatusError:
		return errorBadge.Render(label)
	default:
		return pendingBadge.Render(label)
	}
}
