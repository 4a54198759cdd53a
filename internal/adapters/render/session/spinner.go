package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Backend calls slower than this get an elapsed-time suffix.
const slowTaskAfter = 2 * time.Second

type taskDoneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	label   string
	hint    lipgloss.Style
	task    tea.Cmd
	started time.Time
	now     func() time.Time
	err     error
	done    bool
}

func newSpinnerModel(label string, task tea.Cmd, now func() time.Time) spinnerModel {
	if now == nil {
		now = time.Now
	}

	return spinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		label:   label,
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		task:    task,
		started: now(),
		now:     now,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.task)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done, m.err = true, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}

	line := m.spinner.View() + " " + m.label
	if elapsed := m.now().Sub(m.started); elapsed >= slowTaskAfter {
		line += m.hint.Render(fmt.Sprintf(" (%ds)", int(elapsed.Seconds())))
	}

	return line
}

// RunWithSpinner runs task while a spinner labelled label animates on
// output. When output is not a terminal the task runs without any drawing.
func RunWithSpinner(ctx context.Context, output io.Writer, label string, task func(context.Context) error) error {
	if !isTerminal(output) {
		return task(ctx)
	}

	p := tea.NewProgram(
		newSpinnerModel(label, func() tea.Msg { return taskDoneMsg{err: task(ctx)} }, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run spinner: %w", err)
	}

	result, ok := final.(spinnerModel)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedRenderModel, final)
	}

	return result.err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
