package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the UI until the user quits or ctx is done.
func Run(ctx context.Context, in io.Reader, out io.Writer, sink *Sink, controls Controls, opts Options) error {
	if out == nil {
		out = os.Stdout
	}
	model := NewModel(sink.Events(), controls, opts)
	programOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out), tea.WithAltScreen()}
	if in != nil {
		programOpts = append(programOpts, tea.WithInput(in))
	}
	_, err := tea.NewProgram(model, programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
