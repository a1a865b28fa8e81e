package tui

import (
	"context"
	"errors"
	"fmt"

	"stock-lookup/lookup"

	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram builds the full-screen program around ctrl. Messages from
// outside the update loop, such as BackendErrMsg, go through its Send.
func NewProgram(ctx context.Context, ctrl *lookup.Controller) *tea.Program {
	return tea.NewProgram(New(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
}

// Run runs p and blocks until the user quits or ctx is done.
func Run(ctx context.Context, p *tea.Program) error {
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
