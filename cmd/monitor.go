package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/audiosync/internal/ui"
)

func monitorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "monitor",
		Usage:  "Launch the live terminal monitor over the running daemon",
		Flags:  []cli.Flag{addrFlag()},
		Action: r.Monitor,
	}
}

// Monitor launches the interactive terminal UI for watching and driving a
// running daemon, the way the teacher's TUI command launched its transfer
// view over a long-lived bubbletea program.
func (r *Runner) Monitor(ctx context.Context, cmd *cli.Command) error {
	client := ui.NewHTTPClient(cmd.String("addr"))
	model := ui.New(client)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}
