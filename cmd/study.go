package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/desertthunder/xtrobe/internal/ui"
	"github.com/urfave/cli/v3"
)

// Study launches the interactive reader for the signed-in user.
func (r *Runner) Study(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(shared.WithLogger(fileLogger, "user", userID))

	if err := r.prepare(ctx, cmd); err != nil {
		return err
	}

	model := ui.NewModel(ctx, userID, r.tracker, r.resolver, ui.Options{
		Slug:     cmd.String("module"),
		Continue: cmd.Bool("continue"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running reader: %w", err)
	}

	return model.Err()
}
