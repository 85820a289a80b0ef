package main

import (
	"context"

	"github.com/desertthunder/xtrobe/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ReportExport writes a progress report for each requested user.
func (r *Runner) ReportExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(ctx, cmd); err != nil {
		return err
	}

	users := cmd.StringSlice("users")
	if len(users) == 0 {
		userID, err := r.currentUser(ctx, cmd)
		if err != nil {
			return err
		}
		users = []string{userID}
	}

	opts := tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}

	updates := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			r.writePlain("%s\n", u.Message)
		}
	}()

	engine := tasks.NewReportEngine(r.tracker, r.logger)
	result, err := engine.ExportReports(ctx, updates, users, opts)
	close(updates)
	<-done

	if result != nil {
		r.writePlainln("Run %s: %d exported, %d failed, %d incomplete",
			result.RunID, result.SuccessfulExports, result.FailedExports, result.DegradedExports)
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
	}
	return err
}
