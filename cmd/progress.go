package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/xtrobe/internal/formatter"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/urfave/cli/v3"
)

type advanceOutput struct {
	Outcome progress.Outcome  `json:"outcome"`
	Session *progress.Session `json:"session,omitempty"`
}

// ProgressEnter opens a module at the user's saved position and records it as the resume point.
func (r *Runner) ProgressEnter(ctx context.Context, cmd *cli.Command) error {
	userID, slug, err := r.progressArgs(ctx, cmd)
	if err != nil {
		return err
	}

	s, err := r.tracker.Enter(ctx, userID, slug)
	if s == nil {
		return err
	}
	if err != nil {
		r.logger.Warn("resume position not saved", "error", err)
	}
	return r.writeSession(cmd, s)
}

// ProgressNext marks the submodule being read as complete and moves on.
//
// Without --index the saved position is used when it points into this module.
func (r *Runner) ProgressNext(ctx context.Context, cmd *cli.Command) error {
	userID, slug, err := r.progressArgs(ctx, cmd)
	if err != nil {
		return err
	}

	s, err := r.sessionFor(ctx, cmd, userID, slug)
	if err != nil {
		return err
	}
	module := s.Module.Title

	outcome, err := r.tracker.Advance(ctx, s)
	if err != nil {
		return fmt.Errorf("progress not saved: %w", err)
	}

	if cmd.Bool("json") {
		out := advanceOutput{Outcome: outcome}
		if outcome.Kind == progress.OutcomeAdvanced || outcome.Kind == progress.OutcomeNextModule {
			out.Session = s
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	switch outcome.Kind {
	case progress.OutcomeTerminal:
		return r.writePlain("★ You have reached the end of the curriculum.\n")
	case progress.OutcomeNextModule:
		r.writePlain("✓ Finished %s. Next up: %s\n\n", module, outcome.NextSlug)
	}
	return r.writeSession(cmd, s)
}

// ProgressJump restarts a module from its first submodule, keeping stored completion.
func (r *Runner) ProgressJump(ctx context.Context, cmd *cli.Command) error {
	userID, slug, err := r.progressArgs(ctx, cmd)
	if err != nil {
		return err
	}

	s, err := r.tracker.JumpToSlug(ctx, userID, slug)
	if s == nil {
		return err
	}
	if err != nil {
		r.logger.Warn("resume position not saved", "error", err)
	}
	return r.writeSession(cmd, s)
}

// ProgressResume prints where "continue learning" lands without moving the user.
func (r *Runner) ProgressResume(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(ctx, cmd); err != nil {
		return err
	}
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return err
	}

	target, err := r.resolver.Continue(ctx, userID)
	if err != nil {
		r.logger.Warn("could not read resume position, showing the start", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(target, cmd.Bool("pretty"))
	}
	return r.writePlain("Continue: %s (%s), submodule %d\n", target.Module.Title, target.Slug, target.SubmoduleIndex+1)
}

// ProgressShow renders the user's overview in the requested format.
func (r *Runner) ProgressShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.prepare(ctx, cmd); err != nil {
		return err
	}
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return err
	}

	o, err := r.tracker.Overview(ctx, userID)
	if err != nil {
		return err
	}
	if o.Degraded {
		r.logger.Warn("some progress could not be read", "user", userID)
	}

	data, err := formatter.Render(format, o)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) progressArgs(ctx context.Context, cmd *cli.Command) (string, string, error) {
	slug := cmd.StringArg("slug")
	if slug == "" {
		return "", "", fmt.Errorf("%w: module slug", shared.ErrMissingArgument)
	}
	if err := r.prepare(ctx, cmd); err != nil {
		return "", "", err
	}
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return "", "", err
	}
	return userID, slug, nil
}

// sessionFor picks the submodule `progress next` advances from.
func (r *Runner) sessionFor(ctx context.Context, cmd *cli.Command, userID, slug string) (*progress.Session, error) {
	if cmd.IsSet("index") {
		return r.tracker.SessionAt(ctx, userID, slug, int(cmd.Int("index")))
	}

	target, err := r.resolver.ResolveResumeTarget(ctx, userID)
	if err != nil {
		r.logger.Warn("could not read resume position", "error", err)
	}
	if target != nil && target.Slug == slug {
		return r.tracker.SessionAt(ctx, userID, slug, target.SubmoduleIndex)
	}

	s, err := r.tracker.Enter(ctx, userID, slug)
	if s == nil {
		return nil, err
	}
	if err != nil {
		r.logger.Warn("resume position not saved", "error", err)
	}
	return s, nil
}

func (r *Runner) writeSession(cmd *cli.Command, s *progress.Session) error {
	if cmd.Bool("json") {
		return r.writeJSON(s, cmd.Bool("pretty"))
	}

	r.writePlainHeader(s.Module.Title)
	r.writePlain("Submodule %d/%d: %s\n", s.SubmoduleIndex+1, s.Module.Len(), s.Submodule().Title)
	r.writePlain("Progress:  %d%% (%d/%d)\n", s.Percent(), s.Completed, s.Module.Len())
	if s.Degraded {
		r.writePlain("⚠ Progress unavailable; showing the module from the start.\n")
	}
	if content := s.Submodule().Content; content != "" {
		r.writePlainln("%s", content)
	}
	return nil
}
