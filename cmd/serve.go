package main

import (
	"context"

	"github.com/desertthunder/xtrobe/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenProvider(cmd)
	if err != nil {
		return err
	}
	if err := r.prepare(ctx, cmd); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	return server.New(cfg, r.tracker, r.resolver, tokens, r.logger).Run(ctx)
}
