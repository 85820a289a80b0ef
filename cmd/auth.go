package main

import (
	"context"

	"github.com/desertthunder/xtrobe/internal/auth"
	"github.com/urfave/cli/v3"
)

const defaultSecret = "change-me"

// AuthWhoami prints the user selected with --user or XTROBE_USER.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", userID)
}

// AuthToken issues a bearer token for the signed-in user.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenProvider(cmd)
	if err != nil {
		return err
	}
	userID, err := r.currentUser(ctx, cmd)
	if err != nil {
		return err
	}

	token, err := tokens.Issue(userID, cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token)
}

func (r *Runner) tokenProvider(cmd *cli.Command) (*auth.TokenProvider, error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, err
	}

	cfg := r.config.Auth
	if cfg.JWTSecret == defaultSecret {
		r.logger.Warn("auth.jwt_secret is the template default; set XTROBE_JWT_SECRET")
	}
	return auth.NewTokenProvider(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL.Duration)
}
