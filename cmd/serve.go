package main

import (
	"context"

	"github.com/desertthunder/backlog/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.config.Server
	if cmd.IsSet("host") {
		addr.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		addr.Port = cmd.Int("port")
	}

	svc, err := r.Library(ctx)
	if err != nil {
		return err
	}

	return server.Serve(ctx, addr.Addr(), server.New(svc, r.logger), r.logger)
}
