// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ocpi-hub/cmd/app/commands"
	"github.com/allisson/ocpi-hub/internal/config"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "ocpi-hub",
		Usage:   "OCPI 2.2.1 EMSP hub",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
					return commands.RunMigrations(logger, cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "generate-token",
				Usage: "Generate credentials tokens for out-of-band handover to a peer operator",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"c"},
						Value:   1,
						Usage:   "Number of tokens to generate",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateToken(commands.DefaultIO(), int(cmd.Int("count")))
				},
			},
			{
				Name:  "register-peer",
				Usage: "Run the full credentials handshake against a peer and report the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Local name for the peer (e.g., de-cpx)",
					},
					&cli.StringFlag{
						Name:     "versions-url",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "Peer's version discovery URL",
					},
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Registration token handed over by the peer's operator",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRegisterPeer(
						ctx,
						commands.DefaultIO(),
						cmd.String("name"),
						cmd.String("versions-url"),
						cmd.String("token"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
