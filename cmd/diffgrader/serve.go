package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/diffgrader/diffgrader/internal/archive"
	"github.com/diffgrader/diffgrader/internal/server"
	"github.com/diffgrader/diffgrader/internal/service"
	"github.com/diffgrader/diffgrader/internal/store"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the grading REST API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "SQLite DSN (overrides config)",
			},
			&cli.StringFlag{
				Name:  "upload-dir",
				Usage: "Directory for uploaded archives (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Emit logs as JSON instead of console output",
			},
		},
		Action: runServeCmd,
	}
}

func runServeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dsn := c.String("dsn"); dsn != "" {
		cfg.Server.DSN = dsn
	}
	if dir := c.String("upload-dir"); dir != "" {
		cfg.Server.UploadDir = dir
	}

	logger := newLogger(c.Bool("log-json"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := store.Open(openCtx, cfg.Server.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	uploads, err := archive.NewStore(cfg.Server.UploadDir, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	svc := service.New(cfg, db, uploads, service.WithLogger(logger))
	srv := server.New(cfg, svc, logger)

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("dsn", cfg.Server.DSN).
		Str("upload_dir", cfg.Server.UploadDir).
		Msg("starting diffgrader server")

	return srv.ListenAndServe(ctx)
}

func newLogger(jsonLogs bool) zerolog.Logger {
	if jsonLogs {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
