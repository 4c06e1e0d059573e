package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"meterflow/internal/app"
	"meterflow/internal/config"
	"meterflow/internal/logging"
)

// version is injected at build time with ldflags.
var version = "dev"

func main() {
	if err := run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand().Run(ctx, args)
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "meterflow",
		Usage:   "Import and browse D0010 meter reading flow files",
		Version: version,
		Commands: []*cli.Command{
			newImportCommand(),
			newMigrateCommand(),
			newFilesCommand(),
			newReadingsCommand(),
			newMetersCommand(),
			newMeterPointsCommand(),
		},
	}
}

// openApp loads configuration, builds the logger and wires dependencies.
// Callers must Close the app and Sync the logger.
func openApp(cmd *cli.Command) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return application, logger, nil
}
