package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"meterflow/internal/db"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
		},
		Action: migrateAction,
	}
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	if err := db.EnsureSchema(ctx, application.DB); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Schema is up to date.")
	return nil
}
