package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"meterflow/internal/importer"
	"meterflow/internal/ui"
)

func newImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import D0010 flow files into the database",
		ArgsUsage: "<path|dir|glob>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Parse files without saving to the database"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Re-import files even if already processed"},
			&cli.StringFlag{Name: "pattern", Usage: "Glob used when expanding directories (default from config)"},
		},
		Action: importAction,
	}
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: meterflow import <path|dir|glob>...").
			Errorf("expected at least one path")
	}

	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	pattern := cmd.String("pattern")
	if pattern == "" {
		pattern = application.Config.Import.Pattern
	}

	paths, err := expandPaths(cmd.Args().Slice(), pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return oops.
			Code("NO_FILES").
			With("pattern", pattern).
			Hint("Check the path or adjust --pattern").
			Errorf("no files to import")
	}

	dryRun := cmd.Bool("dry-run")
	printer := ui.NewImportPrinter(dryRun)
	printer.PrintHeader(len(paths))

	summary := application.Importer.Run(ctx, paths, importer.Options{
		DryRun:  dryRun,
		Force:   cmd.Bool("force"),
		OnEvent: printer.HandleEvent,
	})
	printer.PrintSummary(summary)

	if summary.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// expandPaths turns command arguments into concrete file paths.
// Directories are walked with the glob pattern, arguments containing glob
// metacharacters are expanded as-is, and anything else passes through so
// the importer reports missing files per file.
func expandPaths(args []string, pattern string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			matches, err := doublestar.FilepathGlob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, oops.
					Code("BAD_PATTERN").
					With("pattern", pattern).
					Wrapf(err, "expanding directory %s", arg)
			}
			sort.Strings(matches)
			paths = append(paths, matches...)

		case err == nil:
			paths = append(paths, arg)

		case hasGlobMeta(arg):
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, oops.
					Code("BAD_PATTERN").
					With("pattern", arg).
					Wrapf(err, "expanding glob")
			}
			sort.Strings(matches)
			paths = append(paths, matches...)

		default:
			paths = append(paths, arg)
		}
	}
	return paths, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
