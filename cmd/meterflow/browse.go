package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"meterflow/internal/models"
	"meterflow/internal/repository"
	"meterflow/internal/ui"
)

const defaultBrowseLimit = 50

func newFilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "List imported flow files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.StringFlag{Name: "status", Usage: "Filter by status: pending, processing, completed, failed"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum rows to show", Value: defaultBrowseLimit},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: filesAction,
	}
}

func filesAction(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	if !validStatus(status) {
		return oops.
			Code("INVALID_ARGS").
			With("status", status).
			Hint("Valid statuses: pending, processing, completed, failed").
			Errorf("unknown status %q", status)
	}

	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	files, err := application.FlowFiles.List(ctx, status, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return ui.RenderFlowFiles(files, cmd.Bool("json"))
}

func newReadingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "readings",
		Usage: "List readings, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.StringFlag{Name: "mpan", Usage: "Filter by MPAN prefix"},
			&cli.StringFlag{Name: "serial", Usage: "Filter by meter serial (contains)"},
			&cli.StringFlag{Name: "from", Usage: "Earliest reading date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Latest reading date (YYYY-MM-DD)"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum rows to show", Value: defaultBrowseLimit},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: readingsAction,
	}
}

func readingsAction(ctx context.Context, cmd *cli.Command) error {
	filter := repository.ReadingFilter{
		MPAN:   cmd.String("mpan"),
		Serial: cmd.String("serial"),
		Limit:  cmd.Int("limit"),
	}
	if cmd.IsSet("from") {
		from, err := parseDateFlag(cmd.String("from"), "from")
		if err != nil {
			return err
		}
		filter.From = &from
	}
	if cmd.IsSet("to") {
		to, err := parseDateFlag(cmd.String("to"), "to")
		if err != nil {
			return err
		}
		filter.To = &to
	}

	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	readings, err := application.Readings.List(ctx, filter)
	if err != nil {
		return err
	}
	return ui.RenderReadings(readings, cmd.Bool("json"))
}

func newMetersCommand() *cli.Command {
	return &cli.Command{
		Name:  "meters",
		Usage: "List metering devices with reading counts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.StringFlag{Name: "mpan", Usage: "Filter by MPAN prefix"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum rows to show", Value: defaultBrowseLimit},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: metersAction,
	}
}

func metersAction(ctx context.Context, cmd *cli.Command) error {
	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	meters, err := application.Meters.List(ctx, cmd.String("mpan"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	return ui.RenderMeters(meters, cmd.Bool("json"))
}

func newMeterPointsCommand() *cli.Command {
	return &cli.Command{
		Name:  "meter-points",
		Usage: "List meter points with device counts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum rows to show", Value: defaultBrowseLimit},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
		Action: meterPointsAction,
	}
}

func meterPointsAction(ctx context.Context, cmd *cli.Command) error {
	application, logger, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer application.Close()

	points, err := application.MeterPoints.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return ui.RenderMeterPoints(points, cmd.Bool("json"))
}

func validStatus(status string) bool {
	switch models.FlowFileStatus(status) {
	case "", models.FlowFilePending, models.FlowFileProcessing, models.FlowFileCompleted, models.FlowFileFailed:
		return true
	}
	return false
}

func parseDateFlag(value, name string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, oops.
			Code("INVALID_ARGS").
			With("flag", name).
			Hint("Dates use YYYY-MM-DD").
			Errorf("invalid date %q", value)
	}
	return parsed, nil
}
