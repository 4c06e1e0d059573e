package ui

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"meterflow/internal/models"
)

const clockDisplayLayout = "15:04:05"

// RenderFlowFiles lists imported flow files.
func RenderFlowFiles(files []models.FlowFile, asJSON bool) error {
	if asJSON {
		return renderJSON(files)
	}

	writer := newTable()
	writer.AppendHeader(table.Row{"FILENAME", "STATUS", "ROWS", "IMPORTED AT", "ERROR"})
	for _, f := range files {
		writer.AppendRow(table.Row{
			f.Filename,
			f.Status,
			f.RowCount,
			f.ImportedAt.Format(timestampLayout),
			truncate(f.ErrorMessage, maxShownErrorText),
		})
	}
	writer.Render()
	return nil
}

// RenderReadings lists readings with their meter identity and source file.
func RenderReadings(readings []models.ReadingDetail, asJSON bool) error {
	if asJSON {
		return renderJSON(readings)
	}

	writer := newTable()
	writer.AppendHeader(table.Row{"DATE", "TIME", "MPAN", "SERIAL", "REGISTER", "VALUE", "TYPE", "SOURCE FILE"})
	for _, r := range readings {
		clock := ""
		if r.ReadingTime != nil {
			clock = r.ReadingTime.Format(clockDisplayLayout)
		}
		writer.AppendRow(table.Row{
			r.ReadingDate.Format("2006-01-02"),
			clock,
			r.MPAN,
			r.SerialNumber,
			r.RegisterID,
			r.ReadingValue.StringFixed(2),
			r.ReadingType,
			r.Filename,
		})
	}
	writer.Render()
	return nil
}

// RenderMeters lists metering devices with their meter point and reading
// counts.
func RenderMeters(meters []models.MeterDetail, asJSON bool) error {
	if asJSON {
		return renderJSON(meters)
	}

	writer := newTable()
	writer.AppendHeader(table.Row{"SERIAL", "MPAN", "TYPE", "READINGS"})
	for _, m := range meters {
		writer.AppendRow(table.Row{
			m.SerialNumber,
			m.MPAN,
			m.MeterType,
			m.ReadingCount,
		})
	}
	writer.Render()
	return nil
}

// RenderMeterPoints lists meter points with their device counts.
func RenderMeterPoints(points []models.MeterPointSummary, asJSON bool) error {
	if asJSON {
		return renderJSON(points)
	}

	writer := newTable()
	writer.AppendHeader(table.Row{"MPAN", "METERS", "CREATED AT"})
	for _, p := range points {
		writer.AppendRow(table.Row{
			p.MPAN,
			p.MeterCount,
			p.CreatedAt.Format(timestampLayout),
		})
	}
	writer.Render()
	return nil
}

func newTable() table.Writer {
	writer := table.NewWriter()
	writer.SetOutputMirror(os.Stdout)
	writer.SetStyle(table.StyleRounded)
	return writer
}

func renderJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
