// Package ui renders import progress and browse listings for the
// command line. Progress goes to stderr; tables and JSON go to stdout.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"meterflow/internal/importer"
)

const (
	timestampLayout   = "2006-01-02 15:04:05"
	maxShownWarnings  = 10
	maxShownErrorText = 48
)

type styles struct {
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	dim    *color.Color
	bold   *color.Color
}

func newStyles() styles {
	return styles{
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
}

// ImportPrinter renders import progress events to stderr with colored
// output.
type ImportPrinter struct {
	w      io.Writer
	dryRun bool
	mu     sync.Mutex
	s      styles
}

// NewImportPrinter creates an ImportPrinter that writes to stderr.
func NewImportPrinter(dryRun bool) *ImportPrinter {
	return &ImportPrinter{
		w:      os.Stderr,
		dryRun: dryRun,
		s:      newStyles(),
	}
}

// NewImportPrinterWithWriter creates an ImportPrinter that writes to the
// given writer.
func NewImportPrinterWithWriter(w io.Writer, dryRun bool) *ImportPrinter {
	return &ImportPrinter{
		w:      w,
		dryRun: dryRun,
		s:      newStyles(),
	}
}

// PrintHeader announces the batch before the first file.
func (p *ImportPrinter) PrintHeader(fileCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "Processing %d file(s)...\n", fileCount)
}

// HandleEvent is the callback wired into importer.Options.OnEvent.
func (p *ImportPrinter) HandleEvent(e importer.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case importer.EventFileStart:
		fmt.Fprintf(p.w, "\n%s Processing %s...\n",
			p.s.dim.Sprint("⟳"),
			p.s.bold.Sprint(e.Filename),
		)

	case importer.EventFileDone:
		p.handleDone(e)
	}
}

func (p *ImportPrinter) handleDone(e importer.Event) {
	r := e.Result
	if r == nil {
		return
	}

	switch r.Status {
	case importer.FileFailed:
		fmt.Fprintf(p.w, "%s Failed to process %s: %s\n",
			p.s.red.Sprint("✗"),
			p.s.bold.Sprint(e.Path),
			r.Err,
		)

	case importer.FileDuplicate:
		fmt.Fprintf(p.w, "%s File %s already imported on %s. Use --force to re-import.\n",
			p.s.dim.Sprint("—"),
			p.s.bold.Sprint(r.Filename),
			r.ImportedAt.Format(timestampLayout),
		)

	case importer.FileNoReadings:
		fmt.Fprintf(p.w, "%s %s\n",
			p.s.yellow.Sprint("—"),
			p.s.yellow.Sprintf("No valid readings found in %s", r.Filename),
		)

	case importer.FileDryRun:
		p.printDryRun(r)

	case importer.FileImported:
		detail := ""
		if r.Updated > 0 {
			detail = " " + p.s.dim.Sprintf("(%d updated)", r.Updated)
		}
		fmt.Fprintf(p.w, "%s Successfully imported %d readings from %s%s\n",
			p.s.green.Sprint("✓"),
			r.Created,
			p.s.bold.Sprint(r.Filename),
			detail,
		)
		if len(r.Warnings) > 0 {
			fmt.Fprintln(p.w, p.s.yellow.Sprintf("Completed with %d warnings", len(r.Warnings)))
		}
	}
}

func (p *ImportPrinter) printDryRun(r *importer.FileResult) {
	fmt.Fprintf(p.w, "%s Dry run: Would import %d readings\n",
		p.s.yellow.Sprint("—"),
		r.Parsed,
	)
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(p.w, p.s.yellow.Sprintf("Warnings: %d", len(r.Warnings)))
	shown := r.Warnings
	if len(shown) > maxShownWarnings {
		shown = shown[:maxShownWarnings]
	}
	for _, warning := range shown {
		fmt.Fprintf(p.w, "  - %s\n", p.s.dim.Sprint(warning))
	}
	if hidden := len(r.Warnings) - maxShownWarnings; hidden > 0 {
		fmt.Fprintf(p.w, "  %s\n", p.s.dim.Sprintf("... and %d more", hidden))
	}
}

// PrintSummary renders the final batch line.
func (p *ImportPrinter) PrintSummary(s importer.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)

	label := "Processing complete"
	if p.dryRun {
		label = p.s.yellow.Sprint("Dry run complete")
	}

	failedPart := fmt.Sprintf("%d failed", s.Failed)
	if s.Failed > 0 {
		failedPart = p.s.red.Sprint(failedPart)
	}

	fmt.Fprintf(p.w, "%s: %d succeeded, %s\n", label, s.Succeeded, failedPart)
}
