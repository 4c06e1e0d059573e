// Package importer drives parsing and persistence of flow files. Files
// are processed strictly in order, each in its own transaction, and a
// failure in one file never stops the batch.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"meterflow/internal/d0010"
	"meterflow/internal/digestcache"
	"meterflow/internal/models"
	"meterflow/internal/repository"
)

// FileStatus is the outcome of processing one file.
type FileStatus string

const (
	FileImported   FileStatus = "imported"
	FileDryRun     FileStatus = "dry-run"
	FileDuplicate  FileStatus = "duplicate"
	FileNoReadings FileStatus = "no-readings"
	FileFailed     FileStatus = "failed"
)

// FileResult describes what happened to one file. Only FileFailed counts
// against the batch; duplicates, dry runs and empty files are processed
// files.
type FileResult struct {
	Path     string
	Filename string
	FileHash string
	Status   FileStatus
	Parsed   int
	Created  int
	Updated  int
	Warnings []string
	// ImportedAt is the prior import time when Status is FileDuplicate.
	ImportedAt time.Time
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []FileResult
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventFileStart EventKind = iota
	EventFileDone
)

// Event reports import progress for UI consumption.
type Event struct {
	Kind     EventKind
	Path     string
	Filename string
	Result   *FileResult // set for EventFileDone
}

// Options control a batch run.
type Options struct {
	DryRun  bool
	Force   bool
	OnEvent func(Event)
}

// Importer parses flow files and persists their readings.
type Importer struct {
	pool        *sql.DB
	parser      *d0010.Parser
	cache       *digestcache.Cache
	logger      *zap.Logger
	flowFiles   *repository.FlowFileRepository
	meterPoints *repository.MeterPointRepository
	meters      *repository.MeterRepository
	readings    *repository.ReadingRepository
}

// New wires an importer over a database pool. The cache may be nil, in
// which case duplicate detection falls through to the database.
func New(pool *sql.DB, parser *d0010.Parser, cache *digestcache.Cache, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		pool:        pool,
		parser:      parser,
		cache:       cache,
		logger:      logger,
		flowFiles:   repository.NewFlowFileRepository(pool),
		meterPoints: repository.NewMeterPointRepository(pool),
		meters:      repository.NewMeterRepository(pool),
		readings:    repository.NewReadingRepository(pool),
	}
}

// Run processes the given paths one at a time. It stops early only when
// the context is cancelled.
func (imp *Importer) Run(ctx context.Context, paths []string, opts Options) Summary {
	var summary Summary
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		result := imp.ImportFile(ctx, path, opts)
		if result.Status == FileFailed {
			summary.Failed++
			imp.logger.Error("file import failed",
				zap.String("path", path),
				zap.Error(result.Err),
			)
		} else {
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, result)
		emit(opts.OnEvent, Event{
			Kind:     EventFileDone,
			Path:     path,
			Filename: result.Filename,
			Result:   &result,
		})
	}
	return summary
}

// ImportFile processes a single flow file end to end.
func (imp *Importer) ImportFile(ctx context.Context, path string, opts Options) FileResult {
	result := FileResult{Path: path, Filename: filepath.Base(path)}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failed(result, oops.
			Code("FILE_NOT_FOUND").
			With("path", path).
			Errorf("file not found"))
	case err != nil:
		return failed(result, oops.
			Code("STAT_FAILED").
			With("path", path).
			Wrapf(err, "inspecting file"))
	case info.IsDir():
		return failed(result, oops.
			Code("NOT_A_FILE").
			With("path", path).
			Errorf("not a file"))
	}

	emit(opts.OnEvent, Event{Kind: EventFileStart, Path: path, Filename: result.Filename})

	parsed, err := imp.parser.ParseFile(path)
	if err != nil {
		return failed(result, oops.
			Code("READ_FAILED").
			With("path", path).
			Wrapf(err, "reading flow file"))
	}

	result.FileHash = parsed.FileHash
	result.Parsed = len(parsed.Readings)
	result.Warnings = diagnosticMessages(parsed.Warnings)

	imp.logger.Info("parsed flow file",
		zap.String("file", result.Filename),
		zap.String("hash", parsed.FileHash),
		zap.Int("readings", len(parsed.Readings)),
		zap.Int("warnings", len(parsed.Warnings)),
		zap.Int("errors", len(parsed.Errors)),
	)

	if len(parsed.Readings) == 0 {
		result.Status = FileNoReadings
		return result
	}

	if !opts.Force {
		existing, err := imp.findDuplicate(ctx, parsed.FileHash)
		if err != nil {
			return failed(result, oops.
				Code("LOOKUP_FAILED").
				With("hash", parsed.FileHash).
				Wrapf(err, "checking for prior import"))
		}
		if existing != nil {
			result.Status = FileDuplicate
			result.ImportedAt = existing.ImportedAt
			return result
		}
	}

	if opts.DryRun {
		result.Status = FileDryRun
		return result
	}

	var importedAt time.Time
	txErr := repository.WithinTx(ctx, imp.pool, func(tx *sql.Tx) error {
		flowFiles := imp.flowFiles.WithTx(tx)
		meterPoints := imp.meterPoints.WithTx(tx)
		meters := imp.meters.WithTx(tx)
		readings := imp.readings.WithTx(tx)

		flowFile, err := flowFiles.Upsert(ctx, result.Filename, parsed.FileHash, len(parsed.Readings))
		if err != nil {
			return fmt.Errorf("record flow file: %w", err)
		}
		importedAt = flowFile.ImportedAt

		for _, row := range parsed.Readings {
			point, err := meterPoints.Upsert(ctx, row.MPAN)
			if err != nil {
				return fmt.Errorf("upsert meter point %s: %w", row.MPAN, err)
			}

			meterID, err := imp.resolveMeter(ctx, meters, row.MeterSerial, point)
			if err != nil {
				return err
			}

			created, err := readings.Upsert(ctx, &models.Reading{
				MeterID:      meterID,
				FlowFileID:   flowFile.ID,
				ReadingDate:  row.ReadingDate,
				ReadingTime:  row.ReadingTime,
				RegisterID:   row.RegisterID,
				ReadingValue: row.Value,
				ReadingType:  string(row.Type),
			})
			if err != nil {
				return fmt.Errorf("upsert reading for %s: %w", row.MeterSerial, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
				imp.logger.Info("updated existing reading",
					zap.String("serial", row.MeterSerial),
					zap.Time("date", row.ReadingDate),
				)
			}
		}

		return flowFiles.MarkCompleted(ctx, flowFile.ID)
	})
	if txErr != nil {
		// The transaction rolled back; record the failure on its own
		// connection so the row survives.
		if mfErr := imp.flowFiles.MarkFailed(ctx, result.Filename, parsed.FileHash, txErr.Error()); mfErr != nil {
			imp.logger.Warn("could not record failed import",
				zap.String("file", result.Filename),
				zap.Error(mfErr),
			)
		}
		result.Created, result.Updated = 0, 0
		return failed(result, txErr)
	}

	if err := imp.cache.Remember(ctx, parsed.FileHash, importedAt); err != nil {
		imp.logger.Warn("could not cache file digest", zap.Error(err))
	}

	imp.logger.Info("imported flow file",
		zap.String("file", result.Filename),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("warnings", len(result.Warnings)),
	)

	result.Status = FileImported
	return result
}

// findDuplicate returns the flow file that blocks a re-import, or nil.
// Failed attempts never block a retry.
func (imp *Importer) findDuplicate(ctx context.Context, fileHash string) (*models.FlowFile, error) {
	if seen, importedAt, err := imp.cache.Seen(ctx, fileHash); err != nil {
		imp.logger.Warn("digest cache lookup failed", zap.Error(err))
	} else if seen {
		return &models.FlowFile{
			FileHash:   fileHash,
			ImportedAt: importedAt,
			Status:     models.FlowFileCompleted,
		}, nil
	}

	existing, err := imp.flowFiles.FindByHash(ctx, fileHash)
	if errors.Is(err, repository.ErrFlowFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.Status == models.FlowFileFailed {
		return nil, nil
	}
	return existing, nil
}

// resolveMeter returns the device id for a serial, registering the device
// under the meter point on first sight and reassigning it when it has
// moved to a different meter point.
func (imp *Importer) resolveMeter(ctx context.Context, meters *repository.MeterRepository, serial string, point *models.MeterPoint) (int64, error) {
	meter, err := meters.FindBySerial(ctx, serial)
	if errors.Is(err, repository.ErrMeterNotFound) {
		created, err := meters.Create(ctx, serial, point.ID)
		if err != nil {
			return 0, fmt.Errorf("create meter %s: %w", serial, err)
		}
		return created.ID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find meter %s: %w", serial, err)
	}

	if meter.MeterPointID != point.ID {
		imp.logger.Warn("meter moved",
			zap.String("serial", serial),
			zap.String("from_mpan", meter.MPAN),
			zap.String("to_mpan", point.MPAN),
		)
		if err := meters.Reassign(ctx, meter.ID, point.ID); err != nil {
			return 0, fmt.Errorf("reassign meter %s: %w", serial, err)
		}
	}
	return meter.ID, nil
}

func diagnosticMessages(diags []d0010.Diagnostic) []string {
	if len(diags) == 0 {
		return nil
	}
	messages := make([]string, len(diags))
	for i, diag := range diags {
		messages[i] = diag.String()
	}
	return messages
}

func failed(result FileResult, err error) FileResult {
	result.Status = FileFailed
	result.Err = err
	return result
}

func emit(fn func(Event), e Event) {
	if fn != nil {
		fn(e)
	}
}
