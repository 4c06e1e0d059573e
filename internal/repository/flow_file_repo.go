package repository

import (
	"context"
	"database/sql"
	"errors"

	"meterflow/internal/models"
)

// ErrFlowFileNotFound indicates no import has been recorded for a digest.
var ErrFlowFileNotFound = errors.New("flow file not found")

// FlowFileRepository handles persistence of flow file import records.
type FlowFileRepository struct {
	db Querier
}

// NewFlowFileRepository returns repository.
func NewFlowFileRepository(db Querier) *FlowFileRepository {
	return &FlowFileRepository{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *FlowFileRepository) WithTx(tx *sql.Tx) *FlowFileRepository {
	return &FlowFileRepository{db: tx}
}

// FindByHash returns the import recorded for a content hash.
func (r *FlowFileRepository) FindByHash(ctx context.Context, fileHash string) (*models.FlowFile, error) {
	const query = `
		SELECT id, filename, file_hash, imported_at, row_count, status, COALESCE(error_message, '')
		FROM flow_files
		WHERE file_hash = $1
	`
	var f models.FlowFile
	err := r.db.QueryRowContext(ctx, query, fileHash).Scan(
		&f.ID,
		&f.Filename,
		&f.FileHash,
		&f.ImportedAt,
		&f.RowCount,
		&f.Status,
		&f.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlowFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Upsert records an in-progress import keyed by content hash. A hash seen
// before keeps its original imported_at; filename, row count, and status
// are refreshed.
func (r *FlowFileRepository) Upsert(ctx context.Context, filename, fileHash string, rowCount int) (*models.FlowFile, error) {
	const query = `
		INSERT INTO flow_files (filename, file_hash, imported_at, row_count, status)
		VALUES ($1, $2, NOW(), $3, $4)
		ON CONFLICT (file_hash) DO UPDATE SET
			filename = EXCLUDED.filename,
			row_count = EXCLUDED.row_count,
			status = EXCLUDED.status
		RETURNING id, filename, file_hash, imported_at, row_count, status, COALESCE(error_message, '')
	`
	var f models.FlowFile
	err := r.db.QueryRowContext(ctx, query, filename, fileHash, rowCount, models.FlowFileProcessing).Scan(
		&f.ID,
		&f.Filename,
		&f.FileHash,
		&f.ImportedAt,
		&f.RowCount,
		&f.Status,
		&f.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// MarkCompleted finalizes a successful import and clears any failure note
// left by an earlier attempt.
func (r *FlowFileRepository) MarkCompleted(ctx context.Context, id int64) error {
	const query = `
		UPDATE flow_files
		SET status = $2,
		    error_message = NULL
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, models.FlowFileCompleted)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFlowFileNotFound
	}
	return nil
}

// MarkFailed records an import failure for the hash. The import transaction
// has already rolled back at this point, so the row is upserted fresh.
func (r *FlowFileRepository) MarkFailed(ctx context.Context, filename, fileHash, message string) error {
	const query = `
		INSERT INTO flow_files (filename, file_hash, imported_at, row_count, status, error_message)
		VALUES ($1, $2, NOW(), 0, $3, $4)
		ON CONFLICT (file_hash) DO UPDATE SET
			filename = EXCLUDED.filename,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message
	`
	_, err := r.db.ExecContext(ctx, query, filename, fileHash, models.FlowFileFailed, message)
	return err
}

// List returns recent imports, newest first, optionally filtered by status.
func (r *FlowFileRepository) List(ctx context.Context, status string, limit int) ([]models.FlowFile, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT id, filename, file_hash, imported_at, row_count, status, COALESCE(error_message, '')
		FROM flow_files
		WHERE ($1 = '' OR status = $1)
		ORDER BY imported_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.FlowFile
	for rows.Next() {
		var f models.FlowFile
		if err := rows.Scan(
			&f.ID,
			&f.Filename,
			&f.FileHash,
			&f.ImportedAt,
			&f.RowCount,
			&f.Status,
			&f.ErrorMessage,
		); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}
