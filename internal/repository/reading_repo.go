package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meterflow/internal/models"
)

// clockLayout is the text form used when binding and scanning the
// time-of-day column.
const clockLayout = "15:04:05"

// dateLayout is the text form used when binding date range bounds.
const dateLayout = "2006-01-02"

// ReadingFilter narrows the reading listing. Zero values leave a
// dimension unfiltered.
type ReadingFilter struct {
	MPAN   string     // prefix match
	Serial string     // case-insensitive contains
	From   *time.Time // inclusive lower bound on reading_date
	To     *time.Time // inclusive upper bound on reading_date
	Limit  int
}

// ReadingRepository handles persistence of register readings.
type ReadingRepository struct {
	db Querier
}

func NewReadingRepository(db Querier) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ReadingRepository) WithTx(tx *sql.Tx) *ReadingRepository {
	return &ReadingRepository{db: tx}
}

// Upsert stores a reading keyed by meter, date, time and register. It
// reports true when a new row was created; otherwise the existing row is
// refreshed with the new value, type and source file.
func (r *ReadingRepository) Upsert(ctx context.Context, reading *models.Reading) (bool, error) {
	const findQuery = `
		SELECT id
		FROM readings
		WHERE meter_id = $1
		  AND reading_date = $2
		  AND reading_time IS NOT DISTINCT FROM $3::time
		  AND register_id = $4
	`

	var id int64
	err := r.db.QueryRowContext(ctx, findQuery,
		reading.MeterID,
		reading.ReadingDate,
		clockArg(reading.ReadingTime),
		reading.RegisterID,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		const insertQuery = `
			INSERT INTO readings (
				meter_id, flow_file_id, reading_date, reading_time,
				register_id, reading_value, reading_type
			)
			VALUES ($1, $2, $3, $4::time, $5, $6, $7)
			RETURNING id, created_at
		`
		err := r.db.QueryRowContext(ctx, insertQuery,
			reading.MeterID,
			reading.FlowFileID,
			reading.ReadingDate,
			clockArg(reading.ReadingTime),
			reading.RegisterID,
			reading.ReadingValue,
			reading.ReadingType,
		).Scan(&reading.ID, &reading.CreatedAt)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	const updateQuery = `
		UPDATE readings
		SET flow_file_id = $2,
		    reading_value = $3,
		    reading_type = $4
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, updateQuery,
		id,
		reading.FlowFileID,
		reading.ReadingValue,
		reading.ReadingType,
	)
	if err != nil {
		return false, err
	}
	reading.ID = id
	return false, nil
}

// List returns readings joined with their meter, meter point and source
// file, newest first.
func (r *ReadingRepository) List(ctx context.Context, filter ReadingFilter) ([]models.ReadingDetail, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	const query = `
		SELECT rd.id, rd.meter_id, rd.flow_file_id, rd.reading_date,
		       rd.reading_time::text, rd.register_id, rd.reading_value::text,
		       rd.reading_type, rd.created_at,
		       m.serial_number, mp.mpan, ff.filename
		FROM readings rd
		JOIN meters m ON m.id = rd.meter_id
		JOIN meter_points mp ON mp.id = m.meter_point_id
		JOIN flow_files ff ON ff.id = rd.flow_file_id
		WHERE ($1 = '' OR mp.mpan LIKE $1 || '%')
		  AND ($2 = '' OR m.serial_number ILIKE '%' || $2 || '%')
		  AND ($3::date IS NULL OR rd.reading_date >= $3::date)
		  AND ($4::date IS NULL OR rd.reading_date <= $4::date)
		ORDER BY rd.reading_date DESC, rd.reading_time DESC NULLS LAST, rd.id DESC
		LIMIT $5
	`

	rows, err := r.db.QueryContext(ctx, query,
		filter.MPAN,
		filter.Serial,
		dateArg(filter.From),
		dateArg(filter.To),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.ReadingDetail
	for rows.Next() {
		var (
			detail models.ReadingDetail
			clock  sql.NullString
		)
		err := rows.Scan(
			&detail.ID,
			&detail.MeterID,
			&detail.FlowFileID,
			&detail.ReadingDate,
			&clock,
			&detail.RegisterID,
			&detail.ReadingValue,
			&detail.ReadingType,
			&detail.CreatedAt,
			&detail.SerialNumber,
			&detail.MPAN,
			&detail.Filename,
		)
		if err != nil {
			return nil, err
		}
		if clock.Valid {
			parsed, err := time.Parse(clockLayout, clock.String)
			if err != nil {
				return nil, fmt.Errorf("repository: parse reading time %q: %w", clock.String, err)
			}
			detail.ReadingTime = &parsed
		}
		readings = append(readings, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// clockArg converts an optional time of day to its SQL text form, with
// nil mapping to NULL.
func clockArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(clockLayout)
}

// dateArg converts an optional date bound to its SQL text form, with nil
// mapping to NULL.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
