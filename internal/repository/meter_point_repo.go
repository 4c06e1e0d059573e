package repository

import (
	"context"
	"database/sql"

	"meterflow/internal/models"
)

// MeterPointRepository handles persistence of meter points.
type MeterPointRepository struct {
	db Querier
}

// NewMeterPointRepository returns repository.
func NewMeterPointRepository(db Querier) *MeterPointRepository {
	return &MeterPointRepository{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *MeterPointRepository) WithTx(tx *sql.Tx) *MeterPointRepository {
	return &MeterPointRepository{db: tx}
}

// Upsert returns the meter point for an MPAN, creating it on first sight.
// An existing row is returned as-is, timestamps untouched.
func (r *MeterPointRepository) Upsert(ctx context.Context, mpan string) (*models.MeterPoint, error) {
	const query = `
		INSERT INTO meter_points (mpan, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (mpan) DO UPDATE SET mpan = EXCLUDED.mpan
		RETURNING id, mpan, created_at, updated_at
	`
	var mp models.MeterPoint
	err := r.db.QueryRowContext(ctx, query, mpan).Scan(
		&mp.ID,
		&mp.MPAN,
		&mp.CreatedAt,
		&mp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// List returns meter points with their device counts in MPAN order.
func (r *MeterPointRepository) List(ctx context.Context, limit int) ([]models.MeterPointSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT mp.id, mp.mpan, mp.created_at, mp.updated_at, COUNT(m.id) AS meter_count
		FROM meter_points mp
		LEFT JOIN meters m ON m.meter_point_id = mp.id
		GROUP BY mp.id
		ORDER BY mp.mpan
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.MeterPointSummary
	for rows.Next() {
		var mp models.MeterPointSummary
		if err := rows.Scan(
			&mp.ID,
			&mp.MPAN,
			&mp.CreatedAt,
			&mp.UpdatedAt,
			&mp.MeterCount,
		); err != nil {
			return nil, err
		}
		points = append(points, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}
