package repository

import (
	"context"
	"database/sql"
	"errors"

	"meterflow/internal/models"
)

// ErrMeterNotFound indicates no device is registered under a serial.
var ErrMeterNotFound = errors.New("meter not found")

// MeterRepository handles persistence of metering devices.
type MeterRepository struct {
	db Querier
}

// NewMeterRepository returns repository.
func NewMeterRepository(db Querier) *MeterRepository {
	return &MeterRepository{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *MeterRepository) WithTx(tx *sql.Tx) *MeterRepository {
	return &MeterRepository{db: tx}
}

// FindBySerial returns a meter and the MPAN it is currently attached to.
func (r *MeterRepository) FindBySerial(ctx context.Context, serial string) (*models.MeterDetail, error) {
	const query = `
		SELECT m.id, m.serial_number, m.meter_point_id, m.meter_type, m.installed_date, m.created_at, m.updated_at, mp.mpan
		FROM meters m
		JOIN meter_points mp ON mp.id = m.meter_point_id
		WHERE m.serial_number = $1
	`
	var m models.MeterDetail
	err := r.db.QueryRowContext(ctx, query, serial).Scan(
		&m.ID,
		&m.SerialNumber,
		&m.MeterPointID,
		&m.MeterType,
		&m.InstalledDate,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.MPAN,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMeterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create registers a device under a meter point.
func (r *MeterRepository) Create(ctx context.Context, serial string, meterPointID int64) (*models.Meter, error) {
	const query = `
		INSERT INTO meters (serial_number, meter_point_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, serial_number, meter_point_id, meter_type, installed_date, created_at, updated_at
	`
	var m models.Meter
	err := r.db.QueryRowContext(ctx, query, serial, meterPointID).Scan(
		&m.ID,
		&m.SerialNumber,
		&m.MeterPointID,
		&m.MeterType,
		&m.InstalledDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Reassign moves a device to another meter point.
func (r *MeterRepository) Reassign(ctx context.Context, meterID, meterPointID int64) error {
	const query = `
		UPDATE meters
		SET meter_point_id = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, meterID, meterPointID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMeterNotFound
	}
	return nil
}

// List returns devices with their MPAN and reading counts in serial
// order. A non-empty mpan narrows the listing to meter points matching
// it by prefix.
func (r *MeterRepository) List(ctx context.Context, mpan string, limit int) ([]models.MeterDetail, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT m.id, m.serial_number, m.meter_point_id, m.meter_type, m.installed_date, m.created_at, m.updated_at,
		       mp.mpan, COUNT(rd.id) AS reading_count
		FROM meters m
		JOIN meter_points mp ON mp.id = m.meter_point_id
		LEFT JOIN readings rd ON rd.meter_id = m.id
		WHERE ($1 = '' OR mp.mpan LIKE $1 || '%')
		GROUP BY m.id, mp.mpan
		ORDER BY m.serial_number
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, mpan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []models.MeterDetail
	for rows.Next() {
		var m models.MeterDetail
		if err := rows.Scan(
			&m.ID,
			&m.SerialNumber,
			&m.MeterPointID,
			&m.MeterType,
			&m.InstalledDate,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.MPAN,
			&m.ReadingCount,
		); err != nil {
			return nil, err
		}
		meters = append(meters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meters, nil
}
