package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the meterflow tables when they do not exist yet.
// The readings unique key uses NULLS NOT DISTINCT so a date-only reading
// (reading_time IS NULL) upserts instead of piling up duplicates; this
// needs postgres 15 or later.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS flow_files (
		id            BIGSERIAL PRIMARY KEY,
		filename      VARCHAR(255) NOT NULL UNIQUE,
		file_hash     VARCHAR(64)  NOT NULL UNIQUE,
		imported_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		row_count     INTEGER      NOT NULL DEFAULT 0,
		status        VARCHAR(20)  NOT NULL DEFAULT 'pending',
		error_message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flow_files_imported_at ON flow_files (imported_at)`,

	`CREATE TABLE IF NOT EXISTS meter_points (
		id         BIGSERIAL   PRIMARY KEY,
		mpan       VARCHAR(13) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS meters (
		id             BIGSERIAL   PRIMARY KEY,
		serial_number  VARCHAR(50) NOT NULL UNIQUE,
		meter_point_id BIGINT      NOT NULL REFERENCES meter_points(id) ON DELETE CASCADE,
		meter_type     VARCHAR(20) NOT NULL DEFAULT 'single',
		installed_date DATE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meters_meter_point ON meters (meter_point_id)`,

	`CREATE TABLE IF NOT EXISTS readings (
		id            BIGSERIAL     PRIMARY KEY,
		meter_id      BIGINT        NOT NULL REFERENCES meters(id) ON DELETE CASCADE,
		flow_file_id  BIGINT        NOT NULL REFERENCES flow_files(id) ON DELETE CASCADE,
		reading_date  DATE          NOT NULL,
		reading_time  TIME,
		register_id   VARCHAR(10)   NOT NULL DEFAULT '01',
		reading_value NUMERIC(10,2) NOT NULL,
		reading_type  VARCHAR(20)   NOT NULL DEFAULT 'actual',
		created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		UNIQUE NULLS NOT DISTINCT (meter_id, reading_date, reading_time, register_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_meter_date ON readings (meter_id, reading_date)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_date ON readings (reading_date)`,
}

// EnsureSchema creates all tables and indexes used by meterflow.
func EnsureSchema(ctx context.Context, pool *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: ensure schema: %w", err)
		}
	}
	return nil
}
