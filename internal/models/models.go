package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowFileStatus tracks the lifecycle of an imported flow file.
type FlowFileStatus string

const (
	FlowFilePending    FlowFileStatus = "pending"
	FlowFileProcessing FlowFileStatus = "processing"
	FlowFileCompleted  FlowFileStatus = "completed"
	FlowFileFailed     FlowFileStatus = "failed"
)

// FlowFile represents one imported D0010 flow file, keyed by content hash
// for duplicate detection.
type FlowFile struct {
	ID           int64          `db:"id" json:"id"`
	Filename     string         `db:"filename" json:"filename"`
	FileHash     string         `db:"file_hash" json:"file_hash"`
	ImportedAt   time.Time      `db:"imported_at" json:"imported_at"`
	RowCount     int            `db:"row_count" json:"row_count"`
	Status       FlowFileStatus `db:"status" json:"status"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty"`
}

// MeterPoint is a supply point identified by its 13-digit MPAN.
type MeterPoint struct {
	ID        int64     `db:"id" json:"id"`
	MPAN      string    `db:"mpan" json:"mpan"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MeterType labels the metering arrangement of a device.
type MeterType string

const (
	MeterTypeSingle   MeterType = "single"
	MeterTypeEconomy7 MeterType = "economy7"
	MeterTypeSmart    MeterType = "smart"
)

// Meter is a physical metering device attached to a meter point. Devices
// keep their serial for life but can move between meter points.
type Meter struct {
	ID            int64      `db:"id" json:"id"`
	SerialNumber  string     `db:"serial_number" json:"serial_number"`
	MeterPointID  int64      `db:"meter_point_id" json:"meter_point_id"`
	MeterType     MeterType  `db:"meter_type" json:"meter_type"`
	InstalledDate *time.Time `db:"installed_date" json:"installed_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Reading is one register reading tied to a meter and the flow file it
// arrived in. ReadingTime is nil when the source stamp carried no time part.
type Reading struct {
	ID           int64           `db:"id" json:"id"`
	MeterID      int64           `db:"meter_id" json:"meter_id"`
	FlowFileID   int64           `db:"flow_file_id" json:"flow_file_id"`
	ReadingDate  time.Time       `db:"reading_date" json:"reading_date"`
	ReadingTime  *time.Time      `db:"reading_time" json:"reading_time,omitempty"`
	RegisterID   string          `db:"register_id" json:"register_id"`
	ReadingValue decimal.Decimal `db:"reading_value" json:"reading_value"`
	ReadingType  string          `db:"reading_type" json:"reading_type"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// MeterPointSummary pairs a meter point with its device count for listings.
type MeterPointSummary struct {
	MeterPoint
	MeterCount int `db:"meter_count" json:"meter_count"`
}

// MeterDetail joins a meter with its meter point MPAN and reading count.
type MeterDetail struct {
	Meter
	MPAN         string `db:"mpan" json:"mpan"`
	ReadingCount int    `db:"reading_count" json:"reading_count"`
}

// ReadingDetail joins a reading with its meter serial, MPAN, and source
// filename for listings.
type ReadingDetail struct {
	Reading
	SerialNumber string `db:"serial_number" json:"serial_number"`
	MPAN         string `db:"mpan" json:"mpan"`
	Filename     string `db:"filename" json:"filename"`
}
