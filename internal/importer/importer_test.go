package importer_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meterflow/internal/d0010"
	"meterflow/internal/db"
	"meterflow/internal/importer"
)

const twoReadingFile = `ZHV|0000475656|D0010002|D|UDMS|X|MRCY|20160302153151||||OPER|
026|1234567890123|V|
028|ABC123|D|
030|01|20240115143000|12345.67|||T|A|
026|9876543210987|V|
028|XYZ789|C|
030|01|20240116093000|54321.00|||T|E|
ZPT|0000475656|2||2|20160302154650|`

const oneReadingFile = `ZHV|0000475656|D0010002|D|UDMS|X|MRCY|20160302153151||||OPER|
026|1234567890123|V|
028|ABC123|D|
030|01|20240115143000|12345.67|||T|A|
ZPT|0000475656|1||1|20160302154650|`

// Same meter, date, time and register as oneReadingFile but a new value
// and a different header serial so the digest differs.
const revisedReadingFile = `ZHV|0000475657|D0010002|D|UDMS|X|MRCY|20160302153151||||OPER|
026|1234567890123|V|
028|ABC123|D|
030|01|20240115143000|99999.99|||T|A|
ZPT|0000475657|1||1|20160302154650|`

// Meter ABC123 appearing under a different MPAN.
const movedMeterFile = `ZHV|0000475657|D0010002|D|UDMS|X|MRCY|20160302153151||||OPER|
026|9876543210987|V|
028|ABC123|D|
030|01|20240116143000|23456.78|||T|A|
ZPT|0000475657|1||1|20160302154650|`

const headerOnlyFile = `ZHV|0000475656|D0010002|D|UDMS|X|MRCY|20160302153151||||OPER|
ZPT|0000475656|0||0|20160302154650|`

// setupDB connects to the database named by METERFLOW_TEST_DSN, ensures
// the schema and starts from empty tables. Tests are skipped when the
// variable is unset.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("METERFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("METERFLOW_TEST_DSN not set")
	}

	pool, err := db.NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	require.NoError(t, db.EnsureSchema(ctx, pool))
	_, err = pool.ExecContext(ctx, "TRUNCATE readings, meters, meter_points, flow_files RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return pool
}

func newImporter(pool *sql.DB) *importer.Importer {
	return importer.New(pool, d0010.NewParser(), nil, zap.NewNop())
}

func writeFlowFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countRows(t *testing.T, pool *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestImportValidFile(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "two_readings.uff", twoReadingFile)

	summary := newImporter(pool).Run(context.Background(), []string{path}, importer.Options{})

	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 1)

	result := summary.Results[0]
	assert.Equal(t, importer.FileImported, result.Status)
	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Len(t, result.FileHash, 64)

	assert.Equal(t, 1, countRows(t, pool, "flow_files"))
	assert.Equal(t, 2, countRows(t, pool, "meter_points"))
	assert.Equal(t, 2, countRows(t, pool, "meters"))
	assert.Equal(t, 2, countRows(t, pool, "readings"))

	var status string
	var rowCount int
	require.NoError(t, pool.QueryRow("SELECT status, row_count FROM flow_files").Scan(&status, &rowCount))
	assert.Equal(t, "completed", status)
	assert.Equal(t, 2, rowCount)
}

func TestImportMissingFile(t *testing.T) {
	pool := setupDB(t)

	summary := newImporter(pool).Run(context.Background(), []string{"/nonexistent/file.uff"}, importer.Options{})

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, importer.FileFailed, summary.Results[0].Status)
	assert.ErrorContains(t, summary.Results[0].Err, "file not found")
	assert.Equal(t, 0, countRows(t, pool, "flow_files"))
}

func TestImportDirectoryFails(t *testing.T) {
	pool := setupDB(t)
	dir := t.TempDir()

	result := newImporter(pool).ImportFile(context.Background(), dir, importer.Options{})

	assert.Equal(t, importer.FileFailed, result.Status)
	assert.ErrorContains(t, result.Err, "not a file")
}

func TestImportDuplicateSkipped(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "one_reading.uff", oneReadingFile)
	imp := newImporter(pool)
	ctx := context.Background()

	first := imp.ImportFile(ctx, path, importer.Options{})
	require.Equal(t, importer.FileImported, first.Status)

	second := imp.ImportFile(ctx, path, importer.Options{})
	assert.Equal(t, importer.FileDuplicate, second.Status)
	assert.False(t, second.ImportedAt.IsZero())
	assert.Equal(t, 1, countRows(t, pool, "readings"))
}

func TestImportForceReimport(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "one_reading.uff", oneReadingFile)
	imp := newImporter(pool)
	ctx := context.Background()

	first := imp.ImportFile(ctx, path, importer.Options{})
	require.Equal(t, importer.FileImported, first.Status)
	require.Equal(t, 1, first.Created)

	second := imp.ImportFile(ctx, path, importer.Options{Force: true})
	assert.Equal(t, importer.FileImported, second.Status)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 1, countRows(t, pool, "readings"))
}

func TestImportUpdatesExistingReading(t *testing.T) {
	pool := setupDB(t)
	imp := newImporter(pool)
	ctx := context.Background()

	first := imp.ImportFile(ctx, writeFlowFile(t, "original.uff", oneReadingFile), importer.Options{})
	require.Equal(t, importer.FileImported, first.Status)

	second := imp.ImportFile(ctx, writeFlowFile(t, "revised.uff", revisedReadingFile), importer.Options{})
	require.Equal(t, importer.FileImported, second.Status)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	assert.Equal(t, 1, countRows(t, pool, "readings"))
	var value string
	require.NoError(t, pool.QueryRow("SELECT reading_value::text FROM readings").Scan(&value))
	assert.Equal(t, "99999.99", value)
}

func TestImportDryRun(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "one_reading.uff", oneReadingFile)

	result := newImporter(pool).ImportFile(context.Background(), path, importer.Options{DryRun: true})

	assert.Equal(t, importer.FileDryRun, result.Status)
	assert.Equal(t, 1, result.Parsed)
	assert.Equal(t, 0, countRows(t, pool, "flow_files"))
	assert.Equal(t, 0, countRows(t, pool, "readings"))
}

func TestImportMultipleFiles(t *testing.T) {
	pool := setupDB(t)
	paths := []string{
		writeFlowFile(t, "file1.uff", oneReadingFile),
		writeFlowFile(t, "file2.uff", movedMeterFile),
	}

	summary := newImporter(pool).Run(context.Background(), paths, importer.Options{})

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, countRows(t, pool, "flow_files"))
	assert.Equal(t, 2, countRows(t, pool, "readings"))
}

func TestImportMeterMovement(t *testing.T) {
	pool := setupDB(t)
	imp := newImporter(pool)
	ctx := context.Background()

	first := imp.ImportFile(ctx, writeFlowFile(t, "file1.uff", oneReadingFile), importer.Options{})
	require.Equal(t, importer.FileImported, first.Status)

	second := imp.ImportFile(ctx, writeFlowFile(t, "file2.uff", movedMeterFile), importer.Options{})
	require.Equal(t, importer.FileImported, second.Status)

	assert.Equal(t, 2, countRows(t, pool, "meter_points"))
	assert.Equal(t, 1, countRows(t, pool, "meters"))

	var mpan string
	require.NoError(t, pool.QueryRow(`
		SELECT mp.mpan
		FROM meters m
		JOIN meter_points mp ON mp.id = m.meter_point_id
		WHERE m.serial_number = 'ABC123'
	`).Scan(&mpan))
	assert.Equal(t, "9876543210987", mpan)
}

func TestImportNoReadings(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "empty.uff", headerOnlyFile)

	summary := newImporter(pool).Run(context.Background(), []string{path}, importer.Options{})

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, importer.FileNoReadings, summary.Results[0].Status)
	assert.Equal(t, 0, countRows(t, pool, "flow_files"))
	assert.Equal(t, 0, countRows(t, pool, "readings"))
}

func TestImportRetriesAfterFailedAttempt(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "retry.uff", oneReadingFile)
	hash := d0010.NewParser().Parse([]byte(oneReadingFile)).FileHash

	_, err := pool.Exec(`
		INSERT INTO flow_files (filename, file_hash, row_count, status, error_message)
		VALUES ($1, $2, 0, 'failed', 'connection reset')
	`, filepath.Base(path), hash)
	require.NoError(t, err)

	result := newImporter(pool).ImportFile(context.Background(), path, importer.Options{})

	assert.Equal(t, importer.FileImported, result.Status)
	var status string
	require.NoError(t, pool.QueryRow("SELECT status FROM flow_files WHERE file_hash = $1", hash).Scan(&status))
	assert.Equal(t, "completed", status)
}

func TestImportEventsForValidFile(t *testing.T) {
	pool := setupDB(t)
	path := writeFlowFile(t, "events.uff", oneReadingFile)

	var events []importer.Event
	newImporter(pool).Run(context.Background(), []string{path}, importer.Options{
		OnEvent: func(e importer.Event) { events = append(events, e) },
	})

	require.Len(t, events, 2)
	assert.Equal(t, importer.EventFileStart, events[0].Kind)
	assert.Equal(t, "events.uff", events[0].Filename)
	assert.Equal(t, importer.EventFileDone, events[1].Kind)
	require.NotNil(t, events[1].Result)
	assert.Equal(t, importer.FileImported, events[1].Result.Status)
}

// Stat failures are reported before any database work, so this test runs
// without a database.
func TestRunMissingFileEmitsOnlyDoneEvent(t *testing.T) {
	imp := importer.New(nil, d0010.NewParser(), nil, zap.NewNop())

	var events []importer.Event
	summary := imp.Run(context.Background(), []string{"/nonexistent/file.uff"}, importer.Options{
		OnEvent: func(e importer.Event) { events = append(events, e) },
	})

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, events, 1)
	assert.Equal(t, importer.EventFileDone, events[0].Kind)
	require.NotNil(t, events[0].Result)
	assert.Equal(t, importer.FileFailed, events[0].Result.Status)
	assert.ErrorContains(t, events[0].Result.Err, "file not found")
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	imp := importer.New(nil, d0010.NewParser(), nil, zap.NewNop())
	summary := imp.Run(ctx, []string{"/a.uff", "/b.uff"}, importer.Options{})

	assert.Empty(t, summary.Results)
	assert.Equal(t, 0, summary.Succeeded+summary.Failed)
}
