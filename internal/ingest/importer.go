package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"sheetsql/internal/model"
)

// TableResult records the outcome of one successfully imported file.
type TableResult struct {
	File        string
	Table       string
	RowCount    int
	SkippedRows int
}

// Report summarizes an ingestion run over a directory.
type Report struct {
	// Imported holds one entry per file that produced a table.
	Imported []TableResult
	// Skipped holds the base names of files that produced no table.
	Skipped []string
}

// Importer loads spreadsheet files into a SQLite database, replacing any
// table of the same name on each run.
type Importer struct {
	db  *sql.DB
	log *slog.Logger
}

// NewImporter creates an Importer over an open database handle.
func NewImporter(db *sql.DB, log *slog.Logger) *Importer {
	return &Importer{db: db, log: log}
}

// DiscoverFiles returns the supported spreadsheet files directly inside dir,
// sorted by name, plus the names of files passed over for carrying an
// unsupported extension. The scan is non-recursive.
func DiscoverFiles(dir string) (files, unsupported []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isSupportedFile(entry.Name()) {
			unsupported = append(unsupported, entry.Name())
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, unsupported, nil
}

// ImportDir imports every supported file in dir. A parse or store failure for
// one file is logged and skips that file; the batch continues. After the
// batch, every created table is re-counted as a non-fatal validation pass.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Report, error) {
	files, unsupported, err := DiscoverFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range unsupported {
		im.log.Warn("unsupported file type", "file", name)
	}
	im.log.Info("discovered spreadsheet files", "dir", dir, "count", len(files))

	report := &Report{}
	for _, path := range files {
		im.log.Info("processing spreadsheet file", "file", filepath.Base(path))
		result, err := im.ImportFile(ctx, path)
		if err != nil {
			im.log.Error("failed to import file, skipping",
				"file", filepath.Base(path), "error", err)
			report.Skipped = append(report.Skipped, filepath.Base(path))
			continue
		}
		report.Imported = append(report.Imported, *result)
	}

	im.validateImport(ctx, report)
	return report, nil
}

// ImportFile imports a single file, replacing any existing table of the same
// name.
func (im *Importer) ImportFile(ctx context.Context, path string) (*TableResult, error) {
	f := newFile(path)
	if f.kind == KindUnsupported {
		return nil, fmt.Errorf("ingest: unsupported file type: %s", path)
	}

	tbl, skippedRows, err := f.toTable()
	if err != nil {
		return nil, err
	}
	if skippedRows > 0 {
		im.log.Warn("skipped malformed rows",
			"file", filepath.Base(path), "rows", skippedRows)
	}

	if err := im.replaceTable(ctx, tbl); err != nil {
		return nil, err
	}

	im.log.Info("imported file as table",
		"file", filepath.Base(path),
		"table", tbl.Name(),
		"row_count", tbl.RowCount())

	return &TableResult{
		File:        filepath.Base(path),
		Table:       tbl.Name(),
		RowCount:    tbl.RowCount(),
		SkippedRows: skippedRows,
	}, nil
}

// replaceTable drops any existing table of the same name, creates the table
// with inferred column types, and inserts all records.
func (im *Importer) replaceTable(ctx context.Context, tbl *model.Table) error {
	dropQuery := fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tbl.Name())
	if _, err := im.db.ExecContext(ctx, dropQuery); err != nil {
		return fmt.Errorf("ingest: failed to drop table %s: %w", tbl.Name(), err)
	}

	columns := make([]string, 0, len(tbl.ColumnInfo()))
	for _, col := range tbl.ColumnInfo() {
		columns = append(columns, fmt.Sprintf(`"%s" %s`, col.Name, col.Type.String()))
	}
	createQuery := fmt.Sprintf(
		`CREATE TABLE "%s" (%s)`,
		tbl.Name(),
		strings.Join(columns, ", "),
	)
	if _, err := im.db.ExecContext(ctx, createQuery); err != nil {
		return fmt.Errorf("ingest: failed to create table %s: %w", tbl.Name(), err)
	}

	if len(tbl.Records()) == 0 {
		return nil
	}

	placeholders := make([]string, len(tbl.Header()))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertQuery := fmt.Sprintf(
		`INSERT INTO "%s" VALUES (%s)`,
		tbl.Name(),
		strings.Join(placeholders, ", "),
	)
	stmt, err := im.db.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("ingest: failed to prepare insert for %s: %w", tbl.Name(), err)
	}
	defer stmt.Close()

	for _, record := range tbl.Records() {
		values := make([]any, len(record))
		for i, value := range record {
			values[i] = value
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("ingest: failed to insert record into %s: %w", tbl.Name(), err)
		}
	}
	return nil
}

// validateImport re-counts every created table. Failures are warnings, not
// errors: the tables were already reported as imported.
func (im *Importer) validateImport(ctx context.Context, report *Report) {
	for _, result := range report.Imported {
		// Table names come from SanitizeTableName, so double quotes are safe.
		query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, result.Table)
		var rowCount int64
		if err := im.db.QueryRowContext(ctx, query).Scan(&rowCount); err != nil {
			im.log.Warn("validation failed for table",
				"table", result.Table, "error", err)
			continue
		}
		im.log.Info("validated table", "table", result.Table, "row_count", rowCount)
	}
}

// OpenDatabase opens (creating if needed) the SQLite database file at path,
// ensuring its parent directory exists.
func OpenDatabase(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ingest: failed to create database directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open database %s: %w", path, err)
	}
	return db, nil
}
