// Package inspect implements the read-only introspection surface over the
// ingested SQLite database: list catalog objects, describe columns,
// summarize rows, and fetch view definitions.
//
// Every operation is stateless and opens its own short-lived connection, so
// calls are independent and safe to dispatch out of order.
package inspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultDBPath is the database file written by the ingestion pipeline.
const DefaultDBPath = "data/dbs/local_debug.sqlite3"

// sampleRowLimit caps the number of sample rows in a summary.
const sampleRowLimit = 3

var (
	// ErrObjectNotFound is returned when a requested table or view does not
	// exist in the catalog.
	ErrObjectNotFound = errors.New("inspect: object not found")
	// ErrViewNotFound is returned when a requested view has no catalog entry.
	ErrViewNotFound = errors.New("inspect: view not found")
)

// ObjectList is the result of ListObjects.
type ObjectList struct {
	Tables []string `json:"tables"`
	Views  []string `json:"views"`
}

// ColumnDetail is one (name, declared type) pair in catalog column order.
type ColumnDetail struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Summary is the result of Summarize.
type Summary struct {
	RowCount   int64            `json:"row_count"`
	SampleRows []map[string]any `json:"sample_rows"`
}

// Service runs introspection queries against the database file at dbPath.
type Service struct {
	dbPath string
	log    *slog.Logger
}

// NewService creates a Service over the database file at dbPath.
func NewService(dbPath string, log *slog.Logger) *Service {
	return &Service{dbPath: dbPath, log: log}
}

// catalogObject is an identifier proven to exist in the live catalog. It is
// the only value ever interpolated into query text; everything else is bound
// as a parameter.
type catalogObject struct {
	name string
}

// quoted returns the identifier wrapped in double quotes, with embedded
// quotes doubled.
func (o catalogObject) quoted() string {
	return `"` + strings.ReplaceAll(o.name, `"`, `""`) + `"`
}

// open opens a connection scoped to a single operation.
func (s *Service) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("inspect: failed to open database %s: %w", s.dbPath, err)
	}
	return db, nil
}

// validateObject checks name against the live catalog and returns the
// validated identifier, or ErrObjectNotFound.
func (s *Service) validateObject(ctx context.Context, db *sql.DB, name string) (catalogObject, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view')`)
	if err != nil {
		return catalogObject{}, fmt.Errorf("inspect: failed to query catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			return catalogObject{}, fmt.Errorf("inspect: failed to scan catalog row: %w", err)
		}
		if candidate == name {
			return catalogObject{name: name}, nil
		}
	}
	if err := rows.Err(); err != nil {
		return catalogObject{}, fmt.Errorf("inspect: failed to read catalog: %w", err)
	}
	return catalogObject{}, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
}

// ListObjects returns the tables and views in the catalog, excluding names
// that carry the store's internal sqlite_ marker. The slices are never nil.
func (s *Service) ListObjects(ctx context.Context) (ObjectList, error) {
	s.log.Info("listing tables and views")
	objects := ObjectList{Tables: []string{}, Views: []string{}}

	db, err := s.open()
	if err != nil {
		return objects, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT type, name FROM sqlite_master WHERE type IN ('table', 'view')`)
	if err != nil {
		s.log.Error("failed to list tables and views", "error", err)
		return objects, fmt.Errorf("inspect: failed to query catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var objectType, name string
		if err := rows.Scan(&objectType, &name); err != nil {
			return objects, fmt.Errorf("inspect: failed to scan catalog row: %w", err)
		}
		if strings.Contains(name, "sqlite_") {
			continue // internal bookkeeping objects
		}
		if objectType == "table" {
			objects.Tables = append(objects.Tables, name)
		} else {
			objects.Views = append(objects.Views, name)
		}
	}
	if err := rows.Err(); err != nil {
		return objects, fmt.Errorf("inspect: failed to read catalog: %w", err)
	}

	s.log.Info("finished listing tables and views",
		"tables", len(objects.Tables), "views", len(objects.Views))
	return objects, nil
}

// DescribeColumns returns the (name, declared type) pairs for a table or
// view in catalog-defined column order. The object must exist in the
// catalog; otherwise ErrObjectNotFound is returned.
func (s *Service) DescribeColumns(ctx context.Context, objectName string) ([]ColumnDetail, error) {
	s.log.Info("getting object columns", "object_name", objectName)

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	obj, err := s.validateObject(ctx, db, objectName)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.log.Warn("object not found for columns", "object_name", objectName)
		}
		return nil, err
	}

	// PRAGMA table_info does not support parameter binding for identifiers;
	// obj is catalog-validated, which is the single sanctioned interpolation.
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+obj.quoted()+")")
	if err != nil {
		s.log.Error("failed to get object columns", "object_name", objectName, "error", err)
		return nil, fmt.Errorf("inspect: failed to read columns of %s: %w", objectName, err)
	}
	defer rows.Close()

	var columns []ColumnDetail
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("inspect: failed to scan column info: %w", err)
		}
		columns = append(columns, ColumnDetail{Name: name, Type: colType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect: failed to read column info: %w", err)
	}

	s.log.Info("finished getting object columns",
		"object_name", objectName, "columns", len(columns))
	return columns, nil
}

// Summarize returns the exact row count of a table or view plus up to 3
// sample rows in store-default order, each keyed by column name.
func (s *Service) Summarize(ctx context.Context, objectName string) (Summary, error) {
	s.log.Info("getting object summary", "object_name", objectName)
	summary := Summary{SampleRows: []map[string]any{}}

	db, err := s.open()
	if err != nil {
		return summary, err
	}
	defer db.Close()

	obj, err := s.validateObject(ctx, db, objectName)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.log.Warn("object not found for summary", "object_name", objectName)
		}
		return summary, err
	}

	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+obj.quoted()).Scan(&summary.RowCount); err != nil {
		s.log.Error("failed to get object summary", "object_name", objectName, "error", err)
		return summary, fmt.Errorf("inspect: failed to count rows of %s: %w", objectName, err)
	}

	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", obj.quoted(), sampleRowLimit))
	if err != nil {
		s.log.Error("failed to get object summary", "object_name", objectName, "error", err)
		return summary, fmt.Errorf("inspect: failed to sample rows of %s: %w", objectName, err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return summary, fmt.Errorf("inspect: failed to read column names of %s: %w", objectName, err)
	}

	for rows.Next() {
		values := make([]any, len(columnNames))
		pointers := make([]any, len(columnNames))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return summary, fmt.Errorf("inspect: failed to scan sample row: %w", err)
		}

		row := make(map[string]any, len(columnNames))
		for i, columnName := range columnNames {
			if b, ok := values[i].([]byte); ok {
				row[columnName] = string(b)
			} else {
				row[columnName] = values[i]
			}
		}
		summary.SampleRows = append(summary.SampleRows, row)
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("inspect: failed to read sample rows: %w", err)
	}

	s.log.Info("finished getting object summary",
		"object_name", objectName, "row_count", summary.RowCount)
	return summary, nil
}

// ViewDefinition returns the defining SQL of a view by exact name match, or
// ErrViewNotFound.
func (s *Service) ViewDefinition(ctx context.Context, viewName string) (string, error) {
	s.log.Info("getting view definition", "view_name", viewName)

	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	var definition string
	err = db.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type='view' AND name=?`,
		viewName,
	).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("view not found", "view_name", viewName)
		return "", fmt.Errorf("%w: %s", ErrViewNotFound, viewName)
	}
	if err != nil {
		s.log.Error("failed to get view definition", "view_name", viewName, "error", err)
		return "", fmt.Errorf("inspect: failed to look up view %s: %w", viewName, err)
	}

	s.log.Info("finished getting view definition", "view_name", viewName)
	return definition, nil
}
