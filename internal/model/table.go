package model

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Table represents one spreadsheet file's contents as a database table.
type Table struct {
	// name is the sanitized table name derived from the file path.
	name string
	// header is the column names from the file's first row.
	header Header
	// records is the data rows.
	records []Record
	// columnInfo contains inferred type information for each column.
	columnInfo []ColumnInfo
}

// NewTable creates a Table and infers column types from the data.
func NewTable(name string, header Header, records []Record) *Table {
	return &Table{
		name:       name,
		header:     header,
		records:    records,
		columnInfo: InferColumnsInfo(header, records),
	}
}

// Name return table name.
func (t *Table) Name() string {
	return t.name
}

// Header return table header.
func (t *Table) Header() Header {
	return t.header
}

// Records return table records.
func (t *Table) Records() []Record {
	return t.records
}

// ColumnInfo returns column information with inferred types.
func (t *Table) ColumnInfo() []ColumnInfo {
	return t.columnInfo
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.records)
}

// compressionExts are stripped before the format extension when deriving a
// table name from a file path.
var compressionExts = []string{".gz", ".bz2", ".xz", ".zst"}

// TableNameFromFilePath derives the sanitized table name for a file.
// Compression extensions are removed first, then the format extension,
// and the remaining stem is sanitized.
func TableNameFromFilePath(filePath string) string {
	fileName := filepath.Base(filePath)
	for _, ext := range compressionExts {
		if strings.HasSuffix(strings.ToLower(fileName), ext) {
			fileName = fileName[:len(fileName)-len(ext)]
			break
		}
	}
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return SanitizeTableName(stem)
}

// SanitizeTableName maps a file stem to a catalog-safe identifier: every rune
// outside [A-Za-z0-9_] becomes '_', and a leading digit is prefixed with '_'.
func SanitizeTableName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 1)
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	sanitized := b.String()
	if sanitized != "" && unicode.IsDigit(rune(sanitized[0])) {
		sanitized = "_" + sanitized
	}
	return sanitized
}
