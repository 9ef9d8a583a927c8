// Package ingest discovers spreadsheet files and loads them into a SQLite
// database file, one table per file.
package ingest

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"

	"sheetsql/internal/model"
)

// FileKind represents the supported spreadsheet formats.
type FileKind int

const (
	// KindCSV represents comma-separated files, possibly compressed.
	KindCSV FileKind = iota
	// KindExcel represents Excel workbooks (.xlsx, .xls).
	KindExcel
	// KindUnsupported represents anything else.
	KindUnsupported
)

// File extensions
const (
	extCSV  = ".csv"
	extXLSX = ".xlsx"
	extXLS  = ".xls"
	extGZ   = ".gz"
	extBZ2  = ".bz2"
	extXZ   = ".xz"
	extZSTD = ".zst"
)

// ErrEmptyFile is returned when a file has no rows at all, not even a header.
var ErrEmptyFile = errors.New("ingest: empty file")

// file represents a discovered spreadsheet file.
type file struct {
	path string
	kind FileKind
}

func newFile(path string) *file {
	return &file{path: path, kind: detectFileKind(path)}
}

// detectFileKind detects the format from the extension, case-insensitively.
// Compression extensions are recognized on CSV files only; a compressed
// workbook is unsupported, not a broken Excel file.
func detectFileKind(path string) FileKind {
	lower := strings.ToLower(filepath.Base(path))
	for _, cext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(lower, cext) {
			if filepath.Ext(strings.TrimSuffix(lower, cext)) == extCSV {
				return KindCSV
			}
			return KindUnsupported
		}
	}
	switch filepath.Ext(lower) {
	case extCSV:
		return KindCSV
	case extXLSX, extXLS:
		return KindExcel
	default:
		return KindUnsupported
	}
}

// isSupportedFile reports whether the file name carries a supported extension.
func isSupportedFile(fileName string) bool {
	return detectFileKind(fileName) != KindUnsupported
}

func (f *file) isGZ() bool {
	return strings.HasSuffix(strings.ToLower(f.path), extGZ)
}

func (f *file) isBZ2() bool {
	return strings.HasSuffix(strings.ToLower(f.path), extBZ2)
}

func (f *file) isXZ() bool {
	return strings.HasSuffix(strings.ToLower(f.path), extXZ)
}

func (f *file) isZSTD() bool {
	return strings.HasSuffix(strings.ToLower(f.path), extZSTD)
}

// openReader opens the file and returns a reader that handles compression.
func (f *file) openReader() (io.Reader, func() error, error) {
	osFile, err := os.Open(f.path)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader = osFile
	closer := osFile.Close

	switch {
	case f.isGZ():
		gzReader, err := gzip.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = gzReader
		closer = func() error {
			_ = gzReader.Close()
			return osFile.Close()
		}
	case f.isBZ2():
		reader = bzip2.NewReader(osFile)
	case f.isXZ():
		xzReader, err := xz.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = xzReader
	case f.isZSTD():
		decoder, err := zstd.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = decoder
		closer = func() error {
			decoder.Close()
			return osFile.Close()
		}
	}

	return reader, closer, nil
}

// toTable parses the file into a table structure.
// skipped is the number of malformed CSV rows dropped by the tolerant parse.
func (f *file) toTable() (tbl *model.Table, skipped int, err error) {
	switch f.kind {
	case KindCSV:
		return f.parseCSV()
	case KindExcel:
		tbl, err = f.parseExcel()
		return tbl, 0, err
	default:
		return nil, 0, fmt.Errorf("ingest: unsupported file type: %s", f.path)
	}
}

// parseCSV parses a CSV file row by row. Rows that fail CSV parsing or whose
// field count differs from the header are skipped rather than failing the
// whole file.
func (f *file) parseCSV() (*model.Table, int, error) {
	reader, closer, err := f.openReader()
	if err != nil {
		return nil, 0, err
	}
	defer closer()

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1 // field-count mismatches handled below

	headerRow, err := csvReader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%w: %s", ErrEmptyFile, f.path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: failed to read header of %s: %w", f.path, err)
	}
	header := model.NewHeader(headerRow)

	var records []model.Record
	skipped := 0
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("ingest: failed to read %s: %w", f.path, err)
		}
		if len(row) != len(header) {
			skipped++
			continue
		}
		records = append(records, model.NewRecord(row))
	}

	tableName := model.TableNameFromFilePath(f.path)
	return model.NewTable(tableName, header, records), skipped, nil
}

// parseExcel parses the first sheet of an Excel workbook. The first row
// becomes the header; shorter data rows are padded to the header width.
func (f *file) parseExcel() (*model.Table, error) {
	xlsxFile, err := excelize.OpenFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open workbook %s: %w", f.path, err)
	}
	defer func() {
		_ = xlsxFile.Close()
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("ingest: no sheets found in workbook: %s", f.path)
	}

	// Only the first sheet is imported.
	sheetName := sheetNames[0]
	rows, err := xlsxFile.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s in %s", ErrEmptyFile, sheetName, f.path)
	}

	header, records := convertSheetRows(rows)
	tableName := model.TableNameFromFilePath(f.path)
	return model.NewTable(tableName, header, records), nil
}

// convertSheetRows converts raw sheet rows to a header and padded records.
func convertSheetRows(rows [][]string) (model.Header, []model.Record) {
	header := make(model.Header, len(rows[0]))
	copy(header, rows[0])

	var records []model.Record
	if len(rows) > 1 {
		records = make([]model.Record, len(rows)-1)
		for i, row := range rows[1:] {
			rec := make(model.Record, len(header))
			for j := range header {
				if j < len(row) {
					rec[j] = row[j]
				}
			}
			records[i] = rec
		}
	}
	return header, records
}
