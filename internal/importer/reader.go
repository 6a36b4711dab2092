/**
 * @description
 * Table reader shared by the data importers. Loads CSV or XLSX files into
 * header-keyed rows so the importers never deal with column positions.
 * Header cells are trimmed and lower-cased, which makes lookups
 * case-insensitive; fully empty rows are dropped the way the source sheets
 * expect.
 *
 * @dependencies
 * - encoding/csv for .csv files
 * - github.com/xuri/excelize/v2 for .xlsx files (first sheet only)
 */

package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one table row keyed by lower-cased header cell. Missing trailing
// cells read as "".
type Row map[string]string

// Table is a loaded sheet: the normalized header plus its data rows.
type Table struct {
	Path    string
	Headers []string
	Rows    []Row
}

// Require errors when any of the named columns is absent from the header.
// The importers call it before processing so a renamed column fails the
// whole run instead of silently skipping every row.
func (t *Table) Require(columns ...string) error {
	present := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		present[h] = true
	}
	for _, col := range columns {
		if !present[col] {
			return fmt.Errorf("%s is missing required column %q", t.Path, col)
		}
	}
	return nil
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// ReadTable loads path into header-keyed rows, dispatching on the file
// extension. The first row is the header; it must be present and non-empty.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported table format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // source sheets have ragged rows

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		records = append(records, record)
	}

	return tableFromRecords(path, records)
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}

	return tableFromRecords(path, records)
}

// tableFromRecords turns raw records into a Table. Cells are trimmed,
// headers lower-cased, and rows whose every cell is empty are dropped.
func tableFromRecords(path string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is missing a header row", path)
	}

	headers := make([]string, 0, len(records[0]))
	for _, cell := range records[0] {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell)))
	}
	headerSeen := false
	for _, h := range headers {
		if h != "" {
			headerSeen = true
			break
		}
	}
	if !headerSeen {
		return nil, fmt.Errorf("%s is missing a header row", path)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			row[header] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{Path: path, Headers: headers, Rows: rows}, nil
}

// findTable resolves base inside dir to an existing .csv or .xlsx file,
// preferring CSV. The importers use it so a directory can mix both formats.
func findTable(dir, base string) (string, error) {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s.csv or %s.xlsx in %s", base, base, dir)
}
