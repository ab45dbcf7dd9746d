// Package dataset loads the tabular inputs of a fetch run: the row table
// holding coordinates and the list of target row ids.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Table is a header row plus the records below it. Records may be shorter
// than the header; missing trailing cells read as empty.
type Table struct {
	Header  []string
	Records [][]string
}

// ReadTable reads a workbook sheet or a delimited text file. sheet selects a
// worksheet and is ignored for text files; empty means the first sheet.
func ReadTable(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(path, sheet)
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no sheets found in %s", path)
		}
	}

	// raw values keep full coordinate precision regardless of cell formatting
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return newTable(path, rows)
}

func readDelimited(path string, comma rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = comma
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return newTable(path, rows)
}

func newTable(path string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}
	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
	}
	return &Table{Header: header, Records: rows[1:]}, nil
}

// Column returns the index of the first header matching any of names,
// compared case-insensitively in the order given
func (t *Table) Column(names ...string) (int, error) {
	for _, name := range names {
		for i, h := range t.Header {
			if strings.EqualFold(h, name) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("column %s not found in header %v", strings.Join(names, " or "), t.Header)
}

// Cell returns the trimmed value at row, col or "" when the record is short
func (t *Table) Cell(row, col int) string {
	record := t.Records[row]
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// Len returns the number of records
func (t *Table) Len() int {
	return len(t.Records)
}
