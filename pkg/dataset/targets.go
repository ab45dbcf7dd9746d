package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TargetOptions selects the id column of a target list
type TargetOptions struct {
	Sheet    string
	IDColumn string
}

// LoadTargetIDs reads the ordered list of row ids to fetch. Blank cells are
// skipped; anything else that is not an integer fails the whole load.
// Duplicates are preserved.
func LoadTargetIDs(path string, opts TargetOptions) ([]int, error) {
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}

	table, err := ReadTable(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	col, err := table.Column(opts.IDColumn)
	if err != nil {
		return nil, fmt.Errorf("target list %s: %w", path, err)
	}

	ids := make([]int, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		cell := table.Cell(row, col)
		if cell == "" {
			continue
		}
		id, err := parseID(cell)
		if err != nil {
			return nil, fmt.Errorf("target list %s line %d: %w", path, row+2, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// maxExactFloatInt is the largest magnitude up to which every integer has an
// exact float64 representation
const maxExactFloatInt = 1 << 53

// parseID accepts "12" as well as float renderings such as "12.0"
func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) ||
		math.Abs(f) > maxExactFloatInt {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int(f), nil
}

// WriteTargetIDs writes ids under a single column header, as CSV or as a
// workbook depending on the extension, so the file can be fed back as a
// target list.
func WriteTargetIDs(path, column string, ids []int) error {
	if column == "" {
		column = "id"
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeWorkbookIDs(path, column, ids)
	case ".csv", "":
		return writeCSVIDs(path, column, ids)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func writeCSVIDs(path, column string, ids []int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	_ = w.Write([]string{column})
	for _, id := range ids {
		_ = w.Write([]string{strconv.Itoa(id)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

func writeWorkbookIDs(path, column string, ids []int) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", column); err != nil {
		return err
	}
	for i, id := range ids {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, id); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
