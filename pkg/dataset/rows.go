package dataset

import (
	"fmt"
	"strconv"

	errs "tilefetch/pkg/errors"
)

// Coordinate is a WGS84 position
type Coordinate struct {
	Lat float64
	Lon float64
}

// RowOptions selects where coordinates live in the row table
type RowOptions struct {
	Sheet     string
	LatColumn string
	LonColumn string
}

// RowTable resolves a 0-based record position to its coordinate. Values are
// parsed on lookup so a malformed record only affects its own id.
type RowTable struct {
	table *Table
	lat   int
	lon   int
}

// LoadRowTable reads the table at path and locates the coordinate columns.
// A missing "long" column falls back to "lon" and the other way round.
func LoadRowTable(path string, opts RowOptions) (*RowTable, error) {
	if opts.LatColumn == "" {
		opts.LatColumn = "lat"
	}
	if opts.LonColumn == "" {
		opts.LonColumn = "long"
	}

	table, err := ReadTable(path, opts.Sheet)
	if err != nil {
		return nil, err
	}

	lat, err := table.Column(opts.LatColumn)
	if err != nil {
		return nil, fmt.Errorf("row table %s: %w", path, err)
	}
	lon, err := table.Column(lonAliases(opts.LonColumn)...)
	if err != nil {
		return nil, fmt.Errorf("row table %s: %w", path, err)
	}

	return &RowTable{table: table, lat: lat, lon: lon}, nil
}

func lonAliases(name string) []string {
	switch name {
	case "long":
		return []string{"long", "lon"}
	case "lon":
		return []string{"lon", "long"}
	default:
		return []string{name}
	}
}

// Len returns the number of addressable rows
func (r *RowTable) Len() int {
	return r.table.Len()
}

// Lookup returns the coordinate of row i. Out of range positions and cells
// that are not numbers are row lookup errors.
func (r *RowTable) Lookup(i int) (Coordinate, error) {
	if i < 0 || i >= r.table.Len() {
		return Coordinate{}, errs.RowLookup(i, fmt.Errorf("row %d out of range [0, %d)", i, r.table.Len()))
	}

	lat, err := parseFloatCell(r.table.Cell(i, r.lat))
	if err != nil {
		return Coordinate{}, errs.RowLookup(i, fmt.Errorf("%s: %w", r.table.Header[r.lat], err))
	}
	lon, err := parseFloatCell(r.table.Cell(i, r.lon))
	if err != nil {
		return Coordinate{}, errs.RowLookup(i, fmt.Errorf("%s: %w", r.table.Header[r.lon], err))
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

func parseFloatCell(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
