package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"climatescope/internal/models"
	"climatescope/internal/repository"
)

// RawTable is an untyped observation table: a header row plus string cells.
// Rows may be shorter than the header; missing trailing cells are empty.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Cell returns the value at row i for the column at index col, or "" when
// the row is short or col is negative.
func (t *RawTable) Cell(i, col int) string {
	if col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// ColumnIndex maps trimmed, lower-cased header names to their position
func (t *RawTable) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Source reads the raw observation table from some location
type Source interface {
	Name() string
	Read(ctx context.Context) (*RawTable, error)
}

// SourceForPath picks a file source by extension
func SourceForPath(path, sheet string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVSource{Path: path}, nil
	case ".xlsx", ".xlsm":
		return &XLSXSource{Path: path, Sheet: sheet}, nil
	default:
		return nil, &models.LoadError{
			Kind: models.LoadUnsupportedFormat,
			Path: path,
			Err:  fmt.Errorf("unsupported extension %q", filepath.Ext(path)),
		}
	}
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &models.LoadError{Kind: models.LoadFileNotFound, Path: path, Err: err}
	}
	if err != nil {
		return nil, &models.LoadError{Kind: models.LoadSourceUnavailable, Path: path, Err: err}
	}
	return f, nil
}

// CSVSource reads a comma-separated file with a header row
type CSVSource struct {
	Path string
}

func (s *CSVSource) Name() string { return s.Path }

// Read parses the file with gota, keeping every column as text so that
// coercion rules live in one place (the loader).
func (s *CSVSource) Read(ctx context.Context) (*RawTable, error) {
	f, err := openFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Err: df.Err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Missing: models.RequiredColumns}
	}

	table := &RawTable{Name: s.Path, Header: records[0], Rows: records[1:]}
	// gota renders missing string cells as "NaN"
	for _, row := range table.Rows {
		for j, cell := range row {
			if cell == "NaN" {
				row[j] = ""
			}
		}
	}
	return table, nil
}

// XLSXSource reads one worksheet of an Excel workbook. The first row is the
// header; an empty Sheet selects the first worksheet.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s *XLSXSource) Name() string {
	if s.Sheet == "" {
		return s.Path
	}
	return s.Path + "#" + s.Sheet
}

func (s *XLSXSource) Read(ctx context.Context) (*RawTable, error) {
	f, err := openFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := excelize.OpenReader(f)
	if err != nil {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Err: err}
	}
	defer wb.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Missing: models.RequiredColumns}
		}
		sheet = sheets[0]
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}
	defer rows.Close()

	table := &RawTable{Name: s.Name()}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Err: err}
		}
		if table.Header == nil {
			table.Header = cols
			continue
		}
		table.Rows = append(table.Rows, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Err: err}
	}
	if table.Header == nil {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: s.Path, Missing: models.RequiredColumns}
	}
	return table, nil
}

// PostgresSource reads the raw observation table written by the ingester
type PostgresSource struct {
	Repo       repository.ObservationRepository
	SourceFile string
}

func (s *PostgresSource) Name() string {
	if s.SourceFile == "" {
		return "postgres:raw_observations"
	}
	return "postgres:" + s.SourceFile
}

func (s *PostgresSource) Read(ctx context.Context) (*RawTable, error) {
	rows, err := s.Repo.AllObservations(ctx, s.SourceFile)
	if err != nil {
		return nil, &models.LoadError{Kind: models.LoadSourceUnavailable, Path: s.Name(), Err: err}
	}
	table := TableFromRaw(rows)
	table.Name = s.Name()
	return table, nil
}

var optionalColumns = []string{models.ColPrecipitation, models.ColLocationName}

// TableFromRaw turns stored raw rows back into a RawTable. An optional
// column (precipitation, location_name) is only included when at least one
// row carries a value: a file ingested without it loads the same way as the
// file itself, with the humidity proxy and the country as location name.
func TableFromRaw(rows []*models.RawObservation) *RawTable {
	present := map[string]bool{}
	for _, r := range rows {
		for _, col := range optionalColumns {
			if r.Cell(col) != "" {
				present[col] = true
			}
		}
	}

	header := make([]string, 0, len(models.RawColumns))
	for _, col := range models.RawColumns {
		if slices.Contains(optionalColumns, col) && !present[col] {
			continue
		}
		header = append(header, col)
	}

	table := &RawTable{Header: header, Rows: make([][]string, len(rows))}
	for i, r := range rows {
		cells := make([]string, len(header))
		for j, col := range header {
			cells[j] = r.Cell(col)
		}
		table.Rows[i] = cells
	}
	return table
}

// RawFromTable converts a RawTable to storable rows. Columns outside the
// known raw schema are ignored.
func RawFromTable(table *RawTable) []*models.RawObservation {
	idx := table.ColumnIndex()
	out := make([]*models.RawObservation, len(table.Rows))
	for i := range table.Rows {
		raw := &models.RawObservation{SourceFile: table.Name}
		for _, col := range models.RawColumns {
			if pos, ok := idx[col]; ok {
				raw.SetCell(col, strings.TrimSpace(table.Cell(i, pos)))
			}
		}
		out[i] = raw
	}
	return out
}
