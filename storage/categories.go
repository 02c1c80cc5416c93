package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"sepet/models"
)

// CSVCategorySource reads category labels from a ';'-separated file with a
// header row.
type CSVCategorySource struct {
	path   string
	column string
}

// NewCSVCategorySource returns a source reading column from the CSV at path.
func NewCSVCategorySource(path, column string) *CSVCategorySource {
	return &CSVCategorySource{path: path, column: column}
}

func (s *CSVCategorySource) Name() string { return s.path }

func (s *CSVCategorySource) LoadCategories(_ context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &models.ConfigError{Source: s.path, Reason: "open categories file", Err: err}
	}
	defer f.Close()

	return ReadCategoriesCSV(s.path, f, s.column)
}

// ReadCategoriesCSV reads the named column from ';'-separated CSV data.
func ReadCategoriesCSV(source string, r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &models.ConfigError{Source: source, Reason: "parse categories csv", Err: err}
	}
	return columnValues(source, rows, column)
}

// XLSXCategorySource reads category labels from the first sheet of a workbook.
type XLSXCategorySource struct {
	path   string
	column string
}

// NewXLSXCategorySource returns a source reading column from the workbook at path.
func NewXLSXCategorySource(path, column string) *XLSXCategorySource {
	return &XLSXCategorySource{path: path, column: column}
}

func (s *XLSXCategorySource) Name() string { return s.path }

func (s *XLSXCategorySource) LoadCategories(_ context.Context) ([]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, &models.ConfigError{Source: s.path, Reason: "open categories workbook", Err: err}
	}
	defer f.Close()

	return ReadCategoriesWorkbook(s.path, f, s.column)
}

// ReadCategoriesWorkbook reads the named column from the first sheet of f.
func ReadCategoriesWorkbook(source string, f *excelize.File, column string) ([]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &models.ConfigError{Source: source, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &models.ConfigError{Source: source, Reason: "read sheet " + sheets[0], Err: err}
	}
	return columnValues(source, rows, column)
}

// columnValues treats rows[0] as the header. A header with a single column is
// used regardless of its name.
func columnValues(source string, rows [][]string, column string) ([]string, error) {
	if len(rows) == 0 {
		return nil, &models.ConfigError{Source: source, Reason: "categories file is empty"}
	}

	header := rows[0]
	idx := -1
	if len(header) == 1 {
		idx = 0
	} else {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, &models.ConfigError{
			Source: source,
			Reason: fmt.Sprintf("column %q not found", column),
			Err:    errors.New("header: " + strings.Join(header, ";")),
		}
	}

	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		values = append(values, row[idx])
	}
	return values, nil
}
