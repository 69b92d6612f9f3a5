package parsers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

// ExcelParser parses attribute-row exports delivered as spreadsheets
type ExcelParser struct {
	config *ParserConfig
}

// NewExcelParser creates a new Excel parser
func NewExcelParser(config *ParserConfig) *ExcelParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &ExcelParser{config: config}
}

// Parse reads and parses an Excel file from disk
func (p *ExcelParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	if p.config.MaxFileSize > 0 {
		stat, err := os.Stat(filePath)
		if err != nil {
			return nil, pkgerrors.InputMissing(filePath)
		}
		if stat.Size() > p.config.MaxFileSize {
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), p.config.MaxFileSize)
		}
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	allRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}
	if len(allRows) == 0 {
		return nil, pkgerrors.HeaderMissing(filePath)
	}

	header := allRows[0]
	if p.config.TrimWhitespace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	idIdx, nameIdx, valueIdx, ok := columnIndexes(header)
	if !ok {
		return nil, pkgerrors.HeaderMissing(filePath)
	}

	rows := make([]domain.RawAttributeRow, 0, len(allRows)-1)
	totalRows := 0
	skippedRows := 0

	for rowIdx := 1; rowIdx < len(allRows); rowIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row := allRows[rowIdx]
		totalRows++

		// excelize drops trailing empty cells, so short rows are only
		// malformed when a required column is missing
		if len(row) <= idIdx || len(row) <= nameIdx {
			skippedRows++
			continue
		}
		if p.config.SkipEmptyRows && isEmptyRow(row) {
			skippedRows++
			continue
		}

		value := ""
		if valueIdx < len(row) {
			value = row[valueIdx]
		}
		id, name := row[idIdx], row[nameIdx]
		if p.config.TrimWhitespace {
			id = strings.TrimSpace(id)
			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
		}
		rows = append(rows, domain.RawAttributeRow{ListingID: id, FieldName: name, FieldValue: value})
	}

	return &ParseResult{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      "XLSX",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *ExcelParser) SupportedFormats() []string {
	return []string{".xlsx", ".xls"}
}
