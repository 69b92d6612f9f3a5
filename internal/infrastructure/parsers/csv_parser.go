package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

// CSVParser parses the tall CSV listings export
type CSVParser struct {
	config *ParserConfig
}

// NewCSVParser creates a new CSV parser
func NewCSVParser(config *ParserConfig) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{config: config}
}

// Parse reads and parses a CSV file from disk
func (p *CSVParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, pkgerrors.InputMissing(filePath)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() == 0 {
		return nil, pkgerrors.InputMissing(filePath)
	}
	if p.config.MaxFileSize > 0 && stat.Size() > p.config.MaxFileSize {
		return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), p.config.MaxFileSize)
	}

	return p.ParseStream(ctx, file, filePath)
}

// ParseStream reads and parses CSV data from an io.Reader
func (p *CSVParser) ParseStream(ctx context.Context, r io.Reader, name string) (*ParseResult, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = p.config.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Width mismatches are handled by the skip rule
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, pkgerrors.HeaderMissing(name)
	}
	if p.config.TrimWhitespace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	idIdx, nameIdx, valueIdx, ok := columnIndexes(header)
	if !ok {
		return nil, pkgerrors.HeaderMissing(name)
	}

	rows := make([]domain.RawAttributeRow, 0, 1024)
	totalRows := 0
	skippedRows := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are skipped, never fatal
			totalRows++
			skippedRows++
			continue
		}

		totalRows++

		if len(row) != len(header) {
			skippedRows++
			continue
		}
		if p.config.SkipEmptyRows && isEmptyRow(row) {
			skippedRows++
			continue
		}

		rows = append(rows, p.toRow(row, idIdx, nameIdx, valueIdx))
	}

	return &ParseResult{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      "CSV",
	}, nil
}

func (p *CSVParser) toRow(row []string, idIdx, nameIdx, valueIdx int) domain.RawAttributeRow {
	id, name, value := row[idIdx], row[nameIdx], row[valueIdx]
	if p.config.TrimWhitespace {
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
	}
	return domain.RawAttributeRow{ListingID: id, FieldName: name, FieldValue: value}
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return []string{".csv"}
}
