package parsers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

// JSONLParser parses newline-delimited JSON exports where each line is one
// attribute row object keyed by the export column names
type JSONLParser struct {
	config *ParserConfig
}

// NewJSONLParser creates a new JSONL parser
func NewJSONLParser(config *ParserConfig) *JSONLParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONLParser{config: config}
}

// Parse reads and parses a JSONL file from disk
func (p *JSONLParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, pkgerrors.InputMissing(filePath)
	}
	defer file.Close()

	if p.config.MaxFileSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > p.config.MaxFileSize {
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), p.config.MaxFileSize)
		}
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	rows := make([]domain.RawAttributeRow, 0, 1024)
	totalRows := 0
	skippedRows := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		totalRows++
		if len(line) == 0 {
			skippedRows++
			continue
		}

		var record map[string]string
		if err := json.Unmarshal(line, &record); err != nil {
			skippedRows++
			continue
		}

		id, okID := record[ColumnListingID]
		name, okName := record[ColumnFieldName]
		if !okID || !okName {
			skippedRows++
			continue
		}
		rows = append(rows, domain.RawAttributeRow{
			ListingID:  id,
			FieldName:  name,
			FieldValue: record[ColumnFieldValue],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL stream: %w", err)
	}

	return &ParseResult{
		Rows:        rows,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     []string{ColumnListingID, ColumnFieldName, ColumnFieldValue},
		Format:      "JSONL",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONLParser) SupportedFormats() []string {
	return []string{".jsonl", ".ndjson"}
}
