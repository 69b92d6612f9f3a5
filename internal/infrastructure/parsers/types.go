package parsers

import (
	"context"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

// Export column names of the legacy tall listings dump
const (
	ColumnListingID  = "listingsdb_id"
	ColumnFieldName  = "listingsdbelements_field_name"
	ColumnFieldValue = "listingsdbelements_field_value"
)

// ParseResult contains the parsed attribute rows plus parsing statistics
type ParseResult struct {
	Rows        []domain.RawAttributeRow
	TotalRows   int
	SkippedRows int
	Columns     []string
	Format      string
}

// RowParser is the interface all attribute-row parsers implement
type RowParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyRows determines if fully empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    500 * 1024 * 1024, // 500 MB
	}
}

// columnIndexes resolves the three required export columns inside a header.
// ok is false when any of them is absent, which is a structural failure.
func columnIndexes(header []string) (id, name, value int, ok bool) {
	id, name, value = -1, -1, -1
	for i, col := range header {
		switch col {
		case ColumnListingID:
			id = i
		case ColumnFieldName:
			name = i
		case ColumnFieldValue:
			value = i
		}
	}
	return id, name, value, id >= 0 && name >= 0 && value >= 0
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
