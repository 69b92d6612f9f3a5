package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/infrastructure/parsers"
)

// The output contract requires every field double-quoted with internal
// quotes doubled, invisible Unicode stripped, and bare LF line endings.
// encoding/csv cannot force quoting on every field, so the writer emits the
// format directly.

// zeroWidthRunes are the invisible characters stripped from output values
var zeroWidthRunes = map[rune]bool{
	'\u200B': true, // zero width space
	'\u200C': true, // zero width non-joiner
	'\u200D': true, // zero width joiner
	'\u2060': true, // word joiner
	'\uFEFF': true, // byte order mark
}

// WriteRows writes the normalized attribute rows with the export header
func WriteRows(path string, rows []domain.RawAttributeRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	writeLine(w, parsers.ColumnListingID, parsers.ColumnFieldName, parsers.ColumnFieldValue)
	for _, row := range rows {
		writeLine(w, row.ListingID, row.FieldName, row.FieldValue)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}

func writeLine(w *bufio.Writer, fields ...string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(quoteField(field))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// quoteField strips invisible runes and doubles internal quotes
func quoteField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if zeroWidthRunes[r] {
			continue
		}
		if r == '"' {
			b.WriteString(`""`)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
