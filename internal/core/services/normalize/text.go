package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	breakTagRegexp    = regexp.MustCompile(`(?i)<\s*(?:br|p)\s*/?\s*>|<\s*/p\s*>`)
	breakRunRegexp    = regexp.MustCompile(`(?i)(?:\s*<\s*(?:br|p)\s*/?\s*>\s*|\s*<\s*/p\s*>\s*){2,}`)
	blankRunRegexp    = regexp.MustCompile(`(?:\r?\n[ \t]*){2,}`)
	spaceRunRegexp    = regexp.MustCompile(`[ \t]+`)
	sentenceGapRegexp = regexp.MustCompile(`([.!?])[ \t]+(\p{Lu})`)
)

// typographicReplacer folds curly quotes, dashes and ellipses to their
// ASCII equivalents before the non-ASCII drop
var typographicReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`,
	"–", "-", "—", "-", "…", "...",
	" ", " ",
)

// acronymAllowList keeps recognized abbreviations out of the ALL-CAPS
// sentence-casing pass
var acronymAllowList = map[string]bool{
	"NSW": true, "QLD": true, "VIC": true, "TAS": true, "ACT": true,
	"GST": true, "POA": true, "ONO": true, "EOI": true, "STCA": true,
	"CBD": true, "BBQ": true, "TBA": true, "TBC": true, "DHA": true,
	"NBN": true, "LUG": true, "WIR": true, "ENS": true,
}

// asciiFold strips diacritics then drops any rune still outside ASCII.
// The drop guarantees downstream ASCII-safe storage and is deliberately
// lossy for emoji and other symbols.
var asciiFold = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	norm.NFC,
)

// stripTags removes every remaining HTML element, keeping text content
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	tz := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		tt := tz.Next()
		if tt == xhtml.ErrorToken {
			return b.String()
		}
		if tt == xhtml.TextToken {
			b.Write(tz.Text())
		}
	}
}

// Contact sanitizes an agent contact field: paragraph and break markup
// becomes CRLF, remaining tags are stripped, blank runs collapse.
// Line breaks are held as bare LF until the final join because the HTML
// tokenizer folds CRLF to LF in text content.
func (n *FieldNormalizer) Contact(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := breakTagRegexp.ReplaceAllString(raw, "\n")
	s = stripTags(s)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRunRegexp.ReplaceAllString(s, " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\r\n")
}

// Description sanitizes the long free-text description: break runs collapse
// to a single newline, typographic characters fold to ASCII, non-ASCII is
// dropped, shouty ALL-CAPS words are sentence-cased, and a blank line is
// inserted between sentences.
func (n *FieldNormalizer) Description(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := breakRunRegexp.ReplaceAllString(raw, "\n")
	s = breakTagRegexp.ReplaceAllString(s, "\n")
	s = stripTags(s)
	s = html.UnescapeString(s)
	s = typographicReplacer.Replace(s)
	s, _, _ = transform.String(asciiFold, s)
	s = sentenceCaseShoutyWords(s)
	s = sentenceGapRegexp.ReplaceAllString(s, "$1\n\n$2")
	s = spaceRunRegexp.ReplaceAllString(s, " ")
	s = blankRunRegexp.ReplaceAllString(s, "\n\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n ")
}

// Features sanitizes a pipe-delimited feature list into a comma-separated
// one
func (n *FieldNormalizer) Features(raw string) string {
	if isNoValue(raw) {
		return ""
	}

	s := strings.ReplaceAll(raw, "||", ",")
	s = stripTags(s)
	s = html.UnescapeString(s)

	var parts []string
	for _, part := range strings.Split(s, ",") {
		if part = collapseWhitespace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// sentenceCaseShoutyWords lowers ALL-CAPS words longer than 2 letters,
// keeping the leading capital, unless the word is a known acronym
func sentenceCaseShoutyWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := s[start:end]
		if isShouty(word) && !acronymAllowList[word] {
			b.WriteString(word[:1])
			b.WriteString(strings.ToLower(word[1:]))
		} else {
			b.WriteString(word)
		}
		start = -1
	}
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(s))
	return b.String()
}

// isShouty reports whether a word is all uppercase letters and longer than
// two characters
func isShouty(word string) bool {
	if len(word) <= 2 {
		return false
	}
	for _, r := range word {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
