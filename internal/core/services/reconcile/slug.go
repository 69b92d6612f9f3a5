package reconcile

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// slugify lowercases the title and collapses every non-alphanumeric run into
// a single hyphen
func slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// uniqueSlug returns a slug for the title that no other listing owns,
// suffixing "-2", "-3", ... on collision. The listing's own slug is never a
// collision so re-imports keep their slug stable.
func (s *Service) uniqueSlug(ctx context.Context, title, externalID string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "listing-" + slugify(externalID)
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := s.listings.SlugExists(ctx, candidate, externalID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
