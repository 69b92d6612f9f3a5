package gazetteer

import "strings"

// Gazetteer is an immutable mapping from normalized town names to their
// canonical display form. Loaded once at startup and shared read-only by
// every normalizer call.
type Gazetteer struct {
	exact  map[string]string
	folded map[string]string
}

// New builds a Gazetteer from canonical display names
func New(names []string) *Gazetteer {
	g := &Gazetteer{
		exact:  make(map[string]string, len(names)),
		folded: make(map[string]string, len(names)),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if _, dup := g.exact[lower]; dup {
			continue
		}
		g.exact[lower] = name
		g.folded[foldSpaces(lower)] = name
	}
	return g
}

// Lookup resolves a town name to its canonical form. Exact lowercase match
// beats the whitespace-insensitive fuzzy match; a miss returns ("", false).
func (g *Gazetteer) Lookup(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := g.exact[lower]; ok {
		return canonical, true
	}
	if canonical, ok := g.folded[foldSpaces(lower)]; ok {
		return canonical, true
	}
	return "", false
}

// Len returns the number of distinct entries
func (g *Gazetteer) Len() int {
	return len(g.exact)
}

// foldSpaces removes every whitespace character so "St  Kilda" and
// "St Kilda" compare equal
func foldSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r != ' ' && r != '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
