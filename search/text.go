package search

import "strings"

// textIndex answers case-insensitive substring queries over card rules text.
type textIndex struct {
	lower []string
}

func newTextIndex(texts []string) *textIndex {
	lower := make([]string, len(texts))
	for i, t := range texts {
		lower[i] = strings.ToLower(t)
	}
	return &textIndex{lower: lower}
}

// matches returns, in row order, every row whose text contains query
// ignoring case. An empty query matches nothing.
func (ti *textIndex) matches(query string) []int {
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)

	var rows []int
	for row, text := range ti.lower {
		if strings.Contains(text, needle) {
			rows = append(rows, row)
		}
	}
	return rows
}

// nameKey normalizes a card name for case-insensitive lookup.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
