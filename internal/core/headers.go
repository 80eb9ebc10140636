package core

import (
	"fmt"
	"strings"
)

// NormalizeHeaders turns the raw first row into a HeaderSet.
//
// Cells are trimmed and blanks become "Column N" (1-based). Repeats are
// counted case-insensitively and the Nth occurrence gets a " (N)" suffix.
// If a suffixed label collides with a header already emitted, the counter
// keeps advancing until the label is free.
func NormalizeHeaders(row []string) HeaderSet {
	headers := make(HeaderSet, len(row))
	counts := make(map[string]int, len(row))
	used := make(map[string]bool, len(row))

	for i, cell := range row {
		base := strings.TrimSpace(cell)
		if base == "" {
			base = fmt.Sprintf("Column %d", i+1)
		}

		key := strings.ToLower(base)
		counts[key]++

		label := base
		if n := counts[key]; n > 1 {
			label = fmt.Sprintf("%s (%d)", base, n)
		}
		for used[strings.ToLower(label)] {
			counts[key]++
			label = fmt.Sprintf("%s (%d)", base, counts[key])
		}

		used[strings.ToLower(label)] = true
		headers[i] = label
	}

	return headers
}

// Index returns the position of label, compared case-insensitively after
// trimming, or Unknown.
func (h HeaderSet) Index(label string) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return Unknown
	}
	for i, header := range h {
		if strings.EqualFold(header, label) {
			return i
		}
	}
	return Unknown
}
