package core

import (
	"context"
	"fmt"
	"strings"
)

// sampleCellSeparator joins cells of one sample row.
const sampleCellSeparator = ", "

// BuildSample renders up to maxRows data rows as text for the classifier,
// one row per line. Header row must already be excluded.
func BuildSample(dataRows [][]string, maxRows int) string {
	if maxRows <= 0 {
		maxRows = DefaultSampleRows
	}
	if len(dataRows) > maxRows {
		dataRows = dataRows[:maxRows]
	}

	lines := make([]string, 0, len(dataRows))
	for _, row := range dataRows {
		lines = append(lines, strings.Join(row, sampleCellSeparator))
	}
	return strings.Join(lines, "\n")
}

// ResolveRoles maps classifier labels onto header indices. Labels that do
// not match a header exactly (ignoring case) stay Unknown.
func ResolveRoles(headers HeaderSet, s ColumnSuggestion) ColumnRoles {
	return ColumnRoles{
		NameIndex:  headers.Index(s.NameColumn),
		EmailIndex: headers.Index(s.EmailColumn),
		PhoneIndex: headers.Index(s.PhoneColumn),
	}
}

// ClassifyColumns runs the classifier over the headers and a bounded sample
// and resolves its answer. Any classifier failure is fatal to analysis.
func ClassifyColumns(ctx context.Context, c Classifier, headers HeaderSet, dataRows [][]string, maxSample int) (ColumnRoles, error) {
	suggestion, err := c.Classify(ctx, headers, BuildSample(dataRows, maxSample))
	if err != nil {
		return UnknownRoles(), fmt.Errorf("%w: %w", ErrClassification, err)
	}
	return ResolveRoles(headers, suggestion), nil
}
