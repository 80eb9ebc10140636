package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSample_CapsRows(t *testing.T) {
	rows := make([][]string, 250)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("name-%d", i), "x@y.com"}
	}

	sample := BuildSample(rows, 100)

	lines := strings.Split(sample, "\n")
	assert.Len(t, lines, 100)
	assert.Equal(t, "name-0, x@y.com", lines[0])
	assert.Equal(t, "name-99, x@y.com", lines[99])
}

func TestBuildSample_DefaultCap(t *testing.T) {
	rows := make([][]string, DefaultSampleRows+5)
	for i := range rows {
		rows[i] = []string{"a"}
	}

	assert.Len(t, strings.Split(BuildSample(rows, 0), "\n"), DefaultSampleRows)
}

func TestResolveRoles(t *testing.T) {
	headers := HeaderSet{"Full Name", "Email Address", "Notes"}

	tests := []struct {
		name string
		in   ColumnSuggestion
		want ColumnRoles
	}{
		{
			name: "exact labels",
			in:   ColumnSuggestion{NameColumn: "Full Name", EmailColumn: "Email Address"},
			want: ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown},
		},
		{
			name: "case differs",
			in:   ColumnSuggestion{NameColumn: "full name", EmailColumn: "EMAIL ADDRESS"},
			want: ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown},
		},
		{
			name: "partial label is not a match",
			in:   ColumnSuggestion{EmailColumn: "Email", PhoneColumn: "Phone"},
			want: UnknownRoles(),
		},
		{
			name: "no suggestion",
			in:   ColumnSuggestion{},
			want: UnknownRoles(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRoles(headers, tt.in))
		})
	}
}

func TestClassifyColumns(t *testing.T) {
	headers := HeaderSet{"Name", "Email"}
	rows := [][]string{{"Ann", "ann@x.com"}}
	c := &staticClassifier{suggestion: ColumnSuggestion{NameColumn: "name", EmailColumn: "email"}}

	roles, err := ClassifyColumns(context.Background(), c, headers, rows, 100)

	require.NoError(t, err)
	assert.Equal(t, ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}, roles)
	assert.Equal(t, "Ann, ann@x.com", c.lastSample)
}

func TestClassifyColumns_FailureIsFatal(t *testing.T) {
	c := &staticClassifier{err: errBoom}

	roles, err := ClassifyColumns(context.Background(), c, HeaderSet{"Name"}, nil, 100)

	assert.ErrorIs(t, err, ErrClassification)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, UnknownRoles(), roles)
}
