package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeFile_CSV(t *testing.T) {
	data := []byte("Name,Email\nJane,jane@x.com\nBob\n")

	rows, err := DecodeFile("guests.csv", data)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Email"},
		{"Jane", "jane@x.com"},
		{"Bob"},
	}, rows)
}

func TestDecodeFile_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,Email\nJane,jane@x.com\n")...)

	rows, err := DecodeFile("guests.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "Name", rows[0][0])
}

func TestDecodeFile_SniffsDelimiter(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"semicolon", "export.csv", "Name;Email;Notes\nJane;jane@x.com;VIP\n"},
		{"tab in txt", "export.txt", "Name\tEmail\tNotes\nJane\tjane@x.com\tVIP\n"},
		{"tsv forced", "export.tsv", "Name\tEmail, Inc\tNotes\nJane\tjane@x.com\tVIP\n"},
		{"leading blank line", "export.csv", "\n\nName;Email;Notes\nJane;jane@x.com;VIP\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeFile(tt.file, []byte(tt.data))
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Len(t, rows[0], 3)
			assert.Equal(t, "jane@x.com", rows[1][1])
		})
	}
}

func TestDecodeFile_ReplacesInvalidUTF8(t *testing.T) {
	data := []byte("Name,Email\nJos\xe9,jose@x.com\n")

	rows, err := DecodeFile("guests.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "Jos�", rows[1][0])
}

func TestDecodeFile_LazyQuotes(t *testing.T) {
	data := []byte("Name,Notes\nJane,She said \"hi\" twice\n")

	rows, err := DecodeFile("guests.csv", data)
	require.NoError(t, err)
	assert.Equal(t, `She said "hi" twice`, rows[1][1])
}

func TestDecodeFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{"zero bytes", "a.csv", nil, ErrEmptyFile},
		{"only whitespace", "a.csv", []byte("  \n \n"), ErrEmptyFile},
		{"only BOM", "a.csv", []byte{0xEF, 0xBB, 0xBF}, ErrEmptyFile},
		{"unsupported extension", "a.pdf", []byte("%PDF"), ErrUnsupportedFormat},
		{"no extension", "guests", []byte("Name\n"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFile(tt.file, tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Full Name", "Email", "Phone"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Jane Doe", "jane@x.com", "555-123-4567"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Bob"}))

	// A second sheet must be ignored.
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "ignored"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := DecodeFile("Guests.XLSX", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Full Name", "Email", "Phone"}, rows[0])
	assert.Equal(t, "jane@x.com", rows[1][1])
	assert.Equal(t, []string{"Bob"}, rows[2])
}

func TestDecodeFile_InvalidXLSX(t *testing.T) {
	_, err := DecodeFile("broken.xlsx", []byte("not a zip archive"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid spreadsheet")
}

func TestIsEmptyRow(t *testing.T) {
	assert.True(t, isEmptyRow(nil))
	assert.True(t, isEmptyRow([]string{"", "  ", "\t"}))
	assert.False(t, isEmptyRow([]string{"", "x"}))
}
