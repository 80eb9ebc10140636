package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// utf8BOM is prepended by Excel and other Windows tools to CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in order when sniffing delimited text.
var candidateDelimiters = []rune{',', ';', '\t'}

// DecodeFile converts an uploaded file into rows of string cells.
// The format is chosen from the file extension. Rows may be ragged.
func DecodeFile(name string, data []byte) ([][]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		rows [][]string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		rows, err = decodeDelimited(data, 0)
	case ".tsv":
		rows, err = decodeDelimited(data, '\t')
	case ".xlsx", ".xlsm":
		rows, err = decodeSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// decodeDelimited parses delimited text. A zero delimiter is sniffed from
// the first non-empty line.
func decodeDelimited(data []byte, delimiter rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	if delimiter == 0 {
		delimiter = sniffDelimiter(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return rows, nil
}

// sniffDelimiter picks the candidate that occurs most often in the first
// non-empty line, defaulting to comma.
func sniffDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// decodeSpreadsheet reads the first worksheet of an XLSX workbook.
func decodeSpreadsheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// isEmptyRow reports whether every cell is blank after trimming.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
