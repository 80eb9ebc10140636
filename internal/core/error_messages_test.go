package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"empty file", ErrEmptyFile, "FILE005"},
		{"wrapped unsupported format", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ".pdf"), "FILE006"},
		{"file too large", fmt.Errorf("%w: 30000000 bytes", ErrFileTooLarge), "FILE001"},
		{"broken csv", errors.New("invalid csv: record on line 3: wrong number of fields"), "FILE002"},
		{"broken workbook", errors.New("invalid spreadsheet: zip: not a valid zip file"), "FILE003"},
		{"no event", ErrNoEventSelected, "EVT001"},
		{"no ticket types", ErrNoTicketTypes, "EVT002"},
		{"classifier timeout stays classification", fmt.Errorf("%w: %w", ErrClassification, errors.New("i/o timeout")), "CLS001"},
		{"busy event", ErrImportInProgress, "IMP001"},
		{"busy system", ErrTooManyImports, "IMP002"},
		{"expired preview", ErrPreviewNotFound, "IMP003"},
		{"unknown import", fmt.Errorf("%w: abc", ErrImportNotFound), "IMP004"},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint \"tickets_import_key\""), "DB001"},
		{"unique constraint", errors.New("ERROR: unique constraint violated"), "DB002"},
		{"foreign key", errors.New("violates foreign key constraint"), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("DEADLOCK detected"), "DB007"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoTicketTypes)

	expected := "The event has no ticket types (Code: EVT002). Create a ticket type for the event and retry"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}
