package core

import (
	"context"
	"time"
)

// Unknown marks a column role that could not be resolved to a header index.
const Unknown = -1

// Default pipeline limits.
const (
	DefaultBatchSize  = 200
	DefaultSampleRows = 100
)

// HeaderSet is the normalized header row: non-empty, case-insensitively unique.
type HeaderSet []string

// ColumnRoles holds the header indices of the name, email and phone columns.
// Each index is either a valid position in the HeaderSet or Unknown.
type ColumnRoles struct {
	NameIndex  int `json:"nameIndex"`
	EmailIndex int `json:"emailIndex"`
	PhoneIndex int `json:"phoneIndex"`
}

// UnknownRoles returns roles with every index unresolved.
func UnknownRoles() ColumnRoles {
	return ColumnRoles{NameIndex: Unknown, EmailIndex: Unknown, PhoneIndex: Unknown}
}

// isRoleIndex reports whether i is one of the resolved role columns.
func (r ColumnRoles) isRoleIndex(i int) bool {
	return i == r.NameIndex || i == r.EmailIndex || i == r.PhoneIndex
}

// ColumnSuggestion is what a Classifier returns: header labels, not indices.
// Empty strings mean the classifier had no suggestion.
type ColumnSuggestion struct {
	NameColumn  string `json:"nameColumn,omitempty"`
	EmailColumn string `json:"emailColumn,omitempty"`
	PhoneColumn string `json:"phoneColumn,omitempty"`
}

// Classifier identifies the name, email and phone columns of an upload from
// its headers and a bounded text sample of its data rows.
type Classifier interface {
	Classify(ctx context.Context, headers []string, sample string) (ColumnSuggestion, error)
}

// AttendeeRecord is one attendee extracted from a data row.
// Extra holds every other non-empty cell keyed by its header.
type AttendeeRecord struct {
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	HasPlaceholderEmail bool              `json:"hasPlaceholderEmail"`
	Phone               string            `json:"phone,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// SkippedRow is a data row that produced neither a name nor an email.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// PreviewResult is the side-effect-free outcome of the analysis phase.
type PreviewResult struct {
	TotalRows          int              `json:"totalRows"`
	WithEmailCount     int              `json:"withEmailCount"`
	NameOnlyCount      int              `json:"nameOnlyCount"`
	SkippedCount       int              `json:"skippedCount"`
	AttendeesWithEmail []AttendeeRecord `json:"attendeesWithEmail"`
	AttendeesNameOnly  []AttendeeRecord `json:"attendeesNameOnly"`
	SkippedRows        []SkippedRow     `json:"skippedRows"`
}

// Analysis is a stored preview awaiting confirmation.
// SourceDigest is the SHA-256 of the uploaded bytes.
type Analysis struct {
	ID           string        `json:"id"`
	EventID      string        `json:"eventId"`
	FileName     string        `json:"fileName"`
	SourceDigest string        `json:"sourceDigest"`
	Headers      HeaderSet     `json:"headers"`
	Roles        ColumnRoles   `json:"roles"`
	Preview      PreviewResult `json:"preview"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// ImportError is a per-attendee failure or duplicate entry.
type ImportError struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ImportOutcome is the terminal state of a commit.
type ImportOutcome struct {
	ImportID       string        `json:"importId,omitempty"`
	EventID        string        `json:"eventId,omitempty"`
	SuccessCount   int           `json:"successCount"`
	ErrorCount     int           `json:"errorCount"`
	DuplicateCount int           `json:"duplicateCount"`
	SkippedCount   int           `json:"skippedCount"`
	Errors         []ImportError `json:"errors"`
	SkippedRows    []SkippedRow  `json:"skippedRows"`
	TotalProcessed int           `json:"totalProcessed"`
	TotalInFile    int           `json:"totalInFile"`
	DurationMs     int64         `json:"durationMs"`
}

// ImportPhase indicates the current stage of a commit.
type ImportPhase string

const (
	PhaseStarting  ImportPhase = "starting"
	PhaseChecking  ImportPhase = "checking"
	PhaseFields    ImportPhase = "fields"
	PhaseInserting ImportPhase = "inserting"
	PhaseComplete  ImportPhase = "complete"
	PhaseFailed    ImportPhase = "failed"
)

// ImportProgress is published after every committed batch.
type ImportProgress struct {
	ImportID   string      `json:"importId"`
	EventID    string      `json:"eventId"`
	Phase      ImportPhase `json:"phase"`
	Current    int         `json:"current"`
	Total      int         `json:"total"`
	Success    int         `json:"success"`
	Errors     int         `json:"errors"`
	Duplicates int         `json:"duplicates"`
	Error      string      `json:"error,omitempty"`
}

// Percent returns the progress as a percentage (0-100).
func (p ImportProgress) Percent() int {
	if p.Total <= 0 {
		if p.Phase == PhaseComplete {
			return 100
		}
		return 0
	}
	return (p.Current * 100) / p.Total
}

// ProgressCallback is called after every batch.
type ProgressCallback func(ImportProgress)

// TicketType is a ticket category configured for an event.
type TicketType struct {
	ID      string  `json:"id"`
	EventID string  `json:"eventId"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
}

// FormField is a custom registration field attached to a ticket type.
type FormField struct {
	ID           string `json:"id"`
	TicketTypeID string `json:"ticketTypeId"`
	Label        string `json:"label"`
	FieldType    string `json:"fieldType"`
	Required     bool   `json:"required"`
	Position     int    `json:"position"`
}

// TicketInsert is one ticket row of a batch insert. TicketNumber is left
// empty for the backend to assign.
type TicketInsert struct {
	EventID       string
	TicketTypeID  string
	GuestName     string
	GuestEmail    string
	GuestPhone    *string
	Price         float64
	PaymentStatus string
	QRCode        string
	TicketNumber  string
	ImportKey     string
}

// InsertedTicket identifies a ticket row returned by a batch insert.
type InsertedTicket struct {
	ID        string
	ImportKey string
}

// FormResponse is one custom field value attached to a ticket.
type FormResponse struct {
	TicketID string
	FieldID  string
	Value    string
}

// Store is the persistence layer the committer writes through.
type Store interface {
	// TicketTypes returns every ticket type configured for the event.
	TicketTypes(ctx context.Context, eventID string) ([]TicketType, error)

	// ExistingGuestEmails returns the guest emails of tickets already issued
	// for the event that match any of emails, compared case-insensitively.
	ExistingGuestEmails(ctx context.Context, eventID string, emails []string) ([]string, error)

	// FormFields returns the custom fields of a ticket type.
	FormFields(ctx context.Context, ticketTypeID string) ([]FormField, error)

	// CreateFormField creates a custom field and returns it with its ID.
	CreateFormField(ctx context.Context, field FormField) (FormField, error)

	// InsertTickets inserts a whole batch in a single call.
	InsertTickets(ctx context.Context, tickets []TicketInsert) ([]InsertedTicket, error)

	// InsertFormResponses inserts custom field values in a single call.
	InsertFormResponses(ctx context.Context, responses []FormResponse) error
}
