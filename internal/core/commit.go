package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/attendee-import/internal/logging"
)

// Commit constants.
const (
	DuplicateReason       = "Already exists in event."
	UnknownErrorReason    = "Unknown error"
	PaymentStatusComplete = "completed"
	DefaultFieldType      = "text"
)

// CommitRequest is the finalized input of a commit.
type CommitRequest struct {
	ImportID     string
	EventID      string
	PreviewID    string
	SourceDigest string
	Attendees    []AttendeeRecord
	SkippedRows  []SkippedRow
	TotalInFile  int
}

// Committer writes finalized attendees to a Store in sequential batches.
type Committer struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// NewCommitter creates a committer. A non-positive batchSize falls back to
// DefaultBatchSize.
func NewCommitter(store Store, batchSize int) *Committer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Committer{store: store, batchSize: batchSize, now: time.Now}
}

// pendingAttendee is a new attendee with its ticket import key.
type pendingAttendee struct {
	AttendeeRecord
	key string
}

// Commit runs the batch commit. A non-nil error means the whole commit
// failed before any batch was attempted; per-batch failures are recorded in
// the outcome and never returned.
func (c *Committer) Commit(ctx context.Context, req CommitRequest, onProgress ProgressCallback) (ImportOutcome, error) {
	start := c.now()
	log := logging.WithFields(ctx, "import_id", req.ImportID, "event_id", req.EventID, "preview_id", req.PreviewID)

	outcome := ImportOutcome{
		ImportID:       req.ImportID,
		EventID:        req.EventID,
		Errors:         []ImportError{},
		SkippedRows:    orEmpty(req.SkippedRows),
		SkippedCount:   len(req.SkippedRows),
		TotalProcessed: len(req.Attendees),
		TotalInFile:    req.TotalInFile,
	}

	progress := ImportProgress{
		ImportID: req.ImportID,
		EventID:  req.EventID,
		Phase:    PhaseChecking,
	}
	report := func() {
		progress.Success = outcome.SuccessCount
		progress.Errors = outcome.ErrorCount
		progress.Duplicates = outcome.DuplicateCount
		if onProgress != nil {
			onProgress(progress)
		}
	}
	report()

	ticketType, err := c.resolveTicketType(ctx, req.EventID)
	if err != nil {
		return outcome, err
	}

	pending, err := c.partitionDuplicates(ctx, req, &outcome)
	if err != nil {
		return outcome, err
	}
	progress.Total = len(pending)

	if len(pending) == 0 {
		progress.Phase = PhaseComplete
		report()
		outcome.DurationMs = c.now().Sub(start).Milliseconds()
		return outcome, nil
	}

	progress.Phase = PhaseFields
	report()

	fieldIDs, err := c.ensureFormFields(ctx, ticketType, req.Attendees)
	if err != nil {
		return outcome, err
	}

	progress.Phase = PhaseInserting
	for lo := 0; lo < len(pending); lo += c.batchSize {
		hi := min(lo+c.batchSize, len(pending))
		batch := pending[lo:hi]
		batchNum := lo/c.batchSize + 1

		inserted, err := c.store.InsertTickets(ctx, c.buildTickets(req, ticketType, batch))
		if err != nil {
			reason := err.Error()
			if reason == "" {
				reason = UnknownErrorReason
			}
			log.Warn("ticket batch failed",
				"batch", batchNum,
				"size", len(batch),
				"error", err,
			)
			outcome.ErrorCount += len(batch)
			for _, a := range batch {
				outcome.Errors = append(outcome.Errors, ImportError{Email: a.Email, Reason: reason})
			}
		} else {
			outcome.SuccessCount += len(inserted)
			c.insertResponses(ctx, log, batch, inserted, fieldIDs, batchNum)
		}

		progress.Current = hi
		report()
	}

	progress.Phase = PhaseComplete
	report()

	outcome.DurationMs = c.now().Sub(start).Milliseconds()
	return outcome, nil
}

// resolveTicketType prefers a free ticket type, then any ticket type.
func (c *Committer) resolveTicketType(ctx context.Context, eventID string) (TicketType, error) {
	types, err := c.store.TicketTypes(ctx, eventID)
	if err != nil {
		return TicketType{}, fmt.Errorf("load ticket types: %w", err)
	}
	if len(types) == 0 {
		return TicketType{}, ErrNoTicketTypes
	}
	for _, tt := range types {
		if tt.Price == 0 {
			return tt, nil
		}
	}
	return types[0], nil
}

// partitionDuplicates drops attendees whose email already has a ticket for
// the event, recording each as a duplicate.
func (c *Committer) partitionDuplicates(ctx context.Context, req CommitRequest, outcome *ImportOutcome) ([]pendingAttendee, error) {
	emails := make([]string, 0, len(req.Attendees))
	seen := make(map[string]bool, len(req.Attendees))
	for _, a := range req.Attendees {
		key := strings.ToLower(a.Email)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		emails = append(emails, key)
	}

	existing := map[string]bool{}
	if len(emails) > 0 {
		found, err := c.store.ExistingGuestEmails(ctx, req.EventID, emails)
		if err != nil {
			return nil, fmt.Errorf("check existing tickets: %w", err)
		}
		for _, e := range found {
			existing[strings.ToLower(e)] = true
		}
	}

	keys := importKeys(req)
	pending := make([]pendingAttendee, 0, len(req.Attendees))
	for i, a := range req.Attendees {
		if existing[strings.ToLower(a.Email)] {
			outcome.DuplicateCount++
			outcome.Errors = append(outcome.Errors, ImportError{Email: a.Email, Reason: DuplicateReason})
			continue
		}
		pending = append(pending, pendingAttendee{AttendeeRecord: a, key: keys[i]})
	}
	return pending, nil
}

// ensureFormFields returns a lowercased label to field ID map covering every
// extra-field key, creating the fields that do not exist yet.
func (c *Committer) ensureFormFields(ctx context.Context, tt TicketType, attendees []AttendeeRecord) (map[string]string, error) {
	labels := map[string]string{}
	for _, a := range attendees {
		for k := range a.Extra {
			if _, ok := labels[strings.ToLower(k)]; !ok {
				labels[strings.ToLower(k)] = k
			}
		}
	}
	if len(labels) == 0 {
		return map[string]string{}, nil
	}

	fields, err := c.store.FormFields(ctx, tt.ID)
	if err != nil {
		return nil, fmt.Errorf("load form fields: %w", err)
	}

	ids := make(map[string]string, len(fields)+len(labels))
	for _, f := range fields {
		ids[strings.ToLower(f.Label)] = f.ID
	}

	missing := make([]string, 0, len(labels))
	for key, label := range labels {
		if _, ok := ids[key]; !ok {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)

	for i, label := range missing {
		created, err := c.store.CreateFormField(ctx, FormField{
			TicketTypeID: tt.ID,
			Label:        label,
			FieldType:    DefaultFieldType,
			Position:     len(fields) + i,
		})
		if err != nil {
			return nil, fmt.Errorf("create form field %q: %w", label, err)
		}
		ids[strings.ToLower(label)] = created.ID
	}

	return ids, nil
}

func (c *Committer) buildTickets(req CommitRequest, tt TicketType, batch []pendingAttendee) []TicketInsert {
	tickets := make([]TicketInsert, 0, len(batch))
	for _, a := range batch {
		var phone *string
		if a.Phone != "" {
			p := a.Phone
			phone = &p
		}
		tickets = append(tickets, TicketInsert{
			EventID:       req.EventID,
			TicketTypeID:  tt.ID,
			GuestName:     a.Name,
			GuestEmail:    a.Email,
			GuestPhone:    phone,
			Price:         tt.Price,
			PaymentStatus: PaymentStatusComplete,
			QRCode:        c.qrPayload(req.EventID, a.Email),
			ImportKey:     a.key,
		})
	}
	return tickets
}

// insertResponses stores extra-field values for a committed batch. Failures
// are logged and do not affect the outcome.
func (c *Committer) insertResponses(ctx context.Context, log *slog.Logger, batch []pendingAttendee, inserted []InsertedTicket, fieldIDs map[string]string, batchNum int) {
	ticketIDs := make(map[string]string, len(inserted))
	for _, t := range inserted {
		ticketIDs[t.ImportKey] = t.ID
	}

	var responses []FormResponse
	for _, a := range batch {
		ticketID, ok := ticketIDs[a.key]
		if !ok {
			continue
		}
		for label, value := range a.Extra {
			fieldID, ok := fieldIDs[strings.ToLower(label)]
			if !ok || value == "" {
				continue
			}
			responses = append(responses, FormResponse{TicketID: ticketID, FieldID: fieldID, Value: value})
		}
	}
	if len(responses) == 0 {
		return
	}

	if err := c.store.InsertFormResponses(ctx, responses); err != nil {
		log.Warn("form responses not saved",
			"batch", batchNum,
			"responses", len(responses),
			"error", err,
		)
	}
}

// qrPayload is a unique ticket QR payload: attendee identity plus a random
// nonce and a timestamp.
func (c *Committer) qrPayload(eventID, email string) string {
	b, _ := json.Marshal(struct {
		Event string `json:"event"`
		Email string `json:"email"`
		Nonce string `json:"nonce"`
		TS    int64  `json:"ts"`
	}{eventID, email, uuid.NewString(), c.now().UnixMilli()})
	return string(b)
}

// ImportKey identifies one attendee of an upload so that committing the
// same file again maps onto the tickets already created instead of adding
// new ones. Emailed attendees are keyed by event and email. Name-only
// attendees carry a throwaway placeholder email, so they are keyed by
// event, source file and name. ordinal separates repeats of the same
// identity within one file.
func ImportKey(eventID, sourceDigest string, a AttendeeRecord, ordinal int) string {
	h := sha256.New()
	for _, part := range []string{eventID, importIdentity(sourceDigest, a), strconv.Itoa(ordinal)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func importIdentity(sourceDigest string, a AttendeeRecord) string {
	if a.HasPlaceholderEmail {
		return "name\x00" + sourceDigest + "\x00" + strings.ToLower(strings.TrimSpace(a.Name))
	}
	return "email\x00" + strings.ToLower(strings.TrimSpace(a.Email))
}

// importKeys returns the import key of every attendee in req, in order.
func importKeys(req CommitRequest) []string {
	seen := make(map[string]int, len(req.Attendees))
	keys := make([]string, len(req.Attendees))
	for i, a := range req.Attendees {
		id := importIdentity(req.SourceDigest, a)
		keys[i] = ImportKey(req.EventID, req.SourceDigest, a, seen[id])
		seen[id]++
	}
	return keys
}

// FailedOutcome reports a commit that failed as a whole.
func FailedOutcome(req CommitRequest, err error) ImportOutcome {
	return ImportOutcome{
		ImportID:       req.ImportID,
		EventID:        req.EventID,
		ErrorCount:     1,
		Errors:         []ImportError{{Reason: err.Error()}},
		SkippedRows:    orEmpty(req.SkippedRows),
		SkippedCount:   len(req.SkippedRows),
		TotalProcessed: len(req.Attendees),
		TotalInFile:    req.TotalInFile,
	}
}

func orEmpty(rows []SkippedRow) []SkippedRow {
	if rows == nil {
		return []SkippedRow{}
	}
	return rows
}
