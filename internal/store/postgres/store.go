// Package postgres implements the ticket store on PostgreSQL with pgx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/attendee-import/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.Store.
type Store struct {
	db DBTX
}

// New creates a Store over a pool, connection or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) TicketTypes(ctx context.Context, eventID string) ([]core.TicketType, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, event_id::text, name, price::float8
		FROM ticket_types
		WHERE event_id = $1::uuid
		ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query ticket types: %w", err)
	}
	defer rows.Close()

	var out []core.TicketType
	for rows.Next() {
		var tt core.TicketType
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Price); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (s *Store) ExistingGuestEmails(ctx context.Context, eventID string, emails []string) ([]string, error) {
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	rows, err := s.db.Query(ctx, `
		SELECT guest_email
		FROM tickets
		WHERE event_id = $1::uuid AND lower(guest_email) = ANY($2::text[])`, eventID, lowered)
	if err != nil {
		return nil, fmt.Errorf("query existing emails: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan existing emails: %w", err)
	}
	return out, nil
}

func (s *Store) FormFields(ctx context.Context, ticketTypeID string) ([]core.FormField, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, ticket_type_id::text, label, field_type, required, position
		FROM form_fields
		WHERE ticket_type_id = $1::uuid
		ORDER BY position, created_at`, ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("query form fields: %w", err)
	}
	defer rows.Close()

	var out []core.FormField
	for rows.Next() {
		var f core.FormField
		if err := rows.Scan(&f.ID, &f.TicketTypeID, &f.Label, &f.FieldType, &f.Required, &f.Position); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateFormField inserts a field, or returns the existing one when a field
// with the same label (ignoring case) was created concurrently.
func (s *Store) CreateFormField(ctx context.Context, field core.FormField) (core.FormField, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO form_fields (ticket_type_id, label, field_type, required, position)
		VALUES ($1::uuid, $2, $3, $4, $5)
		ON CONFLICT (ticket_type_id, lower(label)) DO UPDATE SET label = form_fields.label
		RETURNING id::text`,
		field.TicketTypeID, field.Label, field.FieldType, field.Required, field.Position,
	).Scan(&field.ID)
	if err != nil {
		return core.FormField{}, fmt.Errorf("insert form field: %w", err)
	}
	return field, nil
}

// InsertTickets writes the batch in one statement. Rows whose import key
// already exists are returned as they are instead of being inserted again.
func (s *Store) InsertTickets(ctx context.Context, tickets []core.TicketInsert) ([]core.InsertedTicket, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	cols := ticketColumnsOf(tickets)

	rows, err := s.db.Query(ctx, `
		INSERT INTO tickets (
			event_id, ticket_type_id, guest_name, guest_email, guest_phone,
			price, payment_status, qr_code, import_key
		)
		SELECT t.event_id::uuid, t.ticket_type_id::uuid, t.guest_name, t.guest_email, t.guest_phone,
		       t.price, t.payment_status, t.qr_code, t.import_key
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[],
		            $6::float8[], $7::text[], $8::text[], $9::text[])
		     AS t(event_id, ticket_type_id, guest_name, guest_email, guest_phone,
		          price, payment_status, qr_code, import_key)
		ON CONFLICT (import_key) DO UPDATE SET import_key = EXCLUDED.import_key
		RETURNING id::text, import_key`,
		cols.eventIDs, cols.ticketTypeIDs, cols.names, cols.emails, cols.phones,
		cols.prices, cols.statuses, cols.qrCodes, cols.importKeys,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tickets: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.InsertedTicket, error) {
		var t core.InsertedTicket
		err := row.Scan(&t.ID, &t.ImportKey)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("insert tickets: %w", err)
	}
	return out, nil
}

func (s *Store) InsertFormResponses(ctx context.Context, responses []core.FormResponse) error {
	if len(responses) == 0 {
		return nil
	}

	ticketIDs := make([]string, len(responses))
	fieldIDs := make([]string, len(responses))
	values := make([]string, len(responses))
	for i, r := range responses {
		ticketIDs[i] = r.TicketID
		fieldIDs[i] = r.FieldID
		values[i] = r.Value
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO form_responses (ticket_id, field_id, value)
		SELECT r.ticket_id::uuid, r.field_id::uuid, r.value
		FROM unnest($1::text[], $2::text[], $3::text[]) AS r(ticket_id, field_id, value)
		ON CONFLICT (ticket_id, field_id) DO NOTHING`,
		ticketIDs, fieldIDs, values,
	)
	if err != nil {
		return fmt.Errorf("insert form responses: %w", err)
	}
	return nil
}

// ticketColumns is a batch of tickets pivoted into one array per column.
type ticketColumns struct {
	eventIDs      []string
	ticketTypeIDs []string
	names         []string
	emails        []string
	phones        []*string
	prices        []float64
	statuses      []string
	qrCodes       []string
	importKeys    []*string
}

func ticketColumnsOf(tickets []core.TicketInsert) ticketColumns {
	n := len(tickets)
	c := ticketColumns{
		eventIDs:      make([]string, n),
		ticketTypeIDs: make([]string, n),
		names:         make([]string, n),
		emails:        make([]string, n),
		phones:        make([]*string, n),
		prices:        make([]float64, n),
		statuses:      make([]string, n),
		qrCodes:       make([]string, n),
		importKeys:    make([]*string, n),
	}
	for i, t := range tickets {
		c.eventIDs[i] = t.EventID
		c.ticketTypeIDs[i] = t.TicketTypeID
		c.names[i] = t.GuestName
		c.emails[i] = t.GuestEmail
		c.phones[i] = t.GuestPhone
		c.prices[i] = t.Price
		c.statuses[i] = t.PaymentStatus
		c.qrCodes[i] = t.QRCode
		if t.ImportKey != "" {
			key := t.ImportKey
			c.importKeys[i] = &key
		}
	}
	return c
}

var _ core.Store = (*Store)(nil)
