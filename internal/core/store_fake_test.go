package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeStore is an in-memory Store for committer and service tests.
type fakeStore struct {
	mu sync.Mutex

	ticketTypes []TicketType
	existing    []string
	fields      []FormField
	tickets     []TicketInsert
	responses   []FormResponse

	insertCalls   int
	failBatches   map[int]error // 1-based InsertTickets call number
	failResponses error
	failTypes     error
	nextID        int
	byKey         map[string]string

	// applyFailedBatches writes a failing batch before reporting its error.
	applyFailedBatches bool
}

func newFakeStore(types ...TicketType) *fakeStore {
	return &fakeStore{ticketTypes: types, failBatches: map[int]error{}, byKey: map[string]string{}}
}

func (f *fakeStore) TicketTypes(_ context.Context, eventID string) ([]TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTypes != nil {
		return nil, f.failTypes
	}
	var out []TicketType
	for _, tt := range f.ticketTypes {
		if tt.EventID == eventID {
			out = append(out, tt)
		}
	}
	return out, nil
}

func (f *fakeStore) ExistingGuestEmails(_ context.Context, _ string, emails []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, e := range emails {
		want[strings.ToLower(e)] = true
	}
	var out []string
	for _, e := range f.existing {
		if want[strings.ToLower(e)] {
			out = append(out, e)
		}
	}
	for _, t := range f.tickets {
		if want[strings.ToLower(t.GuestEmail)] {
			out = append(out, t.GuestEmail)
		}
	}
	return out, nil
}

func (f *fakeStore) FormFields(_ context.Context, ticketTypeID string) ([]FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FormField
	for _, ff := range f.fields {
		if ff.TicketTypeID == ticketTypeID {
			out = append(out, ff)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateFormField(_ context.Context, field FormField) (FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	field.ID = fmt.Sprintf("field-%d", f.nextID)
	f.fields = append(f.fields, field)
	return field, nil
}

func (f *fakeStore) InsertTickets(_ context.Context, tickets []TicketInsert) ([]InsertedTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	err, fail := f.failBatches[f.insertCalls]
	if fail && !f.applyFailedBatches {
		return nil, err
	}

	// Keyed rows upsert like ON CONFLICT (import_key).
	out := make([]InsertedTicket, 0, len(tickets))
	for _, t := range tickets {
		if id, ok := f.byKey[t.ImportKey]; ok && t.ImportKey != "" {
			out = append(out, InsertedTicket{ID: id, ImportKey: t.ImportKey})
			continue
		}
		f.nextID++
		id := fmt.Sprintf("ticket-%d", f.nextID)
		if t.ImportKey != "" {
			f.byKey[t.ImportKey] = id
		}
		f.tickets = append(f.tickets, t)
		out = append(out, InsertedTicket{ID: id, ImportKey: t.ImportKey})
	}
	if fail {
		return nil, err
	}
	return out, nil
}

func (f *fakeStore) InsertFormResponses(_ context.Context, responses []FormResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResponses != nil {
		return f.failResponses
	}
	f.responses = append(f.responses, responses...)
	return nil
}

// staticClassifier returns a fixed suggestion or error.
type staticClassifier struct {
	suggestion ColumnSuggestion
	err        error
	calls      int
	lastSample string
}

func (c *staticClassifier) Classify(_ context.Context, _ []string, sample string) (ColumnSuggestion, error) {
	c.calls++
	c.lastSample = sample
	return c.suggestion, c.err
}

var errBoom = errors.New("boom")
