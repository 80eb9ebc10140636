package core

import (
	"context"
	"sync"
	"time"
)

// DefaultPreviewTTL is how long an unconfirmed preview is kept.
const DefaultPreviewTTL = 30 * time.Minute

// PreviewStore keeps analyses between the analyze and commit requests.
// Load returns ErrPreviewNotFound for missing or expired previews.
type PreviewStore interface {
	Save(ctx context.Context, a *Analysis) error
	Load(ctx context.Context, id string) (*Analysis, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	analysis  *Analysis
	expiresAt time.Time
}

// MemoryPreviewStore is an in-process PreviewStore.
type MemoryPreviewStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryPreviewStore creates a store whose entries expire after ttl.
func NewMemoryPreviewStore(ttl time.Duration) *MemoryPreviewStore {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &MemoryPreviewStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryPreviewStore) Save(_ context.Context, a *Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}

	m.entries[a.ID] = memoryEntry{analysis: a, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryPreviewStore) Load(_ context.Context, id string) (*Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, id)
		return nil, ErrPreviewNotFound
	}
	return e.analysis, nil
}

func (m *MemoryPreviewStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}
