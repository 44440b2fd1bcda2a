package metastore

import (
	"sync"

	"teleframe/internal/frame"
)

// MemoryStore is an in-memory implementation of the MetadataStore
// interface. Nothing survives the process; useful for tests and ephemeral
// runs. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	saved   bool
	entries []frame.Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored catalog with a copy of entries.
func (m *MemoryStore) Save(entries []frame.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]frame.Entry(nil), entries...)
	m.saved = true
	return nil
}

// Load returns a copy of the stored catalog. Before the first Save the
// store reports LoadFresh, mirroring a file store with no document yet.
func (m *MemoryStore) Load() ([]frame.Entry, frame.LoadStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.saved {
		return nil, frame.LoadFresh, nil
	}
	return append([]frame.Entry(nil), m.entries...), frame.LoadLive, nil
}

// Compile-time check that MemoryStore implements frame.MetadataStore
var _ frame.MetadataStore = (*MemoryStore)(nil)
