package testutil

import (
	"fmt"
	"sync"

	"teleframe/internal/frame"
	"teleframe/internal/metastore"
)

// RecordingStore is an in-memory MetadataStore that counts saves and can be
// told to fail. The zero value is ready to use.
type RecordingStore struct {
	mu      sync.Mutex
	entries []frame.Entry
	saved   bool

	SaveCalls int
	FailNext  bool  // next Save fails, then the flag clears
	FailAll   bool  // every Save fails
	LoadErr   error // returned by Load when set
}

// NewRecordingStore creates an empty RecordingStore.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{}
}

func (s *RecordingStore) Save(entries []frame.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SaveCalls++
	if s.FailNext || s.FailAll {
		s.FailNext = false
		return fmt.Errorf("save failed")
	}
	s.entries = append([]frame.Entry(nil), entries...)
	s.saved = true
	return nil
}

func (s *RecordingStore) Load() ([]frame.Entry, frame.LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, frame.LoadReset, s.LoadErr
	}
	if !s.saved {
		return nil, frame.LoadFresh, nil
	}
	return append([]frame.Entry(nil), s.entries...), frame.LoadLive, nil
}

// Seed primes the store with entries as if a prior process had saved them.
func (s *RecordingStore) Seed(entries []frame.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]frame.Entry(nil), entries...)
	s.saved = true
}

// Saved returns the entries captured by the last successful Save.
func (s *RecordingStore) Saved() []frame.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame.Entry(nil), s.entries...)
}

// Compile-time check
var _ frame.MetadataStore = (*RecordingStore)(nil)

// NewTestStore creates a new in-memory metadata store for testing.
func NewTestStore() frame.MetadataStore {
	return metastore.NewMemoryStore()
}
