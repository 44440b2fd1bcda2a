package frame

import (
	"math/rand"
	"sync"
)

// Policy names a traversal order over the library.
type Policy string

const (
	// PolicyRandom traverses a uniform shuffle of the catalog.
	PolicyRandom Policy = "random"
	// PolicyLatest traverses storage order, newest entry first.
	PolicyLatest Policy = "latest"
	// PolicyOldest traverses storage order reversed, oldest entry first.
	PolicyOldest Policy = "oldest"
	// PolicySequential matches PolicyLatest. The duplication is
	// long-standing observed behavior and is kept rather than collapsed.
	PolicySequential Policy = "sequential"
)

// ParsePolicy maps a policy name to its Policy value.
func ParsePolicy(name string) (Policy, bool) {
	switch p := Policy(name); p {
	case PolicyRandom, PolicyLatest, PolicyOldest, PolicySequential:
		return p, true
	}
	return "", false
}

// Catalog is the read-only view the sequencer needs of the library.
// *Library satisfies it.
type Catalog interface {
	EntryIDs() []string
	IndexOf(id string) (int, bool)
}

// Sequencer derives a traversal order over the library under a selectable
// policy and walks it with a cursor. It holds entry IDs internally, so a
// derived order survives library index shifts; each step resolves the
// cursor entry back to its current library index.
//
// The sequence is derived lazily: nothing is computed until the first
// Refresh, Advance, or Retreat. Safe for concurrent use.
type Sequencer struct {
	mu      sync.Mutex
	catalog Catalog
	logger  Logger

	policy     Policy
	seq        []string
	cursor     int
	ready      bool
	lastN      int
	lastPolicy Policy
	changed    bool

	shuffle func(n int, swap func(i, j int))
}

// NewSequencer creates a sequencer over catalog starting with the given
// policy.
func NewSequencer(catalog Catalog, policy Policy, logger Logger) *Sequencer {
	return &Sequencer{
		catalog: catalog,
		logger:  logger,
		policy:  policy,
		shuffle: rand.Shuffle,
	}
}

// Refresh recomputes the traversal order if needed. With force false the
// order is reused unless the policy changed since the last computation,
// or the entry count changed under an order-sensitive policy (latest and
// oldest track absolute library positions; random and sequential rebuild
// only on demand). The cursor returns to the front whenever the order is
// recomputed.
func (s *Sequencer) Refresh(force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(force)
}

func (s *Sequencer) refreshLocked(force bool) {
	ids := s.catalog.EntryIDs()

	if !force && s.ready && s.policy == s.lastPolicy {
		ordered := s.policy == PolicyLatest || s.policy == PolicyOldest
		if !ordered || (len(ids) == s.lastN && !s.changed) {
			return
		}
	}

	s.rebuildLocked(ids)
}

// rebuildLocked replaces the sequence wholesale and resets the cursor.
func (s *Sequencer) rebuildLocked(ids []string) {
	seq := append([]string(nil), ids...)

	switch s.policy {
	case PolicyRandom:
		s.shuffle(len(seq), func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })
	case PolicyOldest:
		for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
			seq[i], seq[j] = seq[j], seq[i]
		}
	case PolicyLatest, PolicySequential:
		// library order is already newest first
	}

	s.seq = seq
	s.cursor = 0
	s.ready = true
	s.lastN = len(seq)
	s.lastPolicy = s.policy
	s.changed = false

	s.logger.Debug("sequence rebuilt", "policy", string(s.policy), "length", len(seq))
}

// Advance moves the cursor forward one step, wrapping silently, and
// returns the library index of the entry it lands on. Under the random
// policy a cursor at or past the second-to-last position triggers a
// reshuffle before moving, so a wrap never replays the previous
// permutation. Reports false only when the library is empty.
func (s *Sequencer) Advance() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked(false)
	if len(s.seq) == 0 {
		return 0, false
	}

	if s.policy == PolicyRandom && s.cursor >= len(s.seq)-2 {
		s.rebuildLocked(s.catalog.EntryIDs())
		if len(s.seq) == 0 {
			return 0, false
		}
	}

	s.cursor = (s.cursor + 1) % len(s.seq)
	return s.resolveLocked()
}

// Retreat moves the cursor backward one step, wrapping silently. Unlike
// Advance it never reshuffles; the asymmetry matches the original
// behavior and is kept as-is.
func (s *Sequencer) Retreat() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked(false)
	if len(s.seq) == 0 {
		return 0, false
	}

	s.cursor = (s.cursor - 1 + len(s.seq)) % len(s.seq)
	return s.resolveLocked()
}

// Current returns the library index of the cursor entry without moving.
// Before the first Refresh there is no sequence and Current reports false.
func (s *Sequencer) Current() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked()
}

// resolveLocked maps the cursor entry to its current library index. If
// the entry vanished since the order was derived, the order is rebuilt
// and the cursor restarts at the front.
func (s *Sequencer) resolveLocked() (int, bool) {
	if len(s.seq) == 0 {
		return 0, false
	}
	if idx, ok := s.catalog.IndexOf(s.seq[s.cursor]); ok {
		return idx, true
	}

	s.logger.Debug("cursor entry vanished, rebuilding sequence", "id", s.seq[s.cursor])
	s.rebuildLocked(s.catalog.EntryIDs())
	if len(s.seq) == 0 {
		return 0, false
	}
	return s.catalog.IndexOf(s.seq[s.cursor])
}

// SetPolicy switches the traversal policy. Unknown names are rejected and
// leave the sequencer untouched; on success the order is recomputed
// immediately and the cursor returns to the front.
func (s *Sequencer) SetPolicy(name string) bool {
	p, ok := ParsePolicy(name)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.policy = p
	s.rebuildLocked(s.catalog.EntryIDs())
	s.logger.Info("sequence policy changed", "policy", name)
	return true
}

// Policy returns the active traversal policy.
func (s *Sequencer) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// NotifyLibraryChanged records that the library's membership changed. The
// sequencer does not rebuild eagerly; the change is picked up by the next
// Refresh, Advance, or Retreat. Integrators running the latest or oldest
// policies are expected to follow insertions with Refresh(true), since
// those orders track absolute library positions.
func (s *Sequencer) NotifyLibraryChanged() {
	s.mu.Lock()
	s.changed = true
	s.mu.Unlock()
}
