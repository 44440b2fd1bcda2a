package frame

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrDuplicate reports that AddEntry was handed content whose hash is
// already cataloged. Callers test for it with errors.Is; a duplicate is a
// normal negative outcome, not a failure.
var ErrDuplicate = errors.New("duplicate content")

// Library is the capacity-bounded, insertion-ordered media catalog.
// Index 0 always holds the most-recently-added entry; new entries are
// prepended, never appended.
//
// The library owns its media files: evicted and deleted entries have their
// backing files removed from disk (eviction honors the auto-delete setting,
// explicit deletes do not). It is also the sole writer to its MetadataStore,
// persisting the full entry list after every mutation. A mutation whose
// persist fails leaves the in-memory catalog exactly as it was before the
// call.
//
// Safe for concurrent use: mutations serialize on an internal write lock,
// pure reads share a read lock.
type Library struct {
	mu      sync.RWMutex
	entries []Entry

	store      MetadataStore
	capacity   int
	autoDelete bool
	logger     Logger
	clock      Clock
	idgen      IDGenerator

	onChange func()
}

// NewLibrary creates a library persisting through store. capacity bounds
// the entry count after every mutation; autoDelete controls whether
// eviction removes backing files from disk.
func NewLibrary(store MetadataStore, capacity int, autoDelete bool, logger Logger, clock Clock, idgen IDGenerator) *Library {
	return &Library{
		store:      store,
		capacity:   capacity,
		autoDelete: autoDelete,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
	}
}

// Load populates the library from the metadata store, replacing any
// in-memory state, and reports which fallback path the store took.
// Loaded entries receive fresh IDs.
func (l *Library) Load() (LoadStatus, error) {
	entries, status, err := l.store.Load()
	if err != nil {
		return status, fmt.Errorf("loading catalog: %w", err)
	}

	l.mu.Lock()
	for i := range entries {
		entries[i].ID = l.idgen.New()
	}
	l.entries = entries
	l.mu.Unlock()

	l.logger.Info("catalog loaded", "count", len(entries), "status", status.String())
	l.notifyChanged()
	return status, nil
}

// AddEntry catalogs the media file at path. The file's SHA-256 is the
// deduplication key: content already present yields ErrDuplicate and no
// state change. New entries start unseen and unstarred, timestamped now,
// and enter at index 0; eviction then trims the catalog back to capacity
// before the result is persisted. On persist failure the insertion is
// rolled back and the error returned. Returns the stored entry.
func (l *Library) AddEntry(path, sender, caption string, chatID int64, chatName string, messageID int64) (*Entry, error) {
	hash, size, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	l.mu.Lock()

	for i := range l.entries {
		if l.entries[i].ContentHash == hash {
			l.mu.Unlock()
			l.logger.Info("duplicate content rejected", "path", path, "hash", hash)
			return nil, ErrDuplicate
		}
	}

	entry := Entry{
		ID:          l.idgen.New(),
		Path:        path,
		Sender:      sender,
		Caption:     caption,
		ChatID:      chatID,
		ChatName:    chatName,
		MessageID:   messageID,
		Timestamp:   l.clock.Now(),
		Unseen:      true,
		ContentHash: hash,
		SizeBytes:   size,
	}

	candidate := make([]Entry, 0, len(l.entries)+1)
	candidate = append(candidate, entry)
	candidate = append(candidate, l.entries...)

	kept, dropped := evict(candidate, l.capacity)

	if err := l.store.Save(kept); err != nil {
		l.mu.Unlock()
		l.logger.Error("persist failed, insertion rolled back", "path", path, "error", err)
		return nil, fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = kept
	l.mu.Unlock()

	l.removeEvicted(dropped)
	l.logger.Info("entry added", "path", path, "sender", sender, "evicted", len(dropped))
	l.notifyChanged()
	return &entry, nil
}

// evict trims entries down to capacity. Starred entries are exempt unless
// they alone exceed capacity, in which case only the capacity newest
// starred survive. Remaining slots go to the newest unstarred entries.
// Survivors keep their relative insertion order, so index 0 stays the
// most-recently-added survivor.
func evict(entries []Entry, capacity int) (kept, dropped []Entry) {
	if len(entries) <= capacity {
		return entries, nil
	}

	keep := make(map[string]bool, capacity)
	starred := 0
	for i := range entries {
		if entries[i].Starred {
			starred++
			if starred <= capacity {
				keep[entries[i].ID] = true
			}
		}
	}

	slots := capacity - len(keep)
	for i := 0; i < len(entries) && slots > 0; i++ {
		if !entries[i].Starred {
			keep[entries[i].ID] = true
			slots--
		}
	}

	kept = make([]Entry, 0, capacity)
	for i := range entries {
		if keep[entries[i].ID] {
			kept = append(kept, entries[i])
		} else {
			dropped = append(dropped, entries[i])
		}
	}
	return kept, dropped
}

// ToggleStar flips the star flag on the entry at index and persists.
// Out-of-range indices report false without mutation.
func (l *Library) ToggleStar(index int) (bool, error) {
	l.mu.Lock()
	if index < 0 || index >= len(l.entries) {
		l.mu.Unlock()
		return false, nil
	}

	candidate := append([]Entry(nil), l.entries...)
	candidate[index].Starred = !candidate[index].Starred

	if err := l.store.Save(candidate); err != nil {
		l.mu.Unlock()
		return false, fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = candidate
	starred := candidate[index].Starred
	l.mu.Unlock()

	l.logger.Info("star toggled", "index", index, "starred", starred)
	return true, nil
}

// Delete removes the entry at index unconditionally: an explicit delete
// wins over the starred exemption and always removes the backing file.
// Subsequent indices shift down by one. Out-of-range indices report false.
func (l *Library) Delete(index int) (bool, error) {
	l.mu.Lock()
	if index < 0 || index >= len(l.entries) {
		l.mu.Unlock()
		return false, nil
	}

	removed := l.entries[index]
	candidate := make([]Entry, 0, len(l.entries)-1)
	candidate = append(candidate, l.entries[:index]...)
	candidate = append(candidate, l.entries[index+1:]...)

	if err := l.store.Save(candidate); err != nil {
		l.mu.Unlock()
		return false, fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = candidate
	l.mu.Unlock()

	l.removeFile(removed.Path)
	l.logger.Info("entry deleted", "index", index, "path", removed.Path)
	l.notifyChanged()
	return true, nil
}

// MarkSeen transitions the entry at index from unseen to seen and
// persists. An already-seen entry reports false and triggers no write.
// Out-of-range indices report false.
func (l *Library) MarkSeen(index int) (bool, error) {
	l.mu.Lock()
	if index < 0 || index >= len(l.entries) || !l.entries[index].Unseen {
		l.mu.Unlock()
		return false, nil
	}

	candidate := append([]Entry(nil), l.entries...)
	candidate[index].Unseen = false

	if err := l.store.Save(candidate); err != nil {
		l.mu.Unlock()
		return false, fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = candidate
	l.mu.Unlock()

	l.logger.Debug("entry marked seen", "index", index)
	return true, nil
}

// MarkManySeen marks every listed unseen entry seen with at most one
// persistence call, and returns how many actually changed. Out-of-range
// indices in the batch are skipped; a batch that changes nothing performs
// no write.
func (l *Library) MarkManySeen(indices []int) (int, error) {
	l.mu.Lock()

	candidate := append([]Entry(nil), l.entries...)
	changed := 0
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidate) {
			continue
		}
		if candidate[idx].Unseen {
			candidate[idx].Unseen = false
			changed++
		}
	}

	if changed == 0 {
		l.mu.Unlock()
		return 0, nil
	}

	if err := l.store.Save(candidate); err != nil {
		l.mu.Unlock()
		return 0, fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = candidate
	l.mu.Unlock()

	l.logger.Debug("entries marked seen", "count", changed)
	return changed, nil
}

// ResetAllUnseen is the administrative reset: every entry returns to
// unseen in a single persistence call.
func (l *Library) ResetAllUnseen() error {
	l.mu.Lock()

	candidate := append([]Entry(nil), l.entries...)
	for i := range candidate {
		candidate[i].Unseen = true
	}

	if err := l.store.Save(candidate); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("persisting catalog: %w", err)
	}

	l.entries = candidate
	count := len(candidate)
	l.mu.Unlock()

	l.logger.Info("all entries reset to unseen", "count", count)
	return nil
}

// Stats summarizes seen/unseen counts. Pure read.
func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{Total: len(l.entries)}
	for i := range l.entries {
		if l.entries[i].Unseen {
			s.Unseen++
		} else {
			s.Seen++
		}
	}
	if s.Total > 0 {
		s.SeenPercent = float64(s.Seen) / float64(s.Total) * 100
	}
	return s
}

// Count returns the number of cataloged entries.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the catalog in current order, newest first.
func (l *Library) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Get returns a copy of the entry at index.
func (l *Library) Get(index int) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[index], true
}

// Path returns the media file path of the entry at index.
func (l *Library) Path(index int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return "", false
	}
	return l.entries[index].Path, true
}

// EntryIDs returns the entry IDs in current library order, newest first.
func (l *Library) EntryIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, len(l.entries))
	for i := range l.entries {
		ids[i] = l.entries[i].ID
	}
	return ids
}

// IndexOf returns the current position of the entry with the given ID.
func (l *Library) IndexOf(id string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// SetChangeListener registers fn to run after every successful membership
// change (insert, eviction, delete, load). fn is invoked outside the
// library lock and may call back into any Library method.
func (l *Library) SetChangeListener(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *Library) notifyChanged() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// removeEvicted deletes the backing files of evicted entries when
// auto-delete is enabled.
func (l *Library) removeEvicted(dropped []Entry) {
	if !l.autoDelete || len(dropped) == 0 {
		return
	}
	for i := range dropped {
		l.removeFile(dropped[i].Path)
	}
	l.logger.Info("evicted media files cleaned up", "count", len(dropped))
}

// removeFile deletes one media file from disk. Failures are logged and
// absorbed; the catalog entry is gone either way.
func (l *Library) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("deleting media file failed", "path", path, "error", err)
	}
}

// HashFile computes the SHA-256 of the file at path, returning the hex
// digest and the byte count hashed. This is the deduplication key for
// AddEntry and the reference digest for integrity checks.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
