package metastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"teleframe/internal/frame"
)

// FileStore persists the catalog as a JSON document with a sibling backup
// one generation behind:
//
//	<dir>/
//	  images.json      (live document)
//	  images.json.bak  (previous generation)
//
// Save writes the new document to a temporary file in the same directory,
// re-reads and validates it, copies the live file to the backup path, and
// only then renames the temporary file into place. A temp file that fails
// validation never touches the live document.
type FileStore struct {
	path       string
	backupPath string
	logger     frame.Logger
}

// NewFileStore creates a file store keeping the catalog document at path.
// The parent directory is created if needed.
func NewFileStore(path string, logger frame.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	return &FileStore{
		path:       path,
		backupPath: path + ".bak",
		logger:     logger,
	}, nil
}

// Save atomically replaces the persisted catalog with entries.
func (s *FileStore) Save(entries []frame.Entry) error {
	data, err := encodeCatalog(entries)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up the temp file on any failure path.
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Read the document back before it replaces anything. A temp file
	// that does not validate must never reach the live path.
	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("re-reading temp file: %w", err)
	}
	if _, err := parseCatalog(written); err != nil {
		return fmt.Errorf("validating written catalog: %w", err)
	}

	s.refreshBackup()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing catalog file: %w", err)
	}
	success = true

	s.logger.Debug("catalog saved", "path", s.path, "entries", len(entries))
	return nil
}

// refreshBackup copies the live document to the backup path. Best-effort:
// a failed backup is logged and never blocks the save.
func (s *FileStore) refreshBackup() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading catalog for backup failed", "error", err)
		}
		return
	}

	if err := os.WriteFile(s.backupPath, data, 0644); err != nil {
		s.logger.Warn("refreshing catalog backup failed", "error", err)
	}
}

// Load reads the persisted catalog, trying the live document, then the
// backup, then truncation recovery over the live document's text. Corrupt
// data never fails the load; the worst case is an empty catalog with
// status LoadReset.
func (s *FileStore) Load() ([]frame.Entry, frame.LoadStatus, error) {
	data, readErr := os.ReadFile(s.path)
	liveExists := readErr == nil
	if readErr != nil && !os.IsNotExist(readErr) {
		s.logger.Warn("reading catalog failed", "path", s.path, "error", readErr)
	}

	if liveExists {
		entries, err := parseCatalog(data)
		if err == nil {
			s.logger.Debug("catalog loaded from live file", "entries", len(entries))
			return s.pruneMissing(entries), frame.LoadLive, nil
		}
		s.logger.Warn("live catalog unusable", "path", s.path, "error", err)
	}

	if entries, ok := s.loadBackup(); ok {
		return s.pruneMissing(entries), frame.LoadBackup, nil
	}

	if liveExists {
		if entries, ok := s.recoverTruncated(data); ok {
			return s.pruneMissing(entries), frame.LoadRecovered, nil
		}
	}

	if !liveExists {
		if _, err := os.Stat(s.backupPath); os.IsNotExist(err) {
			s.logger.Info("no catalog found, starting fresh", "path", s.path)
			return nil, frame.LoadFresh, nil
		}
	}

	s.logger.Error("catalog unrecoverable, starting empty", "path", s.path)
	return nil, frame.LoadReset, nil
}

// loadBackup parses the backup document and, on success, promotes it over
// the live file so later loads read it directly.
func (s *FileStore) loadBackup() ([]frame.Entry, bool) {
	data, err := os.ReadFile(s.backupPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading catalog backup failed", "error", err)
		}
		return nil, false
	}

	entries, err := parseCatalog(data)
	if err != nil {
		s.logger.Warn("catalog backup unusable", "path", s.backupPath, "error", err)
		return nil, false
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Warn("promoting backup to live catalog failed", "error", err)
	}

	s.logger.Info("catalog restored from backup", "entries", len(entries))
	return entries, true
}

// recoverTruncated salvages records from a damaged live document. It
// scans backward line by line; at each line ending a complete record it
// cuts the document there, closes the array, and tries a parse. The first
// reconstruction containing at least one record wins. Runs only after
// both the live and backup documents failed to parse.
func (s *FileStore) recoverTruncated(data []byte) ([]frame.Entry, bool) {
	lines := strings.Split(string(data), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed != "}" && trimmed != "}," {
			continue
		}

		prefix := append([]string(nil), lines[:i+1]...)
		prefix[i] = strings.TrimSuffix(strings.TrimRight(prefix[i], " \t"), ",")
		candidate := strings.Join(prefix, "\n") + "\n]"

		entries, err := parseCatalog([]byte(candidate))
		if err != nil || len(entries) == 0 {
			continue
		}

		s.logger.Info("catalog recovered from truncated document",
			"entries", len(entries), "cut_line", i+1)
		return entries, true
	}

	return nil, false
}

// pruneMissing drops entries whose media file no longer exists on disk.
// A vanished file is routine cleanup from outside, not corruption.
func (s *FileStore) pruneMissing(entries []frame.Entry) []frame.Entry {
	kept := make([]frame.Entry, 0, len(entries))
	for i := range entries {
		if _, err := os.Stat(entries[i].Path); err != nil {
			s.logger.Warn("media file missing, dropping entry", "path", entries[i].Path)
			continue
		}
		kept = append(kept, entries[i])
	}
	return kept
}

// Compile-time check that FileStore implements frame.MetadataStore
var _ frame.MetadataStore = (*FileStore)(nil)
