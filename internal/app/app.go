package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"teleframe/internal/config"
	"teleframe/internal/frame"
	"teleframe/internal/media"
	"teleframe/internal/metastore"
)

// FrameApp is the application layer between the CLI and the frame library.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths and display indices, and manages the log
// file lifecycle on Close.
type FrameApp struct {
	cfg        *config.Config
	library    *frame.Library
	sequencer  *frame.Sequencer
	checker    *media.Checker
	optimizer  *media.Optimizer
	clock      frame.Clock
	idgen      frame.IDGenerator
	logger     frame.Logger
	logFile    *os.File
	loadStatus frame.LoadStatus
}

// Slide pairs a display position with the entry shown there.
type Slide struct {
	Index int
	Entry frame.Entry
}

// NewFrameApp creates a fully wired FrameApp from the given config and
// loads the catalog. operation identifies the CLI command being run
// (e.g. "Add", "Browse"). The caller must call Close when done.
func NewFrameApp(cfg *config.Config, operation string) (*FrameApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.ImageFolder, 0755); err != nil {
		return nil, fmt.Errorf("creating image folder: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := metastore.NewStoreFromConfig(cfg.Storage, cfg.ImageFolder, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	library := frame.NewLibrary(store, cfg.ImageCount, cfg.AutoDeleteImages, logger, frame.RealClock{}, frame.UUIDGenerator{})

	policy, ok := frame.ParsePolicy(cfg.Order)
	if !ok {
		logFile.Close()
		return nil, fmt.Errorf("unknown display order %q", cfg.Order)
	}
	sequencer := frame.NewSequencer(library, policy, logger)
	library.SetChangeListener(sequencer.NotifyLibraryChanged)

	status, err := library.Load()
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	logger.Debug("operation started", "operation", operation)

	return &FrameApp{
		cfg:        cfg,
		library:    library,
		sequencer:  sequencer,
		checker:    media.NewChecker(cfg.Media.MaxFileSize, cfg.Media.AllowedFileTypes, logger),
		optimizer:  media.NewOptimizer(cfg.Media.ScreenWidth, cfg.Media.ScreenHeight, cfg.Media.CompressLevel, cfg.Media.Sharpen, logger),
		clock:      frame.RealClock{},
		idgen:      frame.UUIDGenerator{},
		logger:     logger,
		logFile:    logFile,
		loadStatus: status,
	}, nil
}

// LoadStatus reports which fallback path the catalog load took.
func (a *FrameApp) LoadStatus() frame.LoadStatus {
	return a.loadStatus
}

// Ingest validates the file at rawPath, copies a display-ready rendition
// into the image folder, and catalogs it. The staged copy is removed again
// when cataloging fails, including for duplicate content.
func (a *FrameApp) Ingest(rawPath, sender, caption string, chatID int64, chatName string, messageID int64, optimize bool) (*frame.Entry, error) {
	src, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := a.checker.Check(src); err != nil {
		return nil, fmt.Errorf("file not acceptable: %w", err)
	}
	if !a.cfg.ShowVideos && strings.ToLower(filepath.Ext(src)) == ".mp4" {
		return nil, fmt.Errorf("videos are disabled in the configuration")
	}

	dst := a.stagePath(src)
	if optimize && a.cfg.Media.OptimizeImages && a.optimizer.CanOptimize(src) {
		if err := a.optimizer.Optimize(src, dst); err != nil {
			a.logger.Warn("optimization failed, copying original", "path", src, "error", err)
			if err := copyFile(src, dst); err != nil {
				return nil, fmt.Errorf("copying %s: %w", src, err)
			}
		}
	} else {
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copying %s: %w", src, err)
		}
	}

	entry, err := a.library.AddEntry(dst, sender, caption, chatID, chatName, messageID)
	if err != nil {
		os.Remove(dst)
		return nil, err
	}
	return entry, nil
}

// stagePath picks a destination inside the image folder for an incoming
// file, prefixing the original name with an ingestion timestamp.
func (a *FrameApp) stagePath(src string) string {
	stamp := a.clock.Now().UTC().Format("20060102_150405")
	base := filepath.Base(src)

	dst := filepath.Join(a.cfg.ImageFolder, stamp+"_"+base)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(a.cfg.ImageFolder, stamp+"_"+a.idgen.New()[:8]+"_"+base)
	}
	return dst
}

// Entries returns the catalog in display order, newest first.
func (a *FrameApp) Entries() []frame.Entry {
	return a.library.Entries()
}

// Stats summarizes seen and unseen counts.
func (a *FrameApp) Stats() frame.Stats {
	return a.library.Stats()
}

// ToggleStar flips the star flag of the entry at index.
func (a *FrameApp) ToggleStar(index int) (bool, error) {
	return a.library.ToggleStar(index)
}

// Remove deletes the entry at index along with its media file.
func (a *FrameApp) Remove(index int) (bool, error) {
	return a.library.Delete(index)
}

// MarkSeen marks the entry at index seen.
func (a *FrameApp) MarkSeen(index int) (bool, error) {
	return a.library.MarkSeen(index)
}

// MarkManySeen marks the listed entries seen and returns how many changed.
func (a *FrameApp) MarkManySeen(indices []int) (int, error) {
	return a.library.MarkManySeen(indices)
}

// MarkAllSeen marks every entry seen and returns how many changed.
func (a *FrameApp) MarkAllSeen() (int, error) {
	indices := make([]int, a.library.Count())
	for i := range indices {
		indices[i] = i
	}
	return a.library.MarkManySeen(indices)
}

// ResetUnseen returns every entry to unseen.
func (a *FrameApp) ResetUnseen() error {
	return a.library.ResetAllUnseen()
}

// SetOrder switches the display order policy and rebuilds the sequence.
func (a *FrameApp) SetOrder(name string) error {
	if !a.sequencer.SetPolicy(name) {
		return fmt.Errorf("unknown display order %q", name)
	}
	return nil
}

// Order returns the active display order policy name.
func (a *FrameApp) Order() string {
	return string(a.sequencer.Policy())
}

// Current returns the slide the display is positioned on, deriving the
// initial order on first use.
func (a *FrameApp) Current() (Slide, bool) {
	a.sequencer.Refresh(false)
	return a.slide(a.sequencer.Current())
}

// Advance steps the display forward and returns the new slide.
func (a *FrameApp) Advance() (Slide, bool) {
	return a.slide(a.sequencer.Advance())
}

// Retreat steps the display backward and returns the new slide.
func (a *FrameApp) Retreat() (Slide, bool) {
	return a.slide(a.sequencer.Retreat())
}

func (a *FrameApp) slide(index int, ok bool) (Slide, bool) {
	if !ok {
		return Slide{}, false
	}
	entry, ok := a.library.Get(index)
	if !ok {
		return Slide{}, false
	}
	return Slide{Index: index, Entry: entry}, true
}

// VerifyResult describes one catalog entry that failed verification.
type VerifyResult struct {
	Index   int
	Path    string
	Problem string
}

// Verify checks every cataloged entry against its backing file. With deep
// set, file contents are re-hashed and compared against the recorded
// digest; otherwise only presence and size are checked.
func (a *FrameApp) Verify(deep bool) []VerifyResult {
	var problems []VerifyResult
	for i, e := range a.library.Entries() {
		info, err := os.Stat(e.Path)
		if err != nil {
			problems = append(problems, VerifyResult{Index: i, Path: e.Path, Problem: "file missing"})
			continue
		}
		if e.SizeBytes > 0 && info.Size() != e.SizeBytes {
			problems = append(problems, VerifyResult{
				Index:   i,
				Path:    e.Path,
				Problem: fmt.Sprintf("size is %d, recorded %d", info.Size(), e.SizeBytes),
			})
			continue
		}
		if deep && e.ContentHash != "" {
			hash, _, err := frame.HashFile(e.Path)
			if err != nil {
				problems = append(problems, VerifyResult{Index: i, Path: e.Path, Problem: "unreadable: " + err.Error()})
				continue
			}
			if hash != e.ContentHash {
				problems = append(problems, VerifyResult{Index: i, Path: e.Path, Problem: "content hash mismatch"})
			}
		}
	}
	return problems
}

// Close releases the log file.
func (a *FrameApp) Close() error {
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
