package app_test

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"teleframe/internal/app"
	"teleframe/internal/config"
	"teleframe/internal/frame"
	"teleframe/internal/testutil"
)

// testConfig returns a validated config rooted in a temp dir with the
// in-memory store, so tests never touch a real catalog.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Storage.Type = "memory"
	cfg.LogLevel = "error"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *app.FrameApp {
	t.Helper()
	a, err := app.NewFrameApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewFrameApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeSource(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func mediaFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	return names
}

func TestNewFrameApp(t *testing.T) {
	t.Run("wires a working app from config", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)

		if a.LoadStatus() != frame.LoadFresh {
			t.Errorf("LoadStatus() = %v, want %v", a.LoadStatus(), frame.LoadFresh)
		}
		if len(a.Entries()) != 0 {
			t.Errorf("Entries() = %d entries, want 0", len(a.Entries()))
		}
		if a.Order() != "random" {
			t.Errorf("Order() = %q, want %q", a.Order(), "random")
		}
		if _, err := os.Stat(cfg.ImageFolder); err != nil {
			t.Errorf("image folder not created: %v", err)
		}
	})

	t.Run("rejects an invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ImageCount = 0
		if _, err := app.NewFrameApp(cfg, "Test"); err == nil {
			t.Error("NewFrameApp() expected error for invalid config")
		}
	})
}

func TestFrameApp_Ingest(t *testing.T) {
	t.Run("copies accepted media into the image folder", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)

		data := testutil.PNGBytes(10, 10)
		src := writeSource(t, "photo.png", data)

		entry, err := a.Ingest(src, "alice", "first snow", 42, "family", 7, false)
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		if filepath.Dir(entry.Path) != cfg.ImageFolder {
			t.Errorf("entry.Path = %q, want a file under %q", entry.Path, cfg.ImageFolder)
		}
		if _, err := os.Stat(entry.Path); err != nil {
			t.Errorf("staged file missing: %v", err)
		}
		if _, err := os.Stat(src); err != nil {
			t.Errorf("source file should survive ingestion: %v", err)
		}

		if entry.Sender != "alice" || entry.Caption != "first snow" {
			t.Errorf("entry = %+v, want sender alice and caption", entry)
		}
		if entry.ChatID != 42 || entry.ChatName != "family" || entry.MessageID != 7 {
			t.Errorf("chat fields = (%d, %q, %d), want (42, family, 7)", entry.ChatID, entry.ChatName, entry.MessageID)
		}
		if !entry.Unseen {
			t.Error("entry.Unseen = false, want true")
		}
		if entry.Timestamp.IsZero() {
			t.Error("entry.Timestamp is zero")
		}
		if entry.ContentHash != testutil.SHA256Hex(data) {
			t.Errorf("ContentHash = %q, want hash of the staged bytes", entry.ContentHash)
		}
		if got := a.Entries(); len(got) != 1 || got[0].ID != entry.ID {
			t.Errorf("Entries() = %+v, want the ingested entry first", got)
		}
	})

	t.Run("cleans up the staged copy of a duplicate", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)
		src := writeSource(t, "twin.png", testutil.PNGBytes(12, 12))

		if _, err := a.Ingest(src, "alice", "", 1, "", 2, false); err != nil {
			t.Fatalf("first Ingest() error = %v", err)
		}
		_, err := a.Ingest(src, "bob", "", 1, "", 3, false)
		if !errors.Is(err, frame.ErrDuplicate) {
			t.Fatalf("second Ingest() error = %v, want ErrDuplicate", err)
		}

		if files := mediaFiles(t, cfg.ImageFolder); len(files) != 1 {
			t.Errorf("image folder holds %v, want only the first copy", files)
		}
		if len(a.Entries()) != 1 {
			t.Errorf("Entries() = %d entries, want 1", len(a.Entries()))
		}
	})

	t.Run("refuses videos when disabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ShowVideos = false
		a := newTestApp(t, cfg)
		src := writeSource(t, "clip.mp4", testutil.MP4Bytes())

		_, err := a.Ingest(src, "alice", "", 1, "", 2, false)
		if err == nil || !strings.Contains(err.Error(), "videos are disabled") {
			t.Fatalf("Ingest() error = %v, want a disabled-video rejection", err)
		}
		if files := mediaFiles(t, cfg.ImageFolder); len(files) != 0 {
			t.Errorf("image folder holds %v, want nothing staged", files)
		}
	})

	t.Run("rejects unacceptable files", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)
		src := writeSource(t, "notes.txt", []byte("plain text"))

		if _, err := a.Ingest(src, "alice", "", 1, "", 2, false); err == nil {
			t.Error("Ingest() expected error for a text file")
		}
	})

	t.Run("optimizes oversized images for the screen", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Media.ScreenWidth = 32
		cfg.Media.ScreenHeight = 32
		a := newTestApp(t, cfg)
		src := writeSource(t, "wide.png", testutil.PNGBytes(64, 32))

		entry, err := a.Ingest(src, "alice", "", 1, "", 2, true)
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		f, err := os.Open(entry.Path)
		if err != nil {
			t.Fatalf("opening staged file: %v", err)
		}
		defer f.Close()
		dim, _, err := image.DecodeConfig(f)
		if err != nil {
			t.Fatalf("decoding staged file: %v", err)
		}
		if dim.Width != 32 || dim.Height != 16 {
			t.Errorf("staged image = %dx%d, want 32x16", dim.Width, dim.Height)
		}
	})

	t.Run("copies media it cannot re-encode verbatim", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)
		data := testutil.GIFBytes()
		src := writeSource(t, "anim.gif", data)

		entry, err := a.Ingest(src, "alice", "", 1, "", 2, true)
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		staged, err := os.ReadFile(entry.Path)
		if err != nil {
			t.Fatalf("reading staged file: %v", err)
		}
		if string(staged) != string(data) {
			t.Error("staged gif differs from the source")
		}
	})
}

func TestFrameApp_Navigation(t *testing.T) {
	seed := func(t *testing.T, a *app.FrameApp, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			src := writeSource(t, "photo.png", testutil.PNGBytes(8+i, 8))
			if _, err := a.Ingest(src, "alice", "", 1, "", int64(i), false); err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
		}
	}

	t.Run("steps through the catalog in order", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Order = "latest"
		a := newTestApp(t, cfg)
		seed(t, a, 3)

		slide, ok := a.Current()
		if !ok || slide.Index != 0 {
			t.Fatalf("Current() = (%d, %v), want (0, true)", slide.Index, ok)
		}

		for _, want := range []int{1, 2, 0} {
			slide, ok = a.Advance()
			if !ok || slide.Index != want {
				t.Errorf("Advance() = (%d, %v), want (%d, true)", slide.Index, ok, want)
			}
		}
		slide, ok = a.Retreat()
		if !ok || slide.Index != 2 {
			t.Errorf("Retreat() = (%d, %v), want (2, true)", slide.Index, ok)
		}
	})

	t.Run("reports nothing on an empty catalog", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)

		if _, ok := a.Current(); ok {
			t.Error("Current() ok = true on empty catalog")
		}
		if _, ok := a.Advance(); ok {
			t.Error("Advance() ok = true on empty catalog")
		}
	})

	t.Run("switches the display order at runtime", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Order = "latest"
		a := newTestApp(t, cfg)
		seed(t, a, 2)

		if err := a.SetOrder("oldest"); err != nil {
			t.Fatalf("SetOrder() error = %v", err)
		}
		if a.Order() != "oldest" {
			t.Errorf("Order() = %q, want %q", a.Order(), "oldest")
		}
		slide, ok := a.Current()
		if !ok || slide.Index != 1 {
			t.Errorf("Current() = (%d, %v), want the oldest entry at index 1", slide.Index, ok)
		}

		if err := a.SetOrder("shuffled"); err == nil {
			t.Error("SetOrder() expected error for unknown order")
		}
	})
}

func TestFrameApp_SeenTracking(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	for i := 0; i < 2; i++ {
		src := writeSource(t, "p.png", testutil.PNGBytes(8+i, 8))
		if _, err := a.Ingest(src, "alice", "", 1, "", int64(i), false); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	changed, err := a.MarkAllSeen()
	if err != nil {
		t.Fatalf("MarkAllSeen() error = %v", err)
	}
	if changed != 2 {
		t.Errorf("MarkAllSeen() = %d, want 2", changed)
	}
	if stats := a.Stats(); stats.Seen != 2 || stats.Unseen != 0 {
		t.Errorf("Stats() = %+v, want everything seen", stats)
	}

	changed, err = a.MarkAllSeen()
	if err != nil {
		t.Fatalf("second MarkAllSeen() error = %v", err)
	}
	if changed != 0 {
		t.Errorf("second MarkAllSeen() = %d, want 0", changed)
	}

	if err := a.ResetUnseen(); err != nil {
		t.Fatalf("ResetUnseen() error = %v", err)
	}
	if stats := a.Stats(); stats.Unseen != 2 {
		t.Errorf("Stats() = %+v, want everything unseen again", stats)
	}
}

func TestFrameApp_Verify(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	src := writeSource(t, "photo.png", testutil.PNGBytes(16, 16))
	entry, err := a.Ingest(src, "alice", "", 1, "", 2, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if problems := a.Verify(true); len(problems) != 0 {
		t.Fatalf("Verify() = %+v, want no problems", problems)
	}

	// Flip one byte without changing the size: shallow passes, deep fails.
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		t.Fatalf("reading staged file: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(entry.Path, data, 0644); err != nil {
		t.Fatalf("rewriting staged file: %v", err)
	}

	if problems := a.Verify(false); len(problems) != 0 {
		t.Errorf("shallow Verify() = %+v, want no problems", problems)
	}
	problems := a.Verify(true)
	if len(problems) != 1 || !strings.Contains(problems[0].Problem, "hash") {
		t.Errorf("deep Verify() = %+v, want one hash mismatch", problems)
	}

	// Shrinking the file fails the shallow check too.
	if err := os.WriteFile(entry.Path, data[:4], 0644); err != nil {
		t.Fatalf("truncating staged file: %v", err)
	}
	problems = a.Verify(false)
	if len(problems) != 1 || !strings.Contains(problems[0].Problem, "size") {
		t.Errorf("shallow Verify() = %+v, want one size mismatch", problems)
	}

	if err := os.Remove(entry.Path); err != nil {
		t.Fatalf("removing staged file: %v", err)
	}
	problems = a.Verify(false)
	if len(problems) != 1 || problems[0].Problem != "file missing" {
		t.Errorf("Verify() = %+v, want one missing file", problems)
	}
}

func TestFrameApp_Remove(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	src := writeSource(t, "photo.png", testutil.PNGBytes(16, 16))
	entry, err := a.Ingest(src, "alice", "", 1, "", 2, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	removed, err := a.Remove(0)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !removed {
		t.Fatal("Remove() = false, want true")
	}
	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Errorf("media file still present after Remove, Stat error = %v", err)
	}
	if len(a.Entries()) != 0 {
		t.Errorf("Entries() = %d entries, want 0", len(a.Entries()))
	}
}

func TestFrameApp_FileStoragePersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "file"

	first := newTestApp(t, cfg)
	src := writeSource(t, "photo.png", testutil.PNGBytes(16, 16))
	if _, err := first.Ingest(src, "alice", "keeper", 1, "", 2, false); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ImageFolder, "images.json")); err != nil {
		t.Fatalf("catalog file not written: %v", err)
	}

	second := newTestApp(t, cfg)
	if second.LoadStatus() != frame.LoadLive {
		t.Errorf("LoadStatus() = %v, want %v", second.LoadStatus(), frame.LoadLive)
	}
	entries := second.Entries()
	if len(entries) != 1 || entries[0].Caption != "keeper" {
		t.Fatalf("Entries() = %+v, want the persisted entry", entries)
	}
	if entries[0].ID == "" {
		t.Error("reloaded entry has no runtime ID")
	}
}
