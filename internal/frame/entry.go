package frame

import "time"

// Entry is one cataloged media item.
//
// ID is a process-scoped opaque identifier assigned when the entry enters
// the library (at insertion or at load). It is never persisted; anything
// crossing the library boundary should hold IDs, not positions, because
// positions shift on every insert, eviction, and delete.
type Entry struct {
	ID          string
	Path        string
	Sender      string
	Caption     string
	ChatID      int64
	ChatName    string
	MessageID   int64
	Timestamp   time.Time
	Starred     bool
	Unseen      bool
	ContentHash string
	SizeBytes   int64
}

// Stats summarizes the library's view state.
type Stats struct {
	Total       int
	Seen        int
	Unseen      int
	SeenPercent float64
}
