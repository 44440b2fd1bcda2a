package frame

// LoadStatus reports which fallback path a MetadataStore took to produce
// the catalog it returned from Load.
type LoadStatus int

const (
	// LoadFresh means no catalog has been persisted yet.
	LoadFresh LoadStatus = iota
	// LoadLive means the live catalog file parsed cleanly.
	LoadLive
	// LoadBackup means the live file was unusable and the backup generation
	// was promoted in its place.
	LoadBackup
	// LoadRecovered means both files were unusable and truncation recovery
	// salvaged at least one record from the live file.
	LoadRecovered
	// LoadReset means nothing was recoverable and the catalog starts empty.
	LoadReset
)

func (s LoadStatus) String() string {
	switch s {
	case LoadFresh:
		return "fresh"
	case LoadLive:
		return "live"
	case LoadBackup:
		return "backup"
	case LoadRecovered:
		return "recovered"
	case LoadReset:
		return "reset"
	default:
		return "unknown"
	}
}

// MetadataStore persists the library's entry list as a single document.
// The Library is the sole writer; every mutation rewrites the whole
// document rather than patching it.
type MetadataStore interface {
	// Save durably replaces the persisted catalog with entries. A Save
	// that returns an error must leave the previously persisted catalog
	// readable; the caller treats the triggering mutation as not committed.
	Save(entries []Entry) error

	// Load reads the persisted catalog, falling back through backup and
	// recovery paths as needed. Corrupt data never fails the caller: the
	// worst case is an empty catalog with status LoadReset. The returned
	// error is reserved for environmental failures such as an unreadable
	// directory. Records whose media file no longer exists are pruned.
	Load() ([]Entry, LoadStatus, error)
}
