package metastore

import (
	"encoding/json"
	"fmt"
	"time"

	"teleframe/internal/frame"
)

// entryRecord is the persisted form of one catalog entry. Field names
// follow the long-standing on-disk schema; entry IDs are process-scoped
// and never written.
type entryRecord struct {
	Path      string  `json:"path"`
	Sender    string  `json:"sender"`
	Caption   string  `json:"caption"`
	ChatID    int64   `json:"chat_id"`
	ChatName  string  `json:"chat_name"`
	MessageID int64   `json:"message_id"`
	Timestamp string  `json:"timestamp"`
	Starred   bool    `json:"starred"`
	Unseen    bool    `json:"unseen"`
	FileHash  *string `json:"file_hash"`
	FileSize  int64   `json:"file_size"`
}

// mandatoryFields must be present in every record for a document to count
// as structurally valid.
var mandatoryFields = []string{"path", "sender", "timestamp", "chat_id", "message_id"}

// timestampLayouts are tried in order. Documents written here use
// RFC 3339; older catalogs carry naive ISO-8601 timestamps without a
// zone, which are read as UTC.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

// encodeCatalog serializes entries to the on-disk document.
func encodeCatalog(entries []frame.Entry) ([]byte, error) {
	records := make([]entryRecord, 0, len(entries))
	for i := range entries {
		records = append(records, toRecord(entries[i]))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return data, nil
}

func toRecord(e frame.Entry) entryRecord {
	r := entryRecord{
		Path:      e.Path,
		Sender:    e.Sender,
		Caption:   e.Caption,
		ChatID:    e.ChatID,
		ChatName:  e.ChatName,
		MessageID: e.MessageID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Starred:   e.Starred,
		Unseen:    e.Unseen,
		FileSize:  e.SizeBytes,
	}
	if e.ContentHash != "" {
		hash := e.ContentHash
		r.FileHash = &hash
	}
	return r
}

// parseCatalog decodes and structurally validates a persisted document.
// The document must be a JSON array whose every element carries the
// mandatory fields and a parseable timestamp; anything less is corruption
// to the caller.
func parseCatalog(data []byte) ([]frame.Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	entries := make([]frame.Entry, 0, len(raw))
	for i, msg := range raw {
		entry, err := parseRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseRecord(msg json.RawMessage) (frame.Entry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return frame.Entry{}, fmt.Errorf("decoding record: %w", err)
	}
	for _, name := range mandatoryFields {
		if _, ok := fields[name]; !ok {
			return frame.Entry{}, fmt.Errorf("missing mandatory field %q", name)
		}
	}

	var r entryRecord
	if err := json.Unmarshal(msg, &r); err != nil {
		return frame.Entry{}, fmt.Errorf("decoding record: %w", err)
	}

	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return frame.Entry{}, err
	}

	entry := frame.Entry{
		Path:      r.Path,
		Sender:    r.Sender,
		Caption:   r.Caption,
		ChatID:    r.ChatID,
		ChatName:  r.ChatName,
		MessageID: r.MessageID,
		Timestamp: ts,
		Starred:   r.Starred,
		Unseen:    r.Unseen,
		SizeBytes: r.FileSize,
	}
	if r.FileHash != nil {
		entry.ContentHash = *r.FileHash
	}
	return entry, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
