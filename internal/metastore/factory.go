package metastore

import (
	"fmt"
	"path/filepath"

	"teleframe/internal/config"
	"teleframe/internal/frame"
)

// NewStoreFromConfig creates a MetadataStore based on the storage config
// type. File stores default their document path to images.json inside the
// image folder.
func NewStoreFromConfig(cfg config.StorageConfig, imageFolder string, logger frame.Logger) (frame.MetadataStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		path := cfg.MetadataPath
		if path == "" {
			path = filepath.Join(imageFolder, "images.json")
		}
		return NewFileStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
