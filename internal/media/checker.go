// Package media validates incoming files and prepares images for display.
package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"

	"teleframe/internal/frame"
)

// mimeClasses maps known extensions to the MIME class the sniffed content
// must belong to. Extensions outside this map skip the consistency check.
var mimeClasses = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".mp4":  "video",
}

// Checker validates files before they enter the library.
type Checker struct {
	maxSize int64
	allowed map[string]bool
	logger  frame.Logger
}

// NewChecker creates a Checker enforcing the given size limit and extension
// allow-list. Extensions are matched case-insensitively.
func NewChecker(maxSize int64, allowedTypes []string, logger frame.Logger) *Checker {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, ext := range allowedTypes {
		allowed[strings.ToLower(ext)] = true
	}
	return &Checker{maxSize: maxSize, allowed: allowed, logger: logger}
}

// Check returns nil when the file at path may enter the library. The
// returned error names the first failed requirement.
func (c *Checker) Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if info.Size() > c.maxSize {
		return fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), c.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !c.allowed[ext] {
		return fmt.Errorf("file type %q is not allowed", ext)
	}

	if class, ok := mimeClasses[ext]; ok {
		mime, err := mimetype.DetectFile(path)
		if err != nil {
			return fmt.Errorf("detecting type of %s: %w", path, err)
		}
		if !strings.HasPrefix(mime.String(), class+"/") {
			return fmt.Errorf("%s content is %s, expected %s", path, mime.String(), class)
		}
		if class == "image" {
			if err := verifyImage(path); err != nil {
				return fmt.Errorf("%s is not a readable image: %w", path, err)
			}
		}
	}

	return nil
}

// IsFileAcceptable reports whether the file at path passes every check.
// Rejections are logged rather than returned.
func (c *Checker) IsFileAcceptable(path string) bool {
	if err := c.Check(path); err != nil {
		c.logger.Debug("file rejected", "path", path, "reason", err.Error())
		return false
	}
	return true
}

// verifyImage confirms the file carries a decodable image header.
func verifyImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err
}
