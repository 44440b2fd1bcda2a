package media

import (
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"teleframe/internal/frame"
)

// Optimizer prepares images for display: orients them per their EXIF tag,
// scales them down to the screen bounds, and re-encodes them at the
// configured compression level. Formats it cannot re-encode pass through
// untouched.
type Optimizer struct {
	maxWidth  int
	maxHeight int
	quality   int
	pngLevel  png.CompressionLevel
	sharpen   bool
	logger    frame.Logger
}

// NewOptimizer creates an Optimizer targeting the given screen bounds.
// compressLevel runs 0-100; higher values trade quality for size.
func NewOptimizer(maxWidth, maxHeight, compressLevel int, sharpen bool, logger frame.Logger) *Optimizer {
	return &Optimizer{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   jpegQuality(compressLevel),
		pngLevel:  pngCompression(compressLevel),
		sharpen:   sharpen,
		logger:    logger,
	}
}

// jpegQuality maps the 0-100 compression level to a JPEG quality step.
func jpegQuality(level int) int {
	switch {
	case level <= 10:
		return 95
	case level <= 30:
		return 90
	case level <= 50:
		return 85
	case level <= 70:
		return 75
	case level <= 85:
		return 65
	default:
		return 55
	}
}

func pngCompression(level int) png.CompressionLevel {
	if level <= 30 {
		return png.DefaultCompression
	}
	return png.BestCompression
}

// CanOptimize reports whether the optimizer can re-encode the file at path.
// Animated and video formats cannot be re-encoded and must be copied as-is.
func (o *Optimizer) CanOptimize(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Optimize reads the image at src and writes a display-ready rendition to
// dst. The destination keeps the source format. Images already within the
// screen bounds are never upscaled.
func (o *Optimizer) Optimize(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > o.maxWidth || bounds.Dy() > o.maxHeight {
		img = imaging.Fit(img, o.maxWidth, o.maxHeight, imaging.Lanczos)
		o.logger.Debug("image scaled down",
			"path", src,
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy())
	}
	if o.sharpen {
		img = imaging.Sharpen(img, 0.5)
	}

	err = imaging.Save(img, dst,
		imaging.JPEGQuality(o.quality),
		imaging.PNGCompressionLevel(o.pngLevel))
	if err != nil {
		return fmt.Errorf("saving %s: %w", dst, err)
	}

	o.logger.Debug("image optimized", "dst", dst, "quality", o.quality)
	return nil
}
