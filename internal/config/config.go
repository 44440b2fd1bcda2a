package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for teleframe.
type Config struct {
	ImageFolder      string `toml:"image_folder"`
	ImageCount       int    `toml:"image_count"`
	AutoDeleteImages bool   `toml:"auto_delete_images"`
	ShowVideos       bool   `toml:"show_videos"`
	Order            string `toml:"order"` // "random", "latest", "oldest", or "sequential"
	Interval         int    `toml:"interval"`
	FadeTime         int    `toml:"fade_time"`
	LogDir           string `toml:"log_dir"`
	LogLevel         string `toml:"log_level"`

	Storage StorageConfig `toml:"storage"`
	Media   MediaConfig   `toml:"media"`
}

// StorageConfig represents configuration for the metadata store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "file" or "memory"

	// File-specific fields (only used when Type == "file")
	MetadataPath string `toml:"metadata_path,omitempty"` // defaults to <image_folder>/images.json
}

// MediaConfig holds acceptance limits and display-preparation settings for
// incoming files.
type MediaConfig struct {
	MaxFileSize      int64    `toml:"max_file_size"`
	AllowedFileTypes []string `toml:"allowed_file_types"`
	OptimizeImages   bool     `toml:"optimize_images"`
	ScreenWidth      int      `toml:"screen_width"`
	ScreenHeight     int      `toml:"screen_height"`
	CompressLevel    int      `toml:"compress_level"` // 0-100, higher compresses harder
	Sharpen          bool     `toml:"sharpen"`
}

// orders lists the accepted values for Config.Order.
var orders = []string{"random", "latest", "oldest", "sequential"}

// logLevels lists the accepted values for Config.LogLevel.
var logLevels = []string{"debug", "info", "warn", "error"}

// NewConfig creates a new Config with default values rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ImageFolder:      filepath.Join(baseDir, "images"),
		ImageCount:       30,
		AutoDeleteImages: true,
		ShowVideos:       true,
		Order:            "random",
		Interval:         10000,
		FadeTime:         1500,
		LogDir:           filepath.Join(baseDir, "log"),
		LogLevel:         "info",
		Storage:          StorageConfig{Type: "file"},
		Media: MediaConfig{
			MaxFileSize:      50 * 1024 * 1024,
			AllowedFileTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".mp4"},
			OptimizeImages:   true,
			ScreenWidth:      1920,
			ScreenHeight:     1080,
			CompressLevel:    70,
		},
	}
}

// Validate checks the configuration for out-of-range or unknown values and
// normalizes the allowed file type list to lowercase dotted extensions.
func (c *Config) Validate() error {
	if c.ImageFolder == "" {
		return fmt.Errorf("image_folder must not be empty")
	}
	if c.ImageCount < 1 || c.ImageCount > 1000 {
		return fmt.Errorf("image_count must be between 1 and 1000, got %d", c.ImageCount)
	}
	if c.Interval < 1000 || c.Interval > 300000 {
		return fmt.Errorf("interval must be between 1000 and 300000 ms, got %d", c.Interval)
	}
	if c.FadeTime < 0 || c.FadeTime > 10000 {
		return fmt.Errorf("fade_time must be between 0 and 10000 ms, got %d", c.FadeTime)
	}

	c.Order = strings.ToLower(c.Order)
	if !contains(orders, c.Order) {
		return fmt.Errorf("order must be one of %s, got %q", strings.Join(orders, ", "), c.Order)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if !contains(logLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, ", "), c.LogLevel)
	}

	switch c.Storage.Type {
	case "file", "memory":
	default:
		return fmt.Errorf("storage type must be \"file\" or \"memory\", got %q", c.Storage.Type)
	}

	if c.Media.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.Media.MaxFileSize)
	}
	if len(c.Media.AllowedFileTypes) == 0 {
		return fmt.Errorf("allowed_file_types must not be empty")
	}
	for i, ext := range c.Media.AllowedFileTypes {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			return fmt.Errorf("allowed_file_types[%d] is empty", i)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Media.AllowedFileTypes[i] = ext
	}
	if c.Media.CompressLevel < 0 || c.Media.CompressLevel > 100 {
		return fmt.Errorf("compress_level must be between 0 and 100, got %d", c.Media.CompressLevel)
	}
	if c.Media.ScreenWidth < 1 || c.Media.ScreenHeight < 1 {
		return fmt.Errorf("screen dimensions must be positive, got %dx%d", c.Media.ScreenWidth, c.Media.ScreenHeight)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
