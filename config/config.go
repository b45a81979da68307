package config

import "time"

// Config represents the complete quantities configuration
type Config struct {
	BaseDir     string                       `yaml:"-"` // Directory containing config file, for resolving relative paths
	Catalog     CatalogConfig                `yaml:"catalog"`
	System      map[string]string            `yaml:"system"`    // Base dimension -> unit name (e.g., Length: Millimetre)
	Systems     map[string]map[string]string `yaml:"systems"`   // Additional named unit systems, resolved side by side
	Overrides   map[string]string            `yaml:"overrides"` // Quantity -> explicit display unit
	Tolerance   ToleranceConfig              `yaml:"tolerance"`
	Locale      string                       `yaml:"locale"` // Language tag for labels and numbers (default: "en")
	Store       StoreConfig                  `yaml:"store"`
	Server      ServerConfig                 `yaml:"server"`
	CORS        CORSConfig                   `yaml:"cors"`
	Compression CompressionConfig            `yaml:"compression"`
	Logging     LoggingConfig                `yaml:"logging"`
}

// CatalogConfig says where the unit catalog comes from
type CatalogConfig struct {
	Path       string        `yaml:"path"`       // Catalog JSON (.json, .json.gz or .json.zst)
	Overlays   StringOrSlice `yaml:"overlays"`   // Extra JSON documents merged over the catalog
	Quantities []string      `yaml:"quantities"` // Keep basic quantities plus these (empty keeps all)
}

// ToleranceConfig holds comparison tolerances
type ToleranceConfig struct {
	Default    float64            `yaml:"default"`    // Absolute tolerance for value comparison (default: 1e-6)
	Match      float64            `yaml:"match"`      // Display unit match tolerance (default: 1e-9)
	Quantities map[string]float64 `yaml:"quantities"` // Per-quantity overrides of default
}

// StoreConfig holds catalog database settings
type StoreConfig struct {
	Driver    string `yaml:"driver"`    // sqlite (default), postgres or mysql
	DSN       string `yaml:"dsn"`       // File path for sqlite, connection string otherwise
	Tokenizer string `yaml:"tokenizer"` // FTS5 tokenizer: unicode61 (default) or porter
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Host      string        `yaml:"host"`       // Listen host (default: "localhost")
	Port      int           `yaml:"port"`       // Listen port (default: 8080)
	Watch     bool          `yaml:"watch"`      // Reload the catalog when its files change
	Cache     time.Duration `yaml:"cache"`      // Response cache TTL (0 = no cache)
	RateLimit int           `yaml:"rate_limit"` // Requests per minute per client (0 = unlimited)
}

// CORSConfig holds CORS (Cross-Origin Resource Sharing) settings
type CORSConfig struct {
	Origins StringOrSlice `yaml:"origins"` // "*" or list of allowed origins
	Methods []string      `yaml:"methods"` // Allowed HTTP methods (default: GET, HEAD)
	Headers []string      `yaml:"headers"` // Allowed request headers
	MaxAge  int           `yaml:"maxAge"`  // Preflight cache duration in seconds
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Contains checks if the slice contains the given string
func (s StringOrSlice) Contains(str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: "./isq.json",
		},
		Tolerance: ToleranceConfig{
			Default: 1e-6,
			Match:   1e-9,
		},
		Locale: "en",
		Store: StoreConfig{
			Driver:    "sqlite",
			DSN:       "./quantities.db",
			Tokenizer: "unicode61",
		},
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			Cache:     time.Minute,
			RateLimit: 600,
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
