package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qerrors "github.com/sambeau/quantities/pkg/errors"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "quantities.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Tolerance.Default != 1e-6 {
		t.Errorf("expected default tolerance 1e-6, got %v", cfg.Tolerance.Default)
	}
	if cfg.Tolerance.Match != 1e-9 {
		t.Errorf("expected match tolerance 1e-9, got %v", cfg.Tolerance.Match)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected default driver 'sqlite', got %q", cfg.Store.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Locale != "en" {
		t.Errorf("expected default locale 'en', got %q", cfg.Locale)
	}
	if err := validateBasic(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "CATALOG":
			return "/data/isq.json"
		case "LOCALE":
			return "de"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple substitution", "path: ${CATALOG}", "path: /data/isq.json"},
		{"with default (env set)", "locale: ${LOCALE:-en}", "locale: de"},
		{"with default (env not set)", "locale: ${UNSET:-fr}", "locale: fr"},
		{"unset without default", "path: ${UNSET}", "path: "},
		{"multiple substitutions", "x: ${CATALOG},${LOCALE}", "x: /data/isq.json,de"},
		{"no substitution needed", "static: value", "static: value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
catalog:
  path: ./catalog/isq.json
  overlays: extra.json
  quantities: [Velocity, Area]

system:
  Length: Millimetre
  Time: Second

systems:
  imperial:
    Length: Foot
    Mass: Pound_LB

overrides:
  Velocity: KilometrePerHour

tolerance:
  default: 0.001
  quantities:
    Length: 0.01

locale: de

store:
  driver: sqlite
  dsn: data/q.db
  tokenizer: porter

logging:
  level: debug
  format: json
  output: stderr
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path, noEnv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.Catalog.Path != filepath.Join(dir, "catalog", "isq.json") {
		t.Errorf("catalog path not resolved: %q", cfg.Catalog.Path)
	}
	if len(cfg.Catalog.Overlays) != 1 || cfg.Catalog.Overlays[0] != filepath.Join(dir, "extra.json") {
		t.Errorf("overlays not resolved: %v", cfg.Catalog.Overlays)
	}
	if len(cfg.Catalog.Quantities) != 2 {
		t.Errorf("expected 2 quantities, got %v", cfg.Catalog.Quantities)
	}
	if cfg.System["Length"] != "Millimetre" || cfg.System["Time"] != "Second" {
		t.Errorf("unexpected system %v", cfg.System)
	}
	if cfg.Systems["imperial"]["Mass"] != "Pound_LB" {
		t.Errorf("unexpected systems %v", cfg.Systems)
	}
	if cfg.Overrides["Velocity"] != "KilometrePerHour" {
		t.Errorf("unexpected overrides %v", cfg.Overrides)
	}
	if cfg.Tolerance.Default != 0.001 || cfg.Tolerance.Match != 1e-9 {
		t.Errorf("unexpected tolerance %+v", cfg.Tolerance)
	}
	if cfg.Tolerance.Quantities["Length"] != 0.01 {
		t.Errorf("unexpected per-quantity tolerance %v", cfg.Tolerance.Quantities)
	}
	if cfg.Locale != "de" {
		t.Errorf("expected locale 'de', got %q", cfg.Locale)
	}
	if cfg.Store.DSN != filepath.Join(dir, "data", "q.db") {
		t.Errorf("sqlite dsn not resolved: %q", cfg.Store.DSN)
	}
	if cfg.Store.Tokenizer != "porter" {
		t.Errorf("expected porter tokenizer, got %q", cfg.Store.Tokenizer)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("stderr must not be resolved as a path, got %q", cfg.Logging.Output)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadEmptyFileGivesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path, noEnv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Catalog.Path != filepath.Join(filepath.Dir(path), "isq.json") {
		t.Errorf("unexpected catalog path %q", cfg.Catalog.Path)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	path := writeConfig(t, `
catalog:
  path: ${QUANTITIES_CATALOG:-/srv/isq.json}
store:
  driver: ${STORE_DRIVER}
  dsn: ${STORE_DSN}
`)
	getenv := func(key string) string {
		switch key {
		case "STORE_DRIVER":
			return "postgres"
		case "STORE_DSN":
			return "postgres://localhost/units?sslmode=disable"
		}
		return ""
	}

	cfg, err := Load(path, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Catalog.Path != "/srv/isq.json" {
		t.Errorf("expected default catalog path, got %q", cfg.Catalog.Path)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("expected postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://localhost/units?sslmode=disable" {
		t.Errorf("non-sqlite dsn must be left alone, got %q", cfg.Store.DSN)
	}
}

func TestLoadUnknownField(t *testing.T) {
	path := writeConfig(t, "catalogue:\n  path: x.json\n")
	if _, err := Load(path, noEnv); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		expectErr bool
		errSubstr string
	}{
		{
			name:      "valid minimal config",
			config:    "catalog:\n  path: isq.json\n",
			expectErr: false,
		},
		{
			name:      "invalid log level",
			config:    "logging:\n  level: verbose\n",
			expectErr: true,
			errSubstr: "invalid log level",
		},
		{
			name:      "invalid log format",
			config:    "logging:\n  format: xml\n",
			expectErr: true,
			errSubstr: "invalid log format",
		},
		{
			name:      "unsupported driver",
			config:    "store:\n  driver: oracle\n",
			expectErr: true,
			errSubstr: `unsupported driver "oracle"`,
		},
		{
			name:      "bad tokenizer",
			config:    "store:\n  tokenizer: trigram\n",
			expectErr: true,
			errSubstr: "tokenizer must be unicode61 or porter",
		},
		{
			name:      "invalid port",
			config:    "server:\n  port: 70000\n",
			expectErr: true,
			errSubstr: "invalid port 70000",
		},
		{
			name:      "invalid compression level",
			config:    "compression:\n  level: max\n",
			expectErr: true,
			errSubstr: `invalid level "max"`,
		},
		{
			name:      "server cache duration",
			config:    "server:\n  cache: 30s\n",
			expectErr: false,
		},
		{
			name:      "non-positive tolerance",
			config:    "tolerance:\n  default: 0\n",
			expectErr: true,
			errSubstr: "default must be positive",
		},
		{
			name:      "negative quantity tolerance",
			config:    "tolerance:\n  quantities:\n    Length: -1\n",
			expectErr: true,
			errSubstr: "Length must be positive",
		},
		{
			name:      "bad locale",
			config:    "locale: \"x!\"\n",
			expectErr: true,
			errSubstr: "invalid language tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config), noEnv)

			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
				if err != nil && !errors.Is(err, qerrors.ErrInvalidConfig) {
					t.Errorf("expected CONFIG-0001, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSystems(t *testing.T) {
	cfg := Defaults()
	cfg.System = map[string]string{"Length": "Millimetre", "Lenght": "Metre", "Time": " "}
	cfg.Systems = map[string]map[string]string{"imperial": {"Velocity": "FootPerSecond"}}
	cfg.Catalog.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := "configuration errors:\n" +
		"  - catalog: path is required\n" +
		"  - system: unknown base dimension \"Lenght\"\n" +
		"  - system: Time needs a unit\n" +
		"  - systems.imperial: unknown base dimension \"Velocity\""
	if err.Error() != want {
		t.Errorf("unexpected error message:\n%s\nwant:\n%s", err.Error(), want)
	}
}

func TestResolveConfigPath(t *testing.T) {
	_, err := resolveConfigPath("/nonexistent/path/quantities.yaml", noEnv)
	if err == nil {
		t.Error("expected error for nonexistent path")
	} else if !errors.Is(err, qerrors.ErrConfigNotFound) {
		t.Errorf("expected CONFIG-0002, got %v", err)
	}

	path := writeConfig(t, "")
	resolved, err := resolveConfigPath(path, noEnv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != path {
		t.Errorf("expected %q, got %q", path, resolved)
	}

	fromEnv, err := resolveConfigPath("", func(key string) string {
		if key == EnvConfig {
			return path
		}
		return ""
	})
	if err != nil || fromEnv != path {
		t.Errorf("expected %q from %s, got %q (%v)", path, EnvConfig, fromEnv, err)
	}
}

func TestLoadWithPathMissing(t *testing.T) {
	_, _, err := LoadWithPath("/nonexistent/config.yaml", noEnv)
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %v", err)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantWarn string
	}{
		{
			name:     "no system",
			cfg:      &Config{},
			wantWarn: "no unit system configured",
		},
		{
			name: "empty override",
			cfg: &Config{
				System:    map[string]string{"Length": "Metre"},
				Overrides: map[string]string{"Velocity": ""},
			},
			wantWarn: "override for Velocity is empty",
		},
		{
			name:     "clean",
			cfg:      &Config{System: map[string]string{"Length": "Metre"}},
			wantWarn: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := Warnings(tt.cfg)
			if tt.wantWarn == "" {
				if len(warnings) > 0 {
					t.Errorf("expected no warnings, got %v", warnings)
				}
				return
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantWarn) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected warning containing %q, got %v", tt.wantWarn, warnings)
			}
		})
	}
}
