package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "QUANTITIES_CONFIG"

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads, interpolates and parses the config file at path, then applies
// basic validation.
func Load(path string, getenv func(string) string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, qerrors.New("CONFIG-0002", map[string]any{"Path": path})
		}
		return nil, qerrors.Wrap("IO-0001", err, map[string]any{"Path": path})
	}

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(interpolateEnv(data, getenv)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = filepath.Dir(abs)
	resolvePaths(cfg)

	if err := validateBasic(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithPath resolves the config file (explicit path, $QUANTITIES_CONFIG,
// ./quantities.yaml, ~/.config/quantities/quantities.yaml) and loads it.
// When nothing was requested and nothing is found it returns the defaults
// relative to the working directory and an empty file name.
func LoadWithPath(explicit string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(explicit, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		resolvePaths(cfg)
		return cfg, "", nil
	}

	cfg, err := Load(path, getenv)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit == "" && getenv != nil {
		explicit = getenv(EnvConfig)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", qerrors.New("CONFIG-0002", map[string]any{"Path": explicit})
		}
		return explicit, nil
	}

	candidates := []string{"quantities.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "quantities", "quantities.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// interpolateEnv expands ${VAR} and ${VAR:-default}.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if v := getenv(string(parts[1])); v != "" {
			return []byte(v)
		}
		return parts[2]
	})
}

func resolvePaths(cfg *Config) {
	cfg.Catalog.Path = resolvePath(cfg.BaseDir, cfg.Catalog.Path)
	for i, p := range cfg.Catalog.Overlays {
		cfg.Catalog.Overlays[i] = resolvePath(cfg.BaseDir, p)
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.DSN != ":memory:" && !strings.HasPrefix(cfg.Store.DSN, "file:") {
		cfg.Store.DSN = resolvePath(cfg.BaseDir, cfg.Store.DSN)
	}
	if cfg.Logging.Output != "stderr" && cfg.Logging.Output != "stdout" {
		cfg.Logging.Output = resolvePath(cfg.BaseDir, cfg.Logging.Output)
	}
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// validateBasic checks values that can be judged on their own.
func validateBasic(cfg *Config) error {
	return problemsError(basicProblems(cfg))
}

func basicProblems(cfg *Config) []string {
	var problems []string

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging: invalid log level %q (want debug, info, warn or error)", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging: invalid log format %q (want text or json)", cfg.Logging.Format))
	}
	if cfg.Logging.Output == "" {
		problems = append(problems, "logging: output is required")
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		problems = append(problems, fmt.Sprintf("store: unsupported driver %q", cfg.Store.Driver))
	}
	switch cfg.Store.Tokenizer {
	case "unicode61", "porter":
	default:
		problems = append(problems, fmt.Sprintf("store: tokenizer must be unicode61 or porter, got %q", cfg.Store.Tokenizer))
	}

	if cfg.Tolerance.Default <= 0 {
		problems = append(problems, "tolerance: default must be positive")
	}
	if cfg.Tolerance.Match < 0 {
		problems = append(problems, "tolerance: match must not be negative")
	}
	for _, name := range sortedKeys(cfg.Tolerance.Quantities) {
		if cfg.Tolerance.Quantities[name] <= 0 {
			problems = append(problems, fmt.Sprintf("tolerance: %s must be positive", name))
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server: invalid port %d", cfg.Server.Port))
	}
	if cfg.Server.Cache < 0 {
		problems = append(problems, "server: cache must not be negative")
	}
	if cfg.Server.RateLimit < 0 {
		problems = append(problems, "server: rate_limit must not be negative")
	}
	switch cfg.Compression.Level {
	case "fastest", "default", "best", "none":
	default:
		problems = append(problems, fmt.Sprintf("compression: invalid level %q (want fastest, default, best or none)", cfg.Compression.Level))
	}

	if _, err := language.Parse(cfg.Locale); err != nil {
		problems = append(problems, fmt.Sprintf("locale: invalid language tag %q", cfg.Locale))
	}
	return problems
}

// Validate performs full validation, including unit system keys. Call it
// after command-line overrides have been applied.
func Validate(cfg *Config) error {
	problems := basicProblems(cfg)
	if cfg.Catalog.Path == "" {
		problems = append(problems, "catalog: path is required")
	}
	problems = append(problems, checkSystem("system", cfg.System)...)
	for _, name := range sortedKeys(cfg.Systems) {
		if name == "" {
			problems = append(problems, "systems: name is required")
			continue
		}
		problems = append(problems, checkSystem("systems."+name, cfg.Systems[name])...)
	}

	return problemsError(problems)
}

func checkSystem(section string, mapping map[string]string) []string {
	var problems []string
	for _, key := range sortedKeys(mapping) {
		if _, ok := dimension.ParseBase(key); !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown base dimension %q", section, key))
			continue
		}
		if strings.TrimSpace(mapping[key]) == "" {
			problems = append(problems, fmt.Sprintf("%s: %s needs a unit", section, key))
		}
	}
	return problems
}

// Warnings returns non-fatal configuration issues.
func Warnings(cfg *Config) []string {
	var warnings []string
	if len(cfg.System) == 0 {
		warnings = append(warnings, "no unit system configured; canonical units are used for every base dimension")
	}
	if cfg.CORS.Origins.Contains("*") && len(cfg.CORS.Origins) > 1 {
		warnings = append(warnings, "cors: \"*\" allows every origin; other entries are redundant")
	}
	for _, name := range sortedKeys(cfg.Overrides) {
		if strings.TrimSpace(cfg.Overrides[name]) == "" {
			warnings = append(warnings, fmt.Sprintf("override for %s is empty and will be ignored", name))
		}
	}
	return warnings
}

func problemsError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return qerrors.New("CONFIG-0001", map[string]any{"Problems": problems})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
