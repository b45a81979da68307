package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

	errNotJSON = errors.New("not a JSON document")
)

// Decode reads one catalog document and applies overlays on top of it.
// Overlays are merged object-wise with array union, so an overlay can add
// quantities, add units to an existing quantity or replace single fields.
func Decode(base []byte, overlays ...[]byte) (*Collection, error) {
	doc, err := decodeTree(base)
	if err != nil {
		return nil, err
	}
	for i, overlay := range overlays {
		tree, err := decodeTree(overlay)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i+1, err)
		}
		doc = mergeJSON(doc, tree)
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, qerrors.Wrap("CATALOG-0007", err, nil)
	}

	c := NewCollection(nil, nil, nil)
	if err := json.Unmarshal(merged, c); err != nil {
		return nil, qerrors.Wrap("CATALOG-0007", err, nil)
	}
	if c.Quantities == nil {
		c.Quantities = map[string]*Quantity{}
	}
	if c.Units == nil {
		c.Units = map[string]*Unit{}
	}
	if c.Dimensions == nil {
		c.Dimensions = map[string]*dimension.Vector{}
	}

	// Unit keys in the catalog map are authoritative.
	for key, u := range c.Units {
		if u.Key == "" {
			u.Key = key
		}
	}
	for name, q := range c.Quantities {
		if q.Name == "" {
			q.Name = name
		}
	}
	return c, nil
}

func decodeTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, qerrors.Wrap("CATALOG-0007", err, nil)
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, qerrors.New("CATALOG-0007", map[string]any{"GoError": "top level is not an object"})
	}
	return tree, nil
}

// ReadFile reads a catalog file, transparently decompressing gzip and zstd.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Wrap("IO-0001", err, map[string]any{"Path": path})
	}
	defer f.Close()

	data, err := readCatalog(f)
	if errors.Is(err, errNotJSON) {
		return nil, qerrors.New("IO-0003", map[string]any{"Path": path})
	}
	if err != nil {
		return nil, qerrors.Wrap("IO-0001", err, map[string]any{"Path": path})
	}
	return data, nil
}

func readCatalog(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] != '{' {
		return nil, errNotJSON
	}
	return data, nil
}

// Loader loads a catalog file with its overlays and quantity filter.
type Loader struct {
	Path       string
	Overlays   []string
	Quantities []string
	Logger     *slog.Logger
}

// Files lists every file the loader reads, catalog first.
func (l Loader) Files() []string {
	return append([]string{l.Path}, l.Overlays...)
}

// Load reads, merges, filters and validates the catalog. Contract
// violations are returned as an error; warnings are logged.
func (l Loader) Load() (*Collection, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	base, err := ReadFile(l.Path)
	if err != nil {
		return nil, err
	}

	overlays := make([][]byte, 0, len(l.Overlays))
	for _, path := range l.Overlays {
		data, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		overlays = append(overlays, data)
		logger.Debug("catalog overlay", "path", path, "bytes", len(data))
	}

	c, err := Decode(base, overlays...)
	if err != nil {
		var qerr *qerrors.QuantityError
		if errors.As(err, &qerr) && qerr.File == "" {
			return nil, qerr.WithFile(l.Path)
		}
		return nil, err
	}

	c = c.Filter(l.Quantities)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(l.Path), err)
	}
	for _, w := range c.Warnings() {
		logger.Warn("catalog", "path", l.Path, "warning", w)
	}

	logger.Info("catalog loaded",
		"path", l.Path,
		"quantities", len(c.Quantities),
		"units", len(c.Units),
		"dimensions", len(c.Dimensions),
	)
	return c, nil
}

// Encode writes c as an indented JSON catalog.
func Encode(w io.Writer, c *Collection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(c)
}
