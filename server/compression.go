package server

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sambeau/quantities/config"
)

// newCompressionHandler wraps an HTTP handler with gzip compression middleware.
// Returns the original handler if compression is disabled or level is "none".
func newCompressionHandler(h http.Handler, cfg config.CompressionConfig) http.Handler {
	if !cfg.Enabled || cfg.Level == "none" {
		return h
	}

	var level int
	switch cfg.Level {
	case "fastest":
		level = gzip.BestSpeed
	case "best":
		level = gzip.BestCompression
	default:
		level = gzip.DefaultCompression
	}

	// Note: option type is unexported, so we call the option constructors directly
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(level),
	)
	if err != nil {
		return h
	}
	return wrapper(h)
}
