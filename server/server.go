// Package server exposes a unit catalog and its unit systems over a small
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"

	"github.com/sambeau/quantities/config"
	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/store"
	"github.com/sambeau/quantities/pkg/system"
)

// DefaultSystem names the system built from the config's system section.
const DefaultSystem = "default"

// Server serves one catalog. The catalog and its systems are swapped
// atomically on reload, so handlers never see a half-built state.
type Server struct {
	config  *config.Config
	loader  catalog.Loader
	store   *store.Store
	logger  *slog.Logger
	stdout  io.Writer
	tag     language.Tag
	state   atomic.Pointer[state]
	cache   *responseCache
	limiter *rateLimiter
	mux     *http.ServeMux
	server  *http.Server
}

// state is everything derived from one catalog load.
type state struct {
	collection *catalog.Collection
	systems    map[string]*system.System
	names      []string // system names, DefaultSystem first
}

// New loads the catalog and resolves every configured unit system. st may
// be nil, in which case search is unavailable.
func New(cfg *config.Config, loader catalog.Loader, st *store.Store, logger *slog.Logger, stdout io.Writer) (*Server, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		config:  cfg,
		loader:  loader,
		store:   st,
		logger:  logger,
		stdout:  stdout,
		tag:     tag,
		cache:   newResponseCache(cfg.Server.Cache),
		limiter: newRateLimiter(cfg.Server.RateLimit, time.Minute),
		mux:     http.NewServeMux(),
	}

	c, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := s.Reload(context.Background(), c); err != nil {
		return nil, err
	}

	s.setupRoutes()
	return s, nil
}

// Reload replaces the served catalog. The previous catalog stays in use if
// any configured system fails to resolve against c or the store rejects
// the import, so the search index never lags the served catalog.
func (s *Server) Reload(ctx context.Context, c *catalog.Collection) error {
	next, err := s.buildState(c)
	if err != nil {
		return err
	}

	if s.store != nil {
		res, err := s.store.Import(ctx, c)
		if err != nil {
			return err
		}
		s.logger.Debug("catalog indexed", "skipped", res.Skipped, "digest", res.Digest)
	}

	s.state.Store(next)
	s.cache.Clear()
	return nil
}

func (s *Server) buildState(c *catalog.Collection) (*state, error) {
	tolerance := system.Tolerance{
		Default:    s.config.Tolerance.Default,
		Match:      s.config.Tolerance.Match,
		Quantities: s.config.Tolerance.Quantities,
	}
	table := system.NewTable(c)

	mappings := map[string]map[string]string{DefaultSystem: s.config.System}
	names := make([]string, 0, len(s.config.Systems))
	for name, m := range s.config.Systems {
		if name == DefaultSystem {
			return nil, fmt.Errorf("system name %q is reserved", name)
		}
		mappings[name] = m
		names = append(names, name)
	}
	sort.Strings(names)

	st := &state{
		collection: c,
		systems:    make(map[string]*system.System, len(mappings)),
		names:      append([]string{DefaultSystem}, names...),
	}
	for _, name := range st.names {
		sys, err := system.New(c, mappings[name], system.WithTolerance(tolerance), system.WithTable(table))
		if err != nil {
			return nil, fmt.Errorf("system %q: %w", name, err)
		}
		st.systems[name] = sys
	}
	return st, nil
}

// Handler returns the API with its middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = newCacheHandler(handler, s.cache)
	handler = newCompressionHandler(handler, s.config.Compression)
	handler = newRateLimitHandler(handler, s.limiter, s.config.Server.RateLimit > 0)
	handler = NewCORSMiddleware(s.config.CORS).Handler(handler)
	if s.config.Logging.Level != "error" {
		handler = newRequestLogger(handler, s.logger)
	}
	return handler
}

// Run starts the server and blocks until the context is cancelled. With
// server.watch set, the catalog is reloaded whenever one of its files
// changes.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Server.Watch {
		watcher, err := catalog.NewWatcher(s.loader, func(c *catalog.Collection, err error) {
			if err != nil {
				s.logger.Error("catalog reload failed", "error", err)
				return
			}
			if err := s.Reload(ctx, c); err != nil {
				s.logger.Error("catalog reload rejected", "error", err)
				return
			}
			s.logger.Info("catalog reloaded", "quantities", len(c.Quantities), "units", len(c.Units))
		})
		if err != nil {
			s.logger.Error("failed to create watcher", "error", err)
		} else {
			if err := watcher.Start(ctx); err != nil {
				s.logger.Error("failed to start watcher", "error", err)
			}
			defer watcher.Close()
		}
	}

	ln, err := net.Listen("tcp", s.listenAddr())
	if err != nil {
		return err
	}

	if s.cache.ttl > 0 {
		go s.cache.pruneEvery(ctx, s.cache.pruneInterval())
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(s.stdout, "Serving quantities on http://%s\n", ln.Addr())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}
