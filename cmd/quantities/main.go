package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/text/language"

	"github.com/sambeau/quantities/config"
	"github.com/sambeau/quantities/server"
	"github.com/sambeau/quantities/pkg/catalog"
	"github.com/sambeau/quantities/pkg/conversion"
	qerrors "github.com/sambeau/quantities/pkg/errors"
	"github.com/sambeau/quantities/pkg/logging"
	"github.com/sambeau/quantities/pkg/report"
	"github.com/sambeau/quantities/pkg/repl"
	"github.com/sambeau/quantities/pkg/store"
	"github.com/sambeau/quantities/pkg/system"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		var qerr *qerrors.QuantityError
		if errors.As(err, &qerr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", qerr.PrettyString())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

var commands = []string{"resolve", "convert", "describe", "check", "index", "search", "watch", "serve"}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return nil
	case "-version", "--version", "version":
		fmt.Fprintf(stdout, "quantities version %s (%s)\n", Version, Commit)
		return nil
	case "resolve":
		return runResolveCommand(ctx, args[1:], stdout, stderr, getenv)
	case "convert":
		return runConvertCommand(args[1:], stdout, stderr, getenv)
	case "describe":
		return runDescribeCommand(args[1:], stdout, stderr, getenv)
	case "check":
		return runCheckCommand(args[1:], stdout, stderr, getenv)
	case "index":
		return runIndexCommand(ctx, args[1:], stdout, stderr, getenv)
	case "search":
		return runSearchCommand(ctx, args[1:], stdout, stderr, getenv)
	case "watch":
		return runWatchCommand(ctx, args[1:], stdout, stderr, getenv)
	case "serve":
		return runServeCommand(ctx, args[1:], stdout, stderr, getenv)
	}

	hint := ""
	if match := qerrors.FindClosestMatch(args[0], commands); match != "" {
		hint = fmt.Sprintf(" (did you mean %q?)", match)
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q%s", args[0], hint)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `quantities - Units of measure and unit systems

Usage:
  quantities <command> [options] [arguments]

Commands:
  resolve [QUANTITY...]        Resolve quantities against the unit system
  convert VALUE FROM TO [Q]    Convert a value exactly between two units
  describe [QUANTITY...]       Write a Markdown (or HTML) catalog report
  check                        Validate the catalog and unit systems
  index                        Import the catalog into the store
  search TERM...               Full-text search over quantities and units
  watch                        Reload the catalog when its files change
  serve                        Serve the JSON HTTP API

Common options:
  --config PATH    Path to config file (default: auto-detect)
  --system NAME    Use a named system from the config's systems section

Options:
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. QUANTITIES_CONFIG environment variable
  3. ./quantities.yaml
  4. ~/.config/quantities/quantities.yaml

Examples:
  quantities resolve Velocity Energy
  quantities resolve --all --json
  quantities convert 5 KilometrePerHour MetrePerSecond
  quantities describe --html --system imperial > imperial.html
  quantities search troy pound
  quantities serve --port 3000 --watch

`)
}

// env is everything a command needs once config and catalog are loaded.
type env struct {
	cfg        *config.Config
	configFile string
	logger     *slog.Logger
	closer     io.Closer
	loader     catalog.Loader
	collection *catalog.Collection
	tag        language.Tag
}

func (e *env) Close() error {
	return e.closer.Close()
}

// setup loads and validates the config, starts logging and loads the
// catalog.
func setup(configPath string, stdout, stderr io.Writer, getenv func(string) string) (*env, error) {
	cfg, configFile, err := config.LoadWithPath(configPath, getenv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	logger, closer, err := logging.New(cfg.Logging, stdout, stderr)
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		closer.Close()
		return nil, err
	}

	e := &env{
		cfg:        cfg,
		configFile: configFile,
		logger:     logger,
		closer:     closer,
		tag:        tag,
		loader: catalog.Loader{
			Path:       cfg.Catalog.Path,
			Overlays:   cfg.Catalog.Overlays,
			Quantities: cfg.Catalog.Quantities,
			Logger:     logger,
		},
	}
	if configFile != "" {
		logger.Debug("config loaded", "path", configFile)
	}

	e.collection, err = e.loader.Load()
	if err != nil {
		closer.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) tolerance() system.Tolerance {
	return system.Tolerance{
		Default:    e.cfg.Tolerance.Default,
		Match:      e.cfg.Tolerance.Match,
		Quantities: e.cfg.Tolerance.Quantities,
	}
}

// mapping returns the unit system named name, or the default system when
// name is empty.
func (e *env) mapping(name string) (map[string]string, error) {
	if name == "" {
		return e.cfg.System, nil
	}
	m, ok := e.cfg.Systems[name]
	if !ok {
		names := make([]string, 0, len(e.cfg.Systems))
		for n := range e.cfg.Systems {
			names = append(names, n)
		}
		hint := ""
		if match := qerrors.FindClosestMatch(name, names); match != "" {
			hint = fmt.Sprintf(" (did you mean %q?)", match)
		}
		return nil, fmt.Errorf("no unit system named %q in config%s", name, hint)
	}
	return m, nil
}

func (e *env) system(name string) (*system.System, error) {
	mapping, err := e.mapping(name)
	if err != nil {
		return nil, err
	}
	sys, err := system.New(e.collection, mapping, system.WithTolerance(e.tolerance()))
	if err != nil {
		if name == "" {
			return nil, fmt.Errorf("system: %w", err)
		}
		return nil, fmt.Errorf("system %q: %w", name, err)
	}
	return sys, nil
}

func newFlags(name string) (*flag.FlagSet, *string, *string) {
	flags := flag.NewFlagSet("quantities "+name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", "", "Path to config file")
	systemName := flags.String("system", "", "Named unit system")
	return flags, configPath, systemName
}

// runResolveCommand prints each quantity's system conversion and display
// unit.
func runResolveCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, systemName := newFlags("resolve")
	var (
		asJSON = flags.Bool("json", false, "Write JSON")
		all    = flags.Bool("all", false, "Resolve every configured system")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	if !*all {
		sys, err := e.system(*systemName)
		if err != nil {
			return err
		}
		resolutions, err := sys.ResolveQuantities(flags.Args(), e.cfg.Overrides)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(stdout, resolutions)
		}
		printResolutions(stdout, resolutions)
		return nil
	}

	requests := []system.Request{{
		Name:       "default",
		Mapping:    e.cfg.System,
		Overrides:  e.cfg.Overrides,
		Quantities: flags.Args(),
	}}
	names := make([]string, 0, len(e.cfg.Systems))
	for name := range e.cfg.Systems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		requests = append(requests, system.Request{
			Name:       name,
			Mapping:    e.cfg.Systems[name],
			Overrides:  e.cfg.Overrides,
			Quantities: flags.Args(),
		})
	}

	reports, err := system.ResolveAll(ctx, e.collection, e.tolerance(), requests)
	if err != nil {
		return err
	}
	e.logger.Info("resolved unit systems", "systems", len(reports), "quantities", len(reports[0].Resolutions))

	if *asJSON {
		type systemJSON struct {
			Name        string              `json:"name"`
			Mapping     map[string]string   `json:"mapping"`
			Resolutions []system.Resolution `json:"resolutions"`
		}
		out := make([]systemJSON, len(reports))
		for i, r := range reports {
			out[i] = systemJSON{Name: r.Name, Mapping: r.System.Mapping(), Resolutions: r.Resolutions}
		}
		return writeJSON(stdout, out)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "== %s ==\n", r.Name)
		printResolutions(stdout, r.Resolutions)
	}
	return nil
}

func printResolutions(w io.Writer, resolutions []system.Resolution) {
	fmt.Fprintf(w, "%-26s %-20s %-24s %s\n", "QUANTITY", "DIMENSION", "CONVERSION", "DISPLAY")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, r := range resolutions {
		conv := "not supported"
		if r.Supported {
			conv = r.Conversion.String()
		}
		fmt.Fprintf(w, "%-26s %-20s %-24s %s (%s)\n", r.Quantity, r.Dimension, conv, r.Display.Label, r.Display.Source)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// runConvertCommand converts one value, through the selected unit system.
func runConvertCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, systemName := newFlags("convert")
	if err := flags.Parse(valueArgs(flags, args)); err != nil {
		return err
	}
	if flags.NArg() < 3 {
		return fmt.Errorf("usage: quantities convert [options] VALUE FROM TO [QUANTITY]")
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	sys, err := e.system(*systemName)
	if err != nil {
		return err
	}
	session := repl.NewSession(sys, e.tag, e.cfg.Overrides)
	_, err = session.Eval(stdout, "convert "+strings.Join(flags.Args(), " "))
	return err
}

// valueArgs ends flag parsing at the first argument that reads as a number,
// so a negative VALUE such as -40 is not taken for a flag.
func valueArgs(flags *flag.FlagSet, args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" || !strings.HasPrefix(arg, "-") {
			return args
		}
		if _, err := conversion.ParseRat(arg); err == nil {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if f := flags.Lookup(name); f != nil && !hasValue && !isBoolFlag(f) {
			i++ // skip the flag's value
		}
	}
	return args
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// runDescribeCommand writes a catalog report.
func runDescribeCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, systemName := newFlags("describe")
	var (
		asHTML = flags.Bool("html", false, "Write HTML instead of Markdown")
		title  = flags.String("title", "", "Report title")
		output = flags.String("o", "", "Write to file instead of stdout")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	sys, err := e.system(*systemName)
	if err != nil {
		return err
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return qerrors.Wrap("IO-0001", err, map[string]any{"Path": *output})
		}
		defer f.Close()
		w = f
	}

	opts := report.Options{
		Title:      *title,
		Quantities: flags.Args(),
		Overrides:  e.cfg.Overrides,
		Locale:     e.tag,
	}
	if *asHTML {
		return report.HTML(w, sys, opts)
	}
	return report.Markdown(w, sys, opts)
}

// runCheckCommand loads the catalog and builds every configured system,
// reporting all failures.
func runCheckCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, _ := newFlags("check")
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	c := e.collection
	fmt.Fprintf(stdout, "catalog: %d quantities, %d units, %d dimensions\n", len(c.Quantities), len(c.Units), len(c.Dimensions))
	for _, w := range c.Warnings() {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}

	names := []string{""}
	for name := range e.cfg.Systems {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		label := name
		if label == "" {
			label = "default"
		}
		sys, err := e.system(name)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "system %s: %v\n", label, err)
			continue
		}
		unsupported := 0
		resolutions, err := sys.ResolveQuantities(nil, e.cfg.Overrides)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "system %s: %v\n", label, err)
			continue
		}
		for _, r := range resolutions {
			if !r.Supported {
				unsupported++
			}
		}
		fmt.Fprintf(stdout, "system %s: ok (%d quantities, %d without conversion)\n", label, len(resolutions), unsupported)
	}

	if failed > 0 {
		return fmt.Errorf("%d unit system(s) failed", failed)
	}
	return nil
}

func openStore(ctx context.Context, e *env) (*store.Store, store.ImportResult, error) {
	st, err := store.Open(ctx, e.cfg.Store, e.logger)
	if err != nil {
		return nil, store.ImportResult{}, err
	}
	res, err := st.Import(ctx, e.collection)
	if err != nil {
		st.Close()
		return nil, store.ImportResult{}, err
	}
	return st, res, nil
}

// runIndexCommand imports the catalog into the configured store.
func runIndexCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, _ := newFlags("index")
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	st, res, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer st.Close()

	if res.Skipped {
		fmt.Fprintf(stdout, "catalog unchanged (%s)\n", res.Digest[:12])
		return nil
	}
	fmt.Fprintf(stdout, "indexed %d quantities and %d units (%s)\n", res.Quantities, res.Units, res.Digest[:12])
	return nil
}

// runSearchCommand searches the store, importing the catalog first when it
// has changed.
func runSearchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, _ := newFlags("search")
	limit := flags.Int("limit", 10, "Maximum number of results")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: quantities search [options] TERM...")
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	st, _, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Search(ctx, strings.Join(flags.Args(), " "), *limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(stdout, "No matches.")
		return nil
	}

	fmt.Fprintf(stdout, "%-9s %-20s %-26s %s\n", "KIND", "REF", "NAME", "SNIPPET")
	fmt.Fprintln(stdout, strings.Repeat("-", 80))
	for _, r := range results {
		fmt.Fprintf(stdout, "%-9s %-20s %-26s %s\n", r.Kind, r.Ref, r.Name, r.Snippet)
	}
	return nil
}

// runWatchCommand reloads the catalog whenever one of its files changes and
// re-resolves the default system. With --index each good reload is also
// imported into the store.
func runWatchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, systemName := newFlags("watch")
	index := flags.Bool("index", false, "Import each reload into the store")
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	mapping, err := e.mapping(*systemName)
	if err != nil {
		return err
	}
	if _, err := e.system(*systemName); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st *store.Store
	if *index {
		if st, _, err = openStore(ctx, e); err != nil {
			return err
		}
		defer st.Close()
	}

	watcher, err := catalog.NewWatcher(e.loader, func(c *catalog.Collection, err error) {
		if err != nil {
			e.logger.Error("catalog reload failed", "error", err)
			return
		}
		sys, err := system.New(c, mapping, system.WithTolerance(e.tolerance()))
		if err != nil {
			e.logger.Error("unit system no longer resolves", "error", err)
			return
		}
		resolutions, err := sys.ResolveQuantities(nil, e.cfg.Overrides)
		if err != nil {
			e.logger.Error("resolve failed", "error", err)
			return
		}
		fmt.Fprintf(stdout, "reloaded: %d quantities, %d units\n", len(c.Quantities), len(c.Units))
		e.logger.Info("catalog reloaded", "quantities", len(resolutions))

		if st != nil {
			res, err := st.Import(ctx, c)
			if err != nil {
				e.logger.Error("index failed", "error", err)
				return
			}
			e.logger.Info("catalog indexed", "skipped", res.Skipped, "digest", res.Digest)
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "watching %s (Ctrl+C to stop)\n", strings.Join(e.loader.Files(), ", "))
	<-ctx.Done()
	return nil
}

// runServeCommand serves the HTTP API until interrupted.
func runServeCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags, configPath, _ := newFlags("serve")
	var (
		host    = flags.String("host", "", "Override listen host")
		port    = flags.Int("port", -1, "Override listen port")
		watch   = flags.Bool("watch", false, "Reload the catalog when its files change")
		noStore = flags.Bool("no-store", false, "Serve without a store (disables search)")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.Close()

	// Apply CLI overrides
	if *host != "" {
		e.cfg.Server.Host = *host
	}
	if *port >= 0 {
		e.cfg.Server.Port = *port
	}
	if *watch {
		e.cfg.Server.Watch = true
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st *store.Store
	if !*noStore {
		if st, err = store.Open(ctx, e.cfg.Store, e.logger); err != nil {
			return err
		}
		defer st.Close()
	}

	srv, err := server.New(e.cfg, e.loader, st, e.logger, stdout)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

