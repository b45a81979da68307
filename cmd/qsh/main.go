package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"

	"github.com/sambeau/quantities/config"
	"github.com/sambeau/quantities/pkg/catalog"
	qerrors "github.com/sambeau/quantities/pkg/errors"
	"github.com/sambeau/quantities/pkg/logging"
	"github.com/sambeau/quantities/pkg/repl"
	"github.com/sambeau/quantities/pkg/system"
)

// Version is set at compile time via -ldflags
var Version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		var qerr *qerrors.QuantityError
		if errors.As(err, &qerr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", qerr.PrettyString())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("qsh", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		systemName  = flags.String("system", "", "Named unit system from the config")
		evalLine    = flags.String("e", "", "Run one command and exit")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout)
			return nil
		}
		printHelp(stderr)
		return err
	}
	if *showHelp {
		printHelp(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "qsh version %s\n", Version)
		return nil
	}

	session, closer, err := newSession(*configPath, *systemName, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer closer.Close()

	if *evalLine != "" {
		_, err := session.Eval(stdout, *evalLine)
		return err
	}
	repl.Start(stdout, Version, session)
	return nil
}

func newSession(configPath, systemName string, stdout, stderr io.Writer, getenv func(string) string) (*repl.Session, io.Closer, error) {
	cfg, _, err := config.LoadWithPath(configPath, getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}

	mapping := cfg.System
	if systemName != "" {
		var ok bool
		if mapping, ok = cfg.Systems[systemName]; !ok {
			return nil, nil, fmt.Errorf("no unit system named %q in config", systemName)
		}
	}

	logger, closer, err := logging.New(cfg.Logging, stdout, stderr)
	if err != nil {
		return nil, nil, err
	}

	c, err := catalog.Loader{
		Path:       cfg.Catalog.Path,
		Overlays:   cfg.Catalog.Overlays,
		Quantities: cfg.Catalog.Quantities,
		Logger:     logger,
	}.Load()
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	tolerance := system.Tolerance{
		Default:    cfg.Tolerance.Default,
		Match:      cfg.Tolerance.Match,
		Quantities: cfg.Tolerance.Quantities,
	}
	sys, err := system.New(c, mapping, system.WithTolerance(tolerance))
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		tag = language.English
	}
	return repl.NewSession(sys, tag, cfg.Overrides), closer, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `qsh - interactive unit conversion shell version %s

Usage:
  qsh [options]

Options:
  --config PATH    Path to config file (default: auto-detect)
  --system NAME    Start with a named unit system from the config
  -e COMMAND       Run one shell command and exit
  --version        Show version
  --help           Show this help

Examples:
  qsh
  qsh --system imperial
  qsh -e "convert 5 KilometrePerHour MetrePerSecond"

Type help inside the shell for its commands.
`, Version)
}
