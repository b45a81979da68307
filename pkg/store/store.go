// Package store persists a unit catalog to a SQL database and searches it.
//
// SQLite (modernc.org/sqlite) is the default backend and the only one with
// full-text search; PostgreSQL (lib/pq) and MySQL (go-sql-driver/mysql) get
// the same schema and a LIKE-based search.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/sambeau/quantities/config"
	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// Store is an open catalog database.
type Store struct {
	db        *sql.DB
	driver    string
	tokenizer string
	logger    *slog.Logger
}

// Open connects to the configured database and creates the schema. SQLite
// databases are opened in WAL mode on a single connection.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tokenizer := cfg.Tokenizer
	if tokenizer == "" {
		tokenizer = "unicode61"
	}
	if tokenizer != "porter" && tokenizer != "unicode61" {
		return nil, fmt.Errorf("invalid tokenizer: %s (must be 'porter' or 'unicode61')", tokenizer)
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
		db, err = openSQLite(cfg.DSN)
	case "postgres", "mysql":
		db, err = sql.Open(cfg.Driver, cfg.DSN)
	default:
		return nil, qerrors.New("DB-0003", map[string]any{"Driver": cfg.Driver})
	}
	if err != nil {
		return nil, qerrors.Wrap("DB-0002", err, map[string]any{"Driver": cfg.Driver})
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, qerrors.Wrap("DB-0002", err, map[string]any{"Driver": cfg.Driver})
	}

	s := &Store{db: db, driver: cfg.Driver, tokenizer: tokenizer, logger: logger}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Driver)
	return s, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" || dsn == ":memory:" {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, err
		}
		// Each connection of an in-memory database is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}

	if !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	return rebind(s.driver, query)
}

func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (s *Store) dbError(operation string, err error) error {
	return qerrors.Wrap("DB-0001", err, map[string]any{"Driver": s.driver, "Operation": operation})
}
