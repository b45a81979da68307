package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"math"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/sambeau/quantities/pkg/catalog"
)

const digestKey = "digest"

// ImportResult describes one Import call.
type ImportResult struct {
	Digest     string
	Skipped    bool // the stored catalog already had this digest
	Quantities int
	Units      int
}

// Digest returns the BLAKE2b-256 digest of the catalog's canonical JSON
// encoding. Collections with the same content have the same digest.
func Digest(c *catalog.Collection) (string, error) {
	var buf bytes.Buffer
	if err := catalog.Encode(&buf, c); err != nil {
		return "", err
	}
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// StoredDigest returns the digest of the last imported catalog, or "" when
// nothing was imported yet.
func (s *Store) StoredDigest(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT value FROM catalog_meta WHERE name = ?"), digestKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", s.dbError("read digest", err)
	}
	return value, nil
}

// Import replaces the stored catalog with c in one transaction. When the
// stored digest matches c the database is left untouched.
func (s *Store) Import(ctx context.Context, c *catalog.Collection) (ImportResult, error) {
	digest, err := Digest(c)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Digest: digest, Quantities: len(c.Quantities), Units: len(c.Units)}

	stored, err := s.StoredDigest(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	if stored == digest {
		result.Skipped = true
		s.logger.Info("catalog unchanged, import skipped", "digest", digest)
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, s.dbError("begin import", err)
	}
	defer tx.Rollback()

	if err := s.replace(ctx, tx, c, digest); err != nil {
		return ImportResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, s.dbError("commit import", err)
	}

	s.logger.Info("catalog imported",
		"digest", digest,
		"quantities", result.Quantities,
		"units", result.Units,
	)
	return result, nil
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, c *catalog.Collection, digest string) error {
	tables := []string{"quantity_units", "quantities", "units", "catalog_meta"}
	if s.driver == "sqlite" {
		tables = append(tables, "catalog_fts")
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return s.dbError("clear "+table, err)
		}
	}

	insertUnit, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO units (unit_key, member_name, name, symbol, description, multiplier, offset_value, applicable_system, distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return s.dbError("prepare units", err)
	}
	defer insertUnit.Close()

	for _, key := range sortedKeys(c.Units) {
		u := c.Units[key]
		distance := sql.NullFloat64{Float64: u.DistanceToDefault()}
		distance.Valid = !math.IsInf(distance.Float64, 0)
		if _, err := insertUnit.ExecContext(ctx,
			key, c.MemberName(u), u.Name, u.Symbol, u.Description,
			string(u.Multiplier), string(u.Offset), u.ApplicableSystem, distance,
		); err != nil {
			return s.dbError("insert unit "+key, err)
		}
		if err := s.index(ctx, tx, "unit", key, c.MemberName(u), unitText(u), u.Description); err != nil {
			return err
		}
	}

	insertQuantity, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO quantities (name, description, dimension, is_basic, dimension_default, canonical_unit)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return s.dbError("prepare quantities", err)
	}
	defer insertQuantity.Close()

	insertLink, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO quantity_units (quantity, unit_key, position) VALUES (?, ?, ?)`))
	if err != nil {
		return s.dbError("prepare quantity units", err)
	}
	defer insertLink.Close()

	for _, name := range sortedKeys(c.Quantities) {
		q := c.Quantities[name]
		canonical := ""
		if u, err := c.CanonicalUnit(name); err == nil {
			canonical = u.Key
		}
		if _, err := insertQuantity.ExecContext(ctx,
			name, q.Description, q.Dimension, boolInt(q.IsBasic), boolInt(q.IsDimensionDefault), canonical,
		); err != nil {
			return s.dbError("insert quantity "+name, err)
		}

		seen := make(map[string]bool, len(q.Units))
		for i, key := range q.Units {
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, err := insertLink.ExecContext(ctx, name, key, i); err != nil {
				return s.dbError("insert quantity unit "+key, err)
			}
		}
		if err := s.index(ctx, tx, "quantity", name, name, strings.Join(q.ExactMatch, " "), q.Description); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO catalog_meta (name, value) VALUES (?, ?)"), digestKey, digest); err != nil {
		return s.dbError("write digest", err)
	}
	return nil
}

// index adds one searchable row; only SQLite has the FTS table.
func (s *Store) index(ctx context.Context, tx *sql.Tx, kind, ref, name, text, description string) error {
	if s.driver != "sqlite" {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO catalog_fts (kind, ref, name, text, description) VALUES (?, ?, ?, ?, ?)",
		kind, ref, name, text, description)
	if err != nil {
		return s.dbError("index "+kind+" "+ref, err)
	}
	return nil
}

// unitText is the searchable text of a unit: its symbol, display name and
// localized labels.
func unitText(u *catalog.Unit) string {
	parts := []string{u.Symbol, u.Name}
	tags := make([]string, 0, len(u.Labels))
	for tag := range u.Labels {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		parts = append(parts, u.Labels[tag])
	}
	return strings.Join(parts, " ")
}

// QuantityUnits returns the stored unit keys of a quantity in catalog order.
func (s *Store) QuantityUnits(ctx context.Context, quantity string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT unit_key FROM quantity_units WHERE quantity = ? ORDER BY position"), quantity)
	if err != nil {
		return nil, s.dbError("query quantity units", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.dbError("scan quantity units", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dbError("iterate quantity units", err)
	}
	return keys, nil
}

// Stats returns row counts per table.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, table := range []string{"quantities", "units", "quantity_units"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, s.dbError("count "+table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
