package store

import (
	"context"
	"fmt"
)

// Column types are chosen to be valid in SQLite, PostgreSQL and MySQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		name VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quantities (
		name VARCHAR(191) PRIMARY KEY,
		description TEXT NOT NULL,
		dimension VARCHAR(64) NOT NULL,
		is_basic INTEGER NOT NULL DEFAULT 0,
		dimension_default INTEGER NOT NULL DEFAULT 0,
		canonical_unit VARCHAR(191) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		unit_key VARCHAR(191) PRIMARY KEY,
		member_name VARCHAR(191) NOT NULL,
		name VARCHAR(191) NOT NULL,
		symbol VARCHAR(64) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		multiplier VARCHAR(128) NOT NULL DEFAULT '',
		offset_value VARCHAR(128) NOT NULL DEFAULT '',
		applicable_system INTEGER NOT NULL DEFAULT 0,
		distance DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS quantity_units (
		quantity VARCHAR(191) NOT NULL,
		unit_key VARCHAR(191) NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (quantity, unit_key)
	)`,
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.dbError("create schema", err)
		}
	}
	if s.driver != "sqlite" {
		return nil
	}

	fts := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS catalog_fts USING fts5(
			kind UNINDEXED,
			ref UNINDEXED,
			name,
			text,
			description,
			tokenize='%s'
		)
	`, s.tokenizer)
	if _, err := s.db.ExecContext(ctx, fts); err != nil {
		return s.dbError("create FTS5 table", err)
	}
	return nil
}

// DropTables drops every catalog table (for reindexing).
func (s *Store) DropTables(ctx context.Context) error {
	queries := []string{
		"DROP TABLE IF EXISTS catalog_meta",
		"DROP TABLE IF EXISTS quantities",
		"DROP TABLE IF EXISTS units",
		"DROP TABLE IF EXISTS quantity_units",
	}
	if s.driver == "sqlite" {
		queries = append(queries, "DROP TABLE IF EXISTS catalog_fts")
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return s.dbError("drop tables", err)
		}
	}
	return nil
}
