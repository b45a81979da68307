package store

import (
	"context"
	"fmt"
	"strings"
)

// Result is one search hit.
type Result struct {
	Kind    string  `json:"kind"` // "quantity" or "unit"
	Ref     string  `json:"ref"`  // quantity name or unit key
	Name    string  `json:"name"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Weights defines the ranking weights for the searchable columns
type Weights struct {
	Name        float64
	Text        float64
	Description float64
}

// DefaultWeights returns the default ranking weights
func DefaultWeights() Weights {
	return Weights{Name: 10.0, Text: 5.0, Description: 1.0}
}

// Search runs a full-text query over quantities and units. Plain terms are
// prefix matches combined with AND; "quoted phrases" match exactly and a
// leading - excludes a term. Scores are normalized to 0-1, best first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	terms := parseQueryTokens(strings.TrimSpace(query))
	if len(terms) == 0 {
		return []Result{}, nil
	}
	if s.driver == "sqlite" {
		return s.searchFTS(ctx, terms, limit)
	}
	return s.searchLike(ctx, terms, limit)
}

func (s *Store) searchFTS(ctx context.Context, terms []queryToken, limit int) ([]Result, error) {
	match := ftsQuery(terms)
	if match == "" {
		return []Result{}, nil
	}

	w := DefaultWeights()
	q := fmt.Sprintf(`
		SELECT kind, ref, name,
			snippet(catalog_fts, -1, '<mark>', '</mark>', '...', 16),
			bm25(catalog_fts, 0, 0, %.1f, %.1f, %.1f) AS score
		FROM catalog_fts
		WHERE catalog_fts MATCH ?
		ORDER BY score
		LIMIT ?`, w.Name, w.Text, w.Description)

	rows, err := s.db.QueryContext(ctx, q, match, limit)
	if err != nil {
		// Handle FTS5 syntax errors gracefully
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []Result{}, nil
		}
		return nil, s.dbError("search", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Kind, &r.Ref, &r.Name, &r.Snippet, &r.Score); err != nil {
			return nil, s.dbError("scan search result", err)
		}
		// bm25 is lower-is-better
		r.Score = -r.Score
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dbError("iterate search results", err)
	}
	normalizeScores(results)
	return results, nil
}

// searchLike is the search for servers without FTS5: every positive term
// must appear in the name, symbol or description, no negative term may.
func (s *Store) searchLike(ctx context.Context, terms []queryToken, limit int) ([]Result, error) {
	var results []Result
	sources := []struct {
		kind  string
		query string
		cols  []string
	}{
		{"quantity", "SELECT name, name, description FROM quantities", []string{"name", "description"}},
		{"unit", "SELECT unit_key, member_name, description FROM units", []string{"member_name", "name", "symbol", "description"}},
	}

	for _, src := range sources {
		where, args := likeClause(terms, src.cols)
		if where == "" {
			return []Result{}, nil
		}
		rows, err := s.db.QueryContext(ctx, s.rebind(src.query+" WHERE "+where+" ORDER BY 2 LIMIT ?"), append(args, limit)...)
		if err != nil {
			return nil, s.dbError("search", err)
		}
		for rows.Next() {
			r := Result{Kind: src.kind, Score: 1}
			if err := rows.Scan(&r.Ref, &r.Name, &r.Snippet); err != nil {
				rows.Close()
				return nil, s.dbError("scan search result", err)
			}
			results = append(results, r)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, s.dbError("iterate search results", err)
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

func likeClause(terms []queryToken, cols []string) (string, []any) {
	var (
		clauses  []string
		args     []any
		positive bool
	)
	for _, t := range terms {
		pattern := "%" + strings.ToLower(strings.Trim(t.value, `"`)) + "%"
		ors := make([]string, len(cols))
		for i, col := range cols {
			ors[i] = "LOWER(" + col + ") LIKE ?"
			args = append(args, pattern)
		}
		clause := "(" + strings.Join(ors, " OR ") + ")"
		if t.isNegation {
			clause = "NOT " + clause
		} else {
			positive = true
		}
		clauses = append(clauses, clause)
	}
	if !positive {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

func normalizeScores(results []Result) {
	if len(results) == 0 {
		return
	}
	lo, hi := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		lo = min(lo, r.Score)
		hi = max(hi, r.Score)
	}
	for i := range results {
		if hi > lo {
			results[i].Score = (results[i].Score - lo) / (hi - lo)
		} else {
			results[i].Score = 1.0 // All scores the same
		}
	}
}
