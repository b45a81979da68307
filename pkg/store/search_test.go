package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Ref
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	importFixture(t, s)

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"unit name", "pound", []string{"LB", "LB_T"}},
		{"description", "troy", []string{"LB_T"}},
		{"exclusion", "pound -troy", []string{"LB"}},
		{"localized label", "meter", []string{"M"}},
		{"prefix", "kilomet", []string{"KiloM", "KiloM-PER-HR"}},
		{"only exclusions", "-pound", []string{}},
		{"empty", "   ", []string{}},
		{"no match", "furlong", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(ctx, tt.query, 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, refs(results))
		})
	}
}

func TestSearchRanking(t *testing.T) {
	s := openMemory(t)
	importFixture(t, s)

	results, err := s.Search(context.Background(), "energy", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Energy", results[0].Ref, "name matches outrank equivalence matches")
	assert.Equal(t, "quantity", results[0].Kind)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "Work", results[1].Ref)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestSearchLimit(t *testing.T) {
	s := openMemory(t)
	importFixture(t, s)

	results, err := s.Search(context.Background(), "quantity", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchSymbols(t *testing.T) {
	s := openMemory(t)
	importFixture(t, s)

	// Operator characters are quoted, never parsed by FTS5.
	for _, q := range []string{"m/s", `"unbalanced`, "N·m", "AND OR NOT", "(x)"} {
		_, err := s.Search(context.Background(), q, 10)
		assert.NoError(t, err, q)
	}
}

func TestSearchLike(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	importFixture(t, s)

	results, err := s.searchLike(ctx, parseQueryTokens("pound -troy"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"LB"}, refs(results))

	results, err = s.searchLike(ctx, parseQueryTokens("velocity"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Velocity"}, refs(results))

	results, err = s.searchLike(ctx, parseQueryTokens("-velocity"), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"metre", `"metre"*`},
		{"metre second", `"metre"* "second"*`},
		{`"square metre"`, `"square metre"`},
		{"pound -troy", `"pound"* NOT "troy"*`},
		{"-troy", ""},
		{`say "hi`, `"say"* "hi"`},
	}
	for _, tt := range tests {
		got := ftsQuery(parseQueryTokens(tt.query))
		assert.Equal(t, tt.expected, got, tt.query)
	}
}
