package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("the cat sat\nthe dog sat\nbirds fly\n"), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := newApp(&buf).Run(append([]string{"textsearch"}, args...))
	return buf.String(), err
}

func TestQueryCommand(t *testing.T) {
	path := writeCorpus(t)

	t.Run("exact", func(t *testing.T) {
		out, err := run(t, "query", "--corpus", path, "cat")
		require.NoError(t, err)
		assert.Contains(t, out, `1 hit(s) for "cat" (exact)`)
		assert.Contains(t, out, "the cat sat")
	})

	t.Run("fuzzy", func(t *testing.T) {
		out, err := run(t, "query", "--corpus", path, "--mode", "fuzzy", "car")
		require.NoError(t, err)
		assert.Contains(t, out, `2 hit(s) for "car" (fuzzy)`)
		assert.NotContains(t, out, "birds fly")
	})

	t.Run("empty query returns all", func(t *testing.T) {
		out, err := run(t, "query", "--corpus", path, "--all")
		require.NoError(t, err)
		assert.Contains(t, out, "3 hit(s)")
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := run(t, "query", "--corpus", path, "--mode", "regex", "cat")
		assert.Error(t, err)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, "query", "--corpus", path, "--json", "dog")
		require.NoError(t, err)
		assert.Contains(t, out, `"total_hits": 1`)
	})
}

func TestDistanceCommand(t *testing.T) {
	out, err := run(t, "distance", "--ops", "kitten", "sitting")
	require.NoError(t, err)
	assert.Contains(t, out, `distance("kitten", "sitting") = 3`)
	assert.Contains(t, out, "summary:")

	_, err = run(t, "distance", "only-one")
	assert.Error(t, err)
}

func TestDistanceMatrix(t *testing.T) {
	out, err := run(t, "distance", "--matrix", "ab", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "  0   1   2")
}

func TestStatsCommand(t *testing.T) {
	path := writeCorpus(t)
	out, err := run(t, "stats", "--corpus", path, "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "documents: 3")
	assert.Contains(t, out, "terms:     6")
	assert.Contains(t, out, "top terms:")
	assert.Contains(t, out, "sat")
}

func TestAnalyticsRejectsBadInterval(t *testing.T) {
	_, err := run(t, "analytics", "--report-interval", "0s")
	assert.Error(t, err)
}
