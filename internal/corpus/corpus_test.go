package corpus

import (
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/testutil/sqlfake"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    []Document
	}{
		{
			name:    "json",
			file:    "docs.json",
			content: `[{"id":"a","body":"the cat sat"},{"body":"the dog"}]`,
			want:    []Document{{ID: "a", Body: "the cat sat"}, {ID: "docs.json:2", Body: "the dog"}},
		},
		{
			name:    "jsonl",
			file:    "docs.jsonl",
			content: "{\"id\":\"a\",\"body\":\"one\"}\n\n{\"id\":\"b\",\"body\":\"two\"}\n",
			want:    []Document{{ID: "a", Body: "one"}, {ID: "b", Body: "two"}},
		},
		{
			name:    "yaml",
			file:    "docs.yaml",
			content: "- id: x\n  body: birds fly\n- body: fish swim\n",
			want:    []Document{{ID: "x", Body: "birds fly"}, {ID: "docs.yaml:2", Body: "fish swim"}},
		},
		{
			name:    "plain lines",
			file:    "docs.txt",
			content: "first line\n\n  second line  \n",
			want:    []Document{{ID: "docs.txt:1", Body: "first line"}, {ID: "docs.txt:2", Body: "second line"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := LoadFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, docs)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrCorpusLoad)

	_, err = LoadFile(writeFile(t, "bad.jsonl", "{\"id\":\"a\"}\nnot json\n"))
	assert.ErrorIs(t, err, apperrors.ErrCorpusLoad)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadFilesPreservesOrder(t *testing.T) {
	a := writeFile(t, "a.txt", "alpha\nbeta")
	b := writeFile(t, "b.txt", "gamma")

	docs, err := LoadFiles(context.Background(), []string{b, a})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "gamma", docs[0].Body)
	assert.Equal(t, "alpha", docs[1].Body)
	assert.Equal(t, "beta", docs[2].Body)
}

func TestLoadFilesFailsOnAnyError(t *testing.T) {
	a := writeFile(t, "a.txt", "alpha")
	_, err := LoadFiles(context.Background(), []string{a, filepath.Join(t.TempDir(), "nope.txt")})
	assert.ErrorIs(t, err, apperrors.ErrCorpusLoad)
}

const query = "SELECT id, body FROM documents ORDER BY id"

func TestLoadPostgres(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	fake.On(query, sqlfake.Result{
		Columns: []string{"id", "body"},
		Rows: [][]driver.Value{
			{"1", "the cat sat"},
			{"2", nil},
			{"3", "birds fly"},
		},
	})

	docs, err := LoadPostgres(context.Background(), db, query)
	require.NoError(t, err)
	assert.Equal(t, []Document{
		{ID: "1", Body: "the cat sat"},
		{ID: "2", Body: ""},
		{ID: "3", Body: "birds fly"},
	}, docs)
}

func TestLoadPostgresError(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	fake.On(query, sqlfake.Result{Err: errors.New("relation does not exist")})

	_, err := LoadPostgres(context.Background(), db, query)
	assert.ErrorIs(t, err, apperrors.ErrCorpusLoad)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestLoadDispatch(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "c.txt", "one\ntwo")

	docs, err := Load(ctx, config.CorpusConfig{Source: "file", Paths: []string{path}}, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = Load(ctx, config.CorpusConfig{Source: "s3"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Load(ctx, config.CorpusConfig{Source: "postgres", Query: query}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Load(ctx, config.CorpusConfig{Source: "file"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	empty := writeFile(t, "empty.txt", "\n\n")
	_, err = Load(ctx, config.CorpusConfig{Source: "file", Paths: []string{empty}}, nil)
	assert.ErrorIs(t, err, apperrors.ErrCorpusEmpty)
}

func TestLoadDispatchPostgres(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	fake.On(query, sqlfake.Result{
		Columns: []string{"id", "body"},
		Rows:    [][]driver.Value{{"1", "hello world"}},
	})

	docs, err := Load(context.Background(), config.CorpusConfig{Source: SourcePostgres, Query: query}, db)
	require.NoError(t, err)
	assert.Equal(t, []Document{{ID: "1", Body: "hello world"}}, docs)
}

func TestDocumentInterfaces(t *testing.T) {
	d := Document{ID: "a", Body: "text"}
	assert.Equal(t, "text", d.Text())
	assert.Equal(t, "a", d.DocumentID())
}
