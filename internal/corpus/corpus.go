// Package corpus loads the documents the search index is built from. Sources
// are local files (JSON, JSON lines, YAML or plain text) or a Postgres query.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Document is a single searchable text with an optional external id.
type Document struct {
	ID   string `json:"id" yaml:"id"`
	Body string `json:"body" yaml:"body"`
}

func (d Document) Text() string       { return d.Body }
func (d Document) DocumentID() string { return d.ID }

// Querier is the subset of *sql.DB the Postgres loader needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadFile reads one file, choosing the format from its extension. Documents
// without an id are numbered "<base>:<n>" in file order.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrCorpusLoad, path, err)
	}

	var docs []Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &docs)
	case ".jsonl", ".ndjson":
		docs, err = decodeJSONLines(data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &docs)
	default:
		docs, err = decodeLines(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", apperrors.ErrCorpusLoad, path, err)
	}

	base := filepath.Base(path)
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = base + ":" + strconv.Itoa(i+1)
		}
	}
	return docs, nil
}

func decodeJSONLines(data []byte) ([]Document, error) {
	var docs []Document
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var d Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	return docs, sc.Err()
}

func decodeLines(data []byte) ([]Document, error) {
	var docs []Document
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		docs = append(docs, Document{Body: text})
	}
	return docs, sc.Err()
}

// LoadFiles reads paths concurrently and concatenates the results in path
// order.
func LoadFiles(ctx context.Context, paths []string) ([]Document, error) {
	parts := make([][]Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, err := LoadFile(p)
			if err != nil {
				return err
			}
			parts[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Document
	for _, part := range parts {
		all = append(all, part...)
	}
	return all, nil
}

// LoadPostgres runs query, which must select (id, body), and returns rows in
// the order the query yields them. A NULL body is indexed as empty text.
func LoadPostgres(ctx context.Context, db Querier, query string) ([]Document, error) {
	var docs []Document
	err := resilience.Retry(ctx, "corpus-postgres", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		docs, err = queryDocuments(ctx, db, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorpusLoad, err)
	}
	return docs, nil
}

func queryDocuments(ctx context.Context, db Querier, query string) ([]Document, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var body sql.NullString
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		docs = append(docs, Document{ID: id, Body: body.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	return docs, nil
}

// Load dispatches on cfg.Source. db may be nil unless the source is
// postgres. An empty result is reported as ErrCorpusEmpty.
func Load(ctx context.Context, cfg config.CorpusConfig, db Querier) ([]Document, error) {
	log := logger.WithComponent("corpus")

	var (
		docs []Document
		err  error
	)
	switch cfg.Source {
	case "", SourceFile:
		if len(cfg.Paths) == 0 {
			return nil, fmt.Errorf("%w: no corpus paths configured", apperrors.ErrInvalidInput)
		}
		docs, err = LoadFiles(ctx, cfg.Paths)
	case SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres corpus source without a database", apperrors.ErrInvalidInput)
		}
		docs, err = LoadPostgres(ctx, db, cfg.Query)
	default:
		return nil, fmt.Errorf("%w: unknown corpus source %q", apperrors.ErrInvalidInput, cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.ErrCorpusEmpty
	}
	log.Info("corpus loaded", "source", cfg.Source, "documents", len(docs))
	return docs, nil
}
