package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

// Store persists aggregated stats snapshots in PostgreSQL. It needs:
//
//	CREATE TABLE search_analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	keep   int
	logger *slog.Logger
}

const (
	insertSnapshot = `INSERT INTO search_analytics_snapshots (data, captured_at) VALUES ($1, $2)`
	pruneSnapshots = `DELETE FROM search_analytics_snapshots WHERE id NOT IN (SELECT id FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT $1)`
	latestSnapshot = `SELECT data FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT 1`
)

// NewStore returns a Store that keeps the newest keep snapshots (all if
// keep <= 0).
func NewStore(db *postgres.Client, keep int) *Store {
	return &Store{
		db:     db,
		keep:   keep,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot inserts stats and prunes old rows in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertSnapshot, data, time.Now().UTC()); err != nil {
			return fmt.Errorf("saving analytics snapshot: %w", err)
		}
		if s.keep > 0 {
			if _, err := tx.ExecContext(ctx, pruneSnapshots, s.keep); err != nil {
				return fmt.Errorf("pruning analytics snapshots: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// LatestSnapshot returns nil, nil when no snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx, latestSnapshot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// RunPeriodic snapshots agg every interval until ctx ends, then writes a
// final snapshot.
func (s *Store) RunPeriodic(ctx context.Context, agg *Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
