package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pointsScope/internal/model"
)

// Schema creates the ledger tables. Point columns hold raw integers at the
// points exponent.
const Schema = `
CREATE TABLE IF NOT EXISTS promoted_pools (
	pool_address      TEXT PRIMARY KEY,
	points_per_second NUMERIC NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leaderboard (
	kind            TEXT NOT NULL,
	address         TEXT NOT NULL,
	points          NUMERIC(78, 0) NOT NULL,
	last_24h_points NUMERIC(78, 0) NOT NULL,
	positions       INTEGER NOT NULL DEFAULT 0,
	rank            INTEGER NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, address)
);

CREATE TABLE IF NOT EXISTS job_state (
	name       TEXT PRIMARY KEY,
	progress   BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the rewards ledger.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadPromotedPools returns every pool with a reward rate.
func (s *Store) LoadPromotedPools(ctx context.Context) ([]model.PromotedPool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, points_per_second::text
		FROM promoted_pools
		WHERE points_per_second > 0
		ORDER BY pool_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query promoted pools: %w", err)
	}
	defer rows.Close()

	var out []model.PromotedPool
	for rows.Next() {
		var p model.PromotedPool
		if err := rows.Scan(&p.Address, &p.PointsPerSecond); err != nil {
			return nil, fmt.Errorf("scan promoted pool: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPromotedPools inserts or updates reward rates.
func (s *Store) UpsertPromotedPools(ctx context.Context, pools []model.PromotedPool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO promoted_pools (pool_address, points_per_second, updated_at)
			VALUES ($1, $2::text::numeric, now())
			ON CONFLICT (pool_address)
			DO UPDATE SET points_per_second = EXCLUDED.points_per_second, updated_at = now()
		`, model.NormalizeAddress(p.Address), p.PointsPerSecond)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadLeaderboard returns the stored rows of one board in rank order.
func (s *Store) LoadLeaderboard(ctx context.Context, kind model.Kind) ([]model.LeaderboardRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, points::text, last_24h_points::text, positions, rank
		FROM leaderboard
		WHERE kind = $1
		ORDER BY rank, address
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardRow
	for rows.Next() {
		row := model.LeaderboardRow{Kind: kind}
		if err := rows.Scan(&row.Address, &row.Points, &row.Last24hPoints, &row.Positions, &row.Rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadSnapshotTime returns when a board was last written.
func (s *Store) LoadSnapshotTime(ctx context.Context, kind model.Kind) (time.Time, bool, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT max(updated_at) FROM leaderboard WHERE kind = $1`, string(kind)).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return *ts, true, nil
}

// querier is the part of pgxpool.Pool and pgx.Tx the writers need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// upsertLeaderboard inserts or updates rows of one board.
func upsertLeaderboard(ctx context.Context, q querier, kind model.Kind, rows []model.LeaderboardRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO leaderboard (
				kind, address, points, last_24h_points, positions, rank, updated_at
			) VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6, now())
			ON CONFLICT (kind, address)
			DO UPDATE SET
				points = EXCLUDED.points,
				last_24h_points = EXCLUDED.last_24h_points,
				positions = EXCLUDED.positions,
				rank = EXCLUDED.rank,
				updated_at = now()
		`,
			string(kind),
			model.NormalizeAddress(row.Address),
			row.Points,
			row.Last24hPoints,
			row.Positions,
			row.Rank,
		)
	}

	br := q.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

// Settle writes both boards and the job progress in one transaction.
func (s *Store) Settle(ctx context.Context, st model.Settlement) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	// Rollback is a no-op once the transaction is committed.
	defer tx.Rollback(ctx)

	boards := []struct {
		kind model.Kind
		rows []model.LeaderboardRow
	}{
		{kind: model.KindLiquidity, rows: st.Liquidity},
		{kind: model.KindTotal, rows: st.Total},
	}
	for _, board := range boards {
		size := st.BatchSize
		if size <= 0 {
			size = len(board.rows)
		}
		for start := 0; start < len(board.rows); start += size {
			end := start + size
			if end > len(board.rows) {
				end = len(board.rows)
			}
			if err := upsertLeaderboard(ctx, tx, board.kind, board.rows[start:end]); err != nil {
				return fmt.Errorf("upsert %s board: %w", board.kind, err)
			}
		}
	}
	if st.Job != "" {
		if err := saveState(ctx, tx, st.Job, st.SettledAt); err != nil {
			return fmt.Errorf("save %s: %w", st.Job, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}

// LoadState returns the saved progress of a job.
func (s *Store) LoadState(ctx context.Context, name model.JobName) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("job name required")
	}
	var progress int64
	row := s.pool.QueryRow(ctx, `SELECT progress FROM job_state WHERE name=$1`, string(name))
	if err := row.Scan(&progress); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(progress), true, nil
}

// SaveState upserts the progress of a job.
func (s *Store) SaveState(ctx context.Context, name model.JobName, progress uint64) error {
	return saveState(ctx, s.pool, name, progress)
}

func saveState(ctx context.Context, q querier, name model.JobName, progress uint64) error {
	if name == "" {
		return fmt.Errorf("job name required")
	}
	_, err := q.Exec(ctx, `
		INSERT INTO job_state (name, progress, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET progress = EXCLUDED.progress, updated_at = now()
	`, string(name), int64(progress))
	return err
}
