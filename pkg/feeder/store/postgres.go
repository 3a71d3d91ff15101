package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

// DefaultPostgresTable is the table holding published values.
const DefaultPostgresTable = "published_feeds"

// PostgresStore keeps published values in one row per feed.
type PostgresStore struct {
	db    *sqlx.DB
	table string
}

var _ Store = (*PostgresStore)(nil)

type feedRow struct {
	FeedID string `db:"feed_id"`
	Value  string `db:"value"`
}

// NewPostgresStore connects with dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s := NewPostgresStoreFromDB(db, table)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an open database handle.
func NewPostgresStoreFromDB(db *sqlx.DB, table string) *PostgresStore {
	if table == "" {
		table = DefaultPostgresTable
	}
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

// Migrate creates the feed table.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	feed_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	value      NUMERIC(78, 0) NOT NULL,
	stale      BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create feed table: %w", err)
	}
	return nil
}

// Snapshot reads every stored value.
func (p *PostgresStore) Snapshot(ctx context.Context) (feed.State, error) {
	var rows []feedRow
	query := fmt.Sprintf("SELECT feed_id, value FROM %s", p.table)
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to read feed state: %w", err)
	}
	state := make(feed.State, len(rows))
	for _, row := range rows {
		id, err := feed.ParseHex(row.FeedID)
		if err != nil {
			return nil, fmt.Errorf("%w: feed_id %q: %v", ErrCorruptValue, row.FeedID, err)
		}
		v, ok := new(big.Int).SetString(row.Value, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %s = %q", ErrCorruptValue, id.Name(), row.Value)
		}
		state[id] = v
	}
	return state, nil
}

// Record upserts updates and marks missing feeds stale in one transaction.
func (p *PostgresStore) Record(ctx context.Context, updates []gate.Update, missing []feed.ID) (err error) {
	if len(updates) == 0 && len(missing) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	upsert := fmt.Sprintf(`INSERT INTO %s (feed_id, name, value, stale, updated_at)
VALUES ($1, $2, $3, FALSE, now())
ON CONFLICT (feed_id) DO UPDATE SET value = EXCLUDED.value, stale = FALSE, updated_at = now()`, p.table)
	for _, u := range updates {
		if _, err = tx.ExecContext(ctx, upsert, u.ID.Hex(), u.ID.Name(), u.Encoded.String()); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", u.ID.Name(), err)
		}
	}

	if len(missing) > 0 {
		ids := make([]string, len(missing))
		for i, id := range missing {
			ids[i] = id.Hex()
		}
		query := fmt.Sprintf("UPDATE %s SET stale = TRUE, updated_at = now() WHERE feed_id = ANY($1)", p.table)
		if _, err = tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
			return fmt.Errorf("failed to mark stale feeds: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feed state: %w", err)
	}
	return nil
}

// Stale lists feeds marked stale.
func (p *PostgresStore) Stale(ctx context.Context) ([]feed.ID, error) {
	var hexes []string
	query := fmt.Sprintf("SELECT feed_id FROM %s WHERE stale ORDER BY name", p.table)
	if err := p.db.SelectContext(ctx, &hexes, query); err != nil {
		return nil, fmt.Errorf("failed to read stale feeds: %w", err)
	}
	ids := make([]feed.ID, 0, len(hexes))
	for _, h := range hexes {
		id, err := feed.ParseHex(h)
		if err != nil {
			return nil, fmt.Errorf("%w: feed_id %q: %v", ErrCorruptValue, h, err)
		}
		ids = append(ids, id)
	}
	feed.SortIDs(ids)
	return ids, nil
}

// Close closes the database handle.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
