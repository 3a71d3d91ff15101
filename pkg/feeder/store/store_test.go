package store

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-push/pkg/config"
	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

func mustID(t *testing.T, name string) feed.ID {
	t.Helper()
	id, err := feed.IDFromName(name)
	require.NoError(t, err)
	return id
}

func update(t *testing.T, name string, v int64) gate.Update {
	t.Helper()
	return gate.Update{ID: mustID(t, name), Encoded: big.NewInt(v)}
}

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, s.Record(ctx, []gate.Update{update(t, "BTC/USD", 100), update(t, "ETH/USD", 7)}, nil))
	require.NoError(t, s.Record(ctx, []gate.Update{update(t, "BTC/USD", 101)}, []feed.ID{mustID(t, "ETH/USD")}))

	state, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, state, 2)
	assert.Equal(t, int64(101), state[mustID(t, "BTC/USD")].Int64())
	assert.Equal(t, int64(7), state[mustID(t, "ETH/USD")].Int64())

	stale, err := s.Stale(ctx)
	require.NoError(t, err)
	assert.Equal(t, []feed.ID{mustID(t, "ETH/USD")}, stale)

	// a fresh value clears the stale mark
	require.NoError(t, s.Record(ctx, []gate.Update{update(t, "ETH/USD", 8)}, nil))
	stale, err = s.Stale(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)

	require.NoError(t, s.Record(ctx, nil, nil))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(nil))
}

func TestMemoryStore_SnapshotIsIsolated(t *testing.T) {
	initial := feed.State{mustID(t, "BTC/USD"): big.NewInt(1)}
	s := NewMemoryStore(initial)
	initial[mustID(t, "BTC/USD")].SetInt64(5)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap[mustID(t, "BTC/USD")].Int64())

	snap[mustID(t, "BTC/USD")].SetInt64(9)
	again, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[mustID(t, "BTC/USD")].Int64())
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t)
	exerciseStore(t, s)

	assert.Equal(t, "101", mr.HGet(DefaultRedisKey, mustID(t, "BTC/USD").Hex()))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.HSet(DefaultRedisKey, mustID(t, "BTC/USD").Hex(), "not-a-number")

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func newPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewPostgresStoreFromDB(sqlx.NewDb(db, "postgres"), "")
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "published_feeds"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Snapshot(t *testing.T) {
	s, mock := newPostgresStore(t)
	btc := mustID(t, "BTC/USD")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT feed_id, value FROM "published_feeds"`)).
		WillReturnRows(sqlmock.NewRows([]string{"feed_id", "value"}).
			AddRow(btc.Hex(), "50005000000000000000000"))

	state, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, state, 1)
	assert.Equal(t, "50005000000000000000000", state[btc].String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SnapshotCorrupt(t *testing.T) {
	s, mock := newPostgresStore(t)
	mock.ExpectQuery("SELECT feed_id, value").
		WillReturnRows(sqlmock.NewRows([]string{"feed_id", "value"}).AddRow("0xzz", "1"))

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestPostgresStore_Record(t *testing.T) {
	s, mock := newPostgresStore(t)
	btc := mustID(t, "BTC/USD")
	eth := mustID(t, "ETH/USD")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "published_feeds"`)).
		WithArgs(btc.Hex(), "BTC/USD", "100").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "published_feeds" SET stale = TRUE`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Record(context.Background(), []gate.Update{update(t, "BTC/USD", 100)}, []feed.ID{eth})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRollsBack(t *testing.T) {
	s, mock := newPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := s.Record(context.Background(), []gate.Update{update(t, "BTC/USD", 100)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BTC/USD")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stale(t *testing.T) {
	s, mock := newPostgresStore(t)
	eth := mustID(t, "ETH/USD")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT feed_id FROM "published_feeds" WHERE stale`)).
		WillReturnRows(sqlmock.NewRows([]string{"feed_id"}).AddRow(eth.Hex()))

	stale, err := s.Stale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []feed.ID{eth}, stale)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StateConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), config.StateConfig{Type: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownType)
}
