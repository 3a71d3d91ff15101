package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

// DefaultRedisKey is the hash holding published values.
const DefaultRedisKey = "oracle:feeds"

// RedisStore keeps published values in a hash of hex feed id to base-10
// encoded value, and stale marks in a companion set.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(client, opts.Key), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) staleKey() string {
	return r.key + ":stale"
}

// Snapshot reads the value hash.
func (r *RedisStore) Snapshot(ctx context.Context) (feed.State, error) {
	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed state: %w", err)
	}
	state := make(feed.State, len(entries))
	for field, raw := range entries {
		id, err := feed.ParseHex(field)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCorruptValue, field, err)
		}
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %s = %q", ErrCorruptValue, id.Name(), raw)
		}
		state[id] = v
	}
	return state, nil
}

// Record writes a batch atomically.
func (r *RedisStore) Record(ctx context.Context, updates []gate.Update, missing []feed.ID) error {
	if len(updates) == 0 && len(missing) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(updates) > 0 {
			values := make([]interface{}, 0, len(updates)*2)
			ids := make([]interface{}, 0, len(updates))
			for _, u := range updates {
				values = append(values, u.ID.Hex(), u.Encoded.String())
				ids = append(ids, u.ID.Hex())
			}
			pipe.HSet(ctx, r.key, values...)
			pipe.SRem(ctx, r.staleKey(), ids...)
		}
		if len(missing) > 0 {
			ids := make([]interface{}, len(missing))
			for i, id := range missing {
				ids[i] = id.Hex()
			}
			pipe.SAdd(ctx, r.staleKey(), ids...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record feed state: %w", err)
	}
	return nil
}

// Stale reads the stale set.
func (r *RedisStore) Stale(ctx context.Context) ([]feed.ID, error) {
	members, err := r.client.SMembers(ctx, r.staleKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stale feeds: %w", err)
	}
	ids := make([]feed.ID, 0, len(members))
	for _, m := range members {
		id, err := feed.ParseHex(m)
		if err != nil {
			return nil, fmt.Errorf("%w: stale member %q: %v", ErrCorruptValue, m, err)
		}
		ids = append(ids, id)
	}
	feed.SortIDs(ids)
	return ids, nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
