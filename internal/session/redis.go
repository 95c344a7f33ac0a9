package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-PvP-server/internal/game"
)

const (
	redisKeyPrefix = "pvp:game:"
	redisIndexKey  = "pvp:games"
)

// Redis stores each match as a JSON blob under pvp:game:{id} and tracks ids
// in the pvp:games set. Update uses WATCH/MULTI so concurrent writers from
// several processes never overwrite each other.
type Redis struct {
	rdb     *redis.Client
	ttl     time.Duration
	retries int
}

// NewRedis wraps an existing client. A zero ttl keeps keys forever.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, retries: DefaultRetries}
}

func gameKey(id string) string { return redisKeyPrefix + strings.TrimSpace(id) }

func (r *Redis) Get(ctx context.Context, id string) (game.GameState, error) {
	return r.Update(ctx, id, func(cur game.GameState) (game.GameState, error) { return cur, nil })
}

func (r *Redis) Put(ctx context.Context, id string, s game.GameState) error {
	id, err := normID(id)
	if err != nil {
		return err
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(id), raw, r.ttl)
		pipe.SAdd(ctx, redisIndexKey, id)
		return nil
	})
	return err
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, gameKey(id))
		pipe.SRem(ctx, redisIndexKey, strings.TrimSpace(id))
		return nil
	})
	return err
}

func (r *Redis) Update(ctx context.Context, id string, fn UpdateFunc) (game.GameState, error) {
	id, err := normID(id)
	if err != nil {
		return game.GameState{}, err
	}
	key := gameKey(id)
	var out game.GameState
	txf := func(tx *redis.Tx) error {
		cur := fresh()
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decode(raw); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		enc, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, r.ttl)
			pipe.SAdd(ctx, redisIndexKey, id)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}
	for i := 0; i < r.retries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return game.GameState{}, err
		}
		return out, nil
	}
	return game.GameState{}, ErrConflict
}

func (r *Redis) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, gameKey(id)).Result()
	return n > 0, err
}

// IDs lists tracked ids whose key has not expired, pruning stale entries.
func (r *Redis) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	for _, id := range ids {
		ok, err := r.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			live = append(live, id)
			continue
		}
		_ = r.rdb.SRem(ctx, redisIndexKey, id).Err()
	}
	sort.Strings(live)
	return live, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	ids, err := r.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return err
	}
	keys := []string{redisIndexKey}
	for _, id := range ids {
		keys = append(keys, gameKey(id))
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }
