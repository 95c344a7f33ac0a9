package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 24 * time.Hour
	maxRetries = 10
)

// store keeps lobby JSON under lobby:{id} and ids in the lobby:index set.
type store struct {
	rdb *redis.Client
	ttl time.Duration
}

func keyMeta(id string) string { return "lobby:" + strings.TrimSpace(id) }

const keyIndex = "lobby:index"

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *store) load(ctx context.Context, c getter, id string) (*Lobby, error) {
	raw, err := c.Get(ctx, keyMeta(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLobbyNotFound
	}
	if err != nil {
		return nil, err
	}
	var l Lobby
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *store) save(ctx context.Context, pipe redis.Pipeliner, l *Lobby) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	pipe.Set(ctx, keyMeta(l.ID), raw, s.ttl)
	pipe.SAdd(ctx, keyIndex, l.ID)
	pipe.Expire(ctx, keyIndex, s.ttl)
	return nil
}

// create writes l only if its key is free.
func (s *store) create(ctx context.Context, l *Lobby) (bool, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, keyMeta(l.ID), raw, s.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	if err := s.rdb.SAdd(ctx, keyIndex, l.ID).Err(); err != nil {
		return false, err
	}
	_ = s.rdb.Expire(ctx, keyIndex, s.ttl).Err()
	return true, nil
}

// mutate applies fn to the stored lobby under WATCH. When fn reports
// remove, the lobby is deleted instead of saved.
func (s *store) mutate(ctx context.Context, id string, fn func(l *Lobby) (remove bool, err error)) (*Lobby, bool, error) {
	key := keyMeta(id)
	var (
		out     *Lobby
		removed bool
	)
	txf := func(tx *redis.Tx) error {
		l, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		remove, err := fn(l)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if remove {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, keyIndex, l.ID)
				return nil
			}
			return s.save(ctx, pipe, l)
		})
		if err == nil {
			out, removed = l, remove
		}
		return err
	}
	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return out, removed, nil
	}
	return nil, false, redis.TxFailedErr
}

func (s *store) list(ctx context.Context) ([]*Lobby, error) {
	ids, err := s.rdb.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Lobby, 0, len(ids))
	for _, id := range ids {
		l, err := s.load(ctx, s.rdb, id)
		if errors.Is(err, ErrLobbyNotFound) {
			_ = s.rdb.SRem(ctx, keyIndex, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *store) clear(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return nil, err
	}
	keys := []string{keyIndex}
	for _, id := range ids {
		keys = append(keys, keyMeta(id))
	}
	return ids, s.rdb.Del(ctx, keys...).Err()
}
