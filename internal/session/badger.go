package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/park285/Cheese-PvP-server/internal/game"
)

var badgerPrefix = []byte("game/")

// Badger persists matches in an embedded key-value store. Update runs inside
// a read-write transaction and retries on badger.ErrConflict.
type Badger struct {
	db      *badger.DB
	ttl     time.Duration
	retries int
}

// OpenBadger opens a store under dir. An empty dir runs in memory.
func OpenBadger(dir string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	if strings.TrimSpace(dir) == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, ttl: ttl, retries: DefaultRetries}, nil
}

func badgerKey(id string) []byte { return append(append([]byte{}, badgerPrefix...), id...) }

func (b *Badger) Get(ctx context.Context, id string) (game.GameState, error) {
	return b.Update(ctx, id, func(cur game.GameState) (game.GameState, error) { return cur, nil })
}

func (b *Badger) set(txn *badger.Txn, id string, s game.GameState) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}
	e := badger.NewEntry(badgerKey(id), raw)
	if b.ttl > 0 {
		e = e.WithTTL(b.ttl)
	}
	return txn.SetEntry(e)
}

func (b *Badger) Put(_ context.Context, id string, s game.GameState) error {
	id, err := normID(id)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error { return b.set(txn, id, s) })
}

func (b *Badger) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Delete(badgerKey(strings.TrimSpace(id))) })
}

func (b *Badger) Update(_ context.Context, id string, fn UpdateFunc) (game.GameState, error) {
	id, err := normID(id)
	if err != nil {
		return game.GameState{}, err
	}
	var out game.GameState
	for i := 0; i < b.retries; i++ {
		err = b.db.Update(func(txn *badger.Txn) error {
			cur := fresh()
			item, err := txn.Get(badgerKey(id))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					var derr error
					cur, derr = decode(val)
					return derr
				}); err != nil {
					return fmt.Errorf("decode %s: %w", id, err)
				}
			}
			next, err := fn(cur)
			if err != nil {
				return err
			}
			if err := b.set(txn, id, next); err != nil {
				return err
			}
			out = next
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return game.GameState{}, err
		}
		return out, nil
	}
	return game.GameState{}, ErrConflict
}

func (b *Badger) Exists(_ context.Context, id string) (bool, error) {
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(strings.TrimSpace(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// IDs returns ids in key order.
func (b *Badger) IDs(_ context.Context) ([]string, error) {
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(badgerPrefix):]))
		}
		return nil
	})
	return ids, err
}

func (b *Badger) Clear(_ context.Context) error { return b.db.DropPrefix(badgerPrefix) }

func (b *Badger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
