// Package session keeps one GameState per match id. Every backend offers the
// same lazy-create Get, wholesale Put, idempotent Delete and an atomic
// read-modify-write Update that request handlers go through.
package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/park285/Cheese-PvP-server/internal/game"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }

var (
	// ErrConflict is returned when Update lost every optimistic retry.
	ErrConflict = errf("session: concurrent update")
	ErrEmptyID  = errf("session: empty match id")
)

// DefaultRetries bounds optimistic Update attempts.
const DefaultRetries = 10

// UpdateFunc computes the next state from the current one. Returning an
// error aborts the update and leaves the stored state as it was. It may be
// invoked more than once when a backend retries.
type UpdateFunc func(cur game.GameState) (game.GameState, error)

// Store is the match session store.
type Store interface {
	// Get returns the state for id, creating and storing a fresh opening
	// position when none exists.
	Get(ctx context.Context, id string) (game.GameState, error)
	Put(ctx context.Context, id string, s game.GameState) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, fn UpdateFunc) (game.GameState, error)
	Exists(ctx context.Context, id string) (bool, error)
	IDs(ctx context.Context) ([]string, error)
	// Clear drops every stored match.
	Clear(ctx context.Context) error
	Close() error
}

func normID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	return id, nil
}

func fresh() game.GameState { return game.NewGame(nil) }

func encode(s game.GameState) ([]byte, error) { return json.Marshal(s) }

func decode(raw []byte) (game.GameState, error) {
	var s game.GameState
	err := json.Unmarshal(raw, &s)
	return s, err
}
