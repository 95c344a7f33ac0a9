// Package lobby is the Redis-backed lobby directory: it creates matches,
// binds players to color slots and tracks whether a match is playing.
package lobby

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

type Directory struct {
	store    *store
	defaults *game.TimeControl
	coin     func() bool
	newID    func() string
}

// NewDirectory wraps rdb. A zero ttl falls back to 24h. defaults, when set,
// is copied into every new lobby as its time control.
func NewDirectory(rdb *redis.Client, ttl time.Duration, defaults *game.TimeControl) *Directory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Directory{
		store:    &store{rdb: rdb, ttl: ttl},
		defaults: defaults,
		coin:     secureCoin,
		newID:    uuid.NewString,
	}
}

func secureCoin() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	return err == nil && n.Int64() == 1
}

func (d *Directory) Create(ctx context.Context, name, host string) (*Lobby, error) {
	name, host = strings.TrimSpace(name), strings.TrimSpace(host)
	if name == "" || host == "" {
		return nil, ErrInvalidArgs
	}
	l := &Lobby{
		Name:      name,
		Host:      host,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		Slots:     Slots{Slot1: &Slot{Player: host, Color: board.White}},
	}
	if d.defaults != nil {
		tc := *d.defaults
		l.TimeControl = &tc
	}
	for i := 0; i < 5; i++ {
		l.ID = d.newID()
		ok, err := d.store.create(ctx, l)
		if err != nil {
			return nil, err
		}
		if ok {
			obslog.L().Info("lobby_create", zap.String("lobby_id", l.ID), zap.String("host", host))
			return l, nil
		}
	}
	return nil, fmt.Errorf("failed to allocate lobby id")
}

func (d *Directory) Get(ctx context.Context, id string) (*Lobby, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrLobbyNotFound
	}
	return d.store.load(ctx, d.store.rdb, id)
}

// List returns lobbies oldest first. An empty status lists all of them.
func (d *Directory) List(ctx context.Context, status Status) ([]*Lobby, error) {
	all, err := d.store.list(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Seating implements the slot lookup the match layer consumes.
func (d *Directory) Seating(ctx context.Context, id string) (Seating, error) {
	l, err := d.Get(ctx, id)
	if err != nil {
		return Seating{}, err
	}
	return l.Seating(), nil
}

func (d *Directory) update(ctx context.Context, id string, fn func(l *Lobby) error) (*Lobby, error) {
	l, _, err := d.store.mutate(ctx, id, func(l *Lobby) (bool, error) { return false, fn(l) })
	return l, err
}

func requirePlayer(player string) (string, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return "", ErrInvalidArgs
	}
	return player, nil
}

// Join puts player in the free slot. A fresh slot takes white for slot1 and
// black for slot2 unless a color was already assigned.
func (d *Directory) Join(ctx context.Context, id, player string) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	l, err := d.update(ctx, id, func(l *Lobby) error {
		switch {
		case l.Has(player):
			return ErrAlreadyInLobby
		case l.Full():
			return ErrLobbyFull
		case l.Status == StatusPlaying:
			return ErrGameStarted
		}
		if l.Slots.Slot1 == nil || l.Slots.Slot1.Player == "" {
			l.Slots.Slot1 = fill(l.Slots.Slot1, player, board.White)
			return nil
		}
		l.Slots.Slot2 = fill(l.Slots.Slot2, player, l.Slots.Slot1.Color.Opponent())
		return nil
	})
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("lobby_id", id), zap.String("player", player), zap.Error(err))
		return nil, err
	}
	obslog.L().Info("lobby_join", zap.String("lobby_id", l.ID), zap.String("player", player))
	return l, nil
}

func fill(s *Slot, player string, def board.Color) *Slot {
	if s != nil && s.Color.Valid() {
		return &Slot{Player: player, Color: s.Color}
	}
	return &Slot{Player: player, Color: def}
}

// Leave removes player. When the host leaves the lobby is deleted and
// deleted is true.
func (d *Directory) Leave(ctx context.Context, id, player string) (l *Lobby, deleted bool, err error) {
	player, err = requirePlayer(player)
	if err != nil {
		return nil, false, err
	}
	l, deleted, err = d.store.mutate(ctx, id, func(l *Lobby) (bool, error) {
		if l.Host == player {
			return true, nil
		}
		if l.Slots.Slot2 == nil || l.Slots.Slot2.Player != player {
			return false, ErrNotInLobby
		}
		l.Slots.Slot2 = nil
		l.Status = StatusWaiting
		return false, nil
	})
	if err != nil {
		return nil, false, err
	}
	obslog.L().Info("lobby_leave", zap.String("lobby_id", l.ID), zap.String("player", player), zap.Bool("deleted", deleted))
	return l, deleted, nil
}

// Delete removes the lobby on behalf of its host.
func (d *Directory) Delete(ctx context.Context, id, player string) error {
	player, err := requirePlayer(player)
	if err != nil {
		return err
	}
	_, _, err = d.store.mutate(ctx, id, func(l *Lobby) (bool, error) {
		if l.Host != player {
			return false, ErrNotHost
		}
		return true, nil
	})
	if err == nil {
		obslog.L().Info("lobby_delete", zap.String("lobby_id", id), zap.String("player", player))
	}
	return err
}

// SetColor assigns color to target and the opposite color to the other
// slot. "random" flips a coin.
func (d *Directory) SetColor(ctx context.Context, id, player, target, color string) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if target == "" || strings.TrimSpace(color) == "" {
		return nil, ErrInvalidArgs
	}
	c, ok := board.ParseColor(color)
	if !ok {
		if !strings.EqualFold(strings.TrimSpace(color), "random") {
			return nil, ErrInvalidColor
		}
		c = board.White
		if d.coin() {
			c = board.Black
		}
	}
	return d.update(ctx, id, func(l *Lobby) error {
		if l.Host != player {
			return ErrNotHost
		}
		if l.Status == StatusPlaying {
			return ErrGameStarted
		}
		if !l.Has(target) {
			return ErrNotInLobby
		}
		for _, s := range l.slots() {
			if s == nil {
				continue
			}
			if s.Player == target {
				s.Color = c
			} else {
				s.Color = c.Opponent()
			}
		}
		return nil
	})
}

// Randomize flips a coin to decide who plays white.
func (d *Directory) Randomize(ctx context.Context, id, player string) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	swap := d.coin()
	return d.update(ctx, id, func(l *Lobby) error {
		if l.Host != player {
			return ErrNotHost
		}
		if l.Status == StatusPlaying {
			return ErrGameStarted
		}
		if !l.Full() {
			return ErrNeedSecondPlayer
		}
		l.Slots.Slot1.Color, l.Slots.Slot2.Color = board.White, board.Black
		if swap {
			l.Slots.Slot1.Color, l.Slots.Slot2.Color = board.Black, board.White
		}
		return nil
	})
}

// SetTimeControl stores tc for the next start. Only the host may change it
// and only while waiting.
func (d *Directory) SetTimeControl(ctx context.Context, id, player string, tc game.TimeControl) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return d.update(ctx, id, func(l *Lobby) error {
		if l.Host != player {
			return ErrNotHost
		}
		if l.Status == StatusPlaying {
			return ErrGameStarted
		}
		l.TimeControl = &tc
		return nil
	})
}

// MarkPlaying moves a full lobby into the playing state.
func (d *Directory) MarkPlaying(ctx context.Context, id, player string) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	l, err := d.update(ctx, id, func(l *Lobby) error {
		if l.Host != player {
			return ErrNotHost
		}
		if l.Status == StatusPlaying {
			return ErrGameStarted
		}
		if !l.Full() {
			return ErrNeedSecondPlayer
		}
		l.Status = StatusPlaying
		l.Result = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_start", zap.String("lobby_id", l.ID),
		zap.String("white", l.PlayerFor(board.White)), zap.String("black", l.PlayerFor(board.Black)))
	return l, nil
}

// AbortStart returns a lobby to waiting after MarkPlaying when the game
// itself could not be written.
func (d *Directory) AbortStart(ctx context.Context, id string) error {
	_, err := d.update(ctx, id, func(l *Lobby) error {
		if l.Status == StatusPlaying {
			l.Status = StatusWaiting
		}
		return nil
	})
	if err != nil {
		return err
	}
	obslog.L().Warn("lobby_start_aborted", zap.String("lobby_id", id))
	return nil
}

// Finish returns a playing lobby to waiting and records winner text.
func (d *Directory) Finish(ctx context.Context, id, player, winner string) (*Lobby, error) {
	player, err := requirePlayer(player)
	if err != nil {
		return nil, err
	}
	l, err := d.update(ctx, id, func(l *Lobby) error {
		if !l.Has(player) {
			return ErrNotInLobby
		}
		if l.Status != StatusPlaying {
			return ErrNotPlaying
		}
		l.Status = StatusWaiting
		l.Result = WinnerText(winner)
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_finish", zap.String("lobby_id", l.ID), zap.String("player", player), zap.String("result", l.Result))
	return l, nil
}

// Clear removes every lobby and returns the ids that were dropped.
func (d *Directory) Clear(ctx context.Context) ([]string, error) {
	return d.store.clear(ctx)
}
