// Package match runs the request-level operations of a match: it resolves
// the caller's color through the lobby seating, applies moves and ticks
// through the session store in one atomic update, and fans out the result.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/internal/render"
	"github.com/park285/Cheese-PvP-server/internal/rules"
	"github.com/park285/Cheese-PvP-server/internal/session"
)

var (
	ErrGameNotFound  = errf("game not found")
	ErrLobbyNotReady = errf("both colors must be taken before the game starts")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }

// Seats resolves who plays which color in a match.
type Seats interface {
	Seating(ctx context.Context, matchID string) (lobby.Seating, error)
}

// Publisher receives every new state and the end of a match.
type Publisher interface {
	Publish(matchID string, s game.GameState)
	Ended(matchID string)
}

// ResultSaver archives finished matches.
type ResultSaver interface {
	SaveResult(ctx context.Context, r Result) error
}

type Renderer interface {
	RenderPNG(ctx context.Context, s game.GameState, opts render.Options) ([]byte, error)
}

type Manager struct {
	store    session.Store
	seats    Seats
	renderer Renderer
	feed     Publisher
	repo     ResultSaver
	newID    func() string
}

func NewManager(store session.Store, seats Seats) *Manager {
	return &Manager{store: store, seats: seats, renderer: render.New(), newID: uuid.NewString}
}

// AttachFeed wires a live feed; nil disables it.
func (m *Manager) AttachFeed(p Publisher) { m.feed = p }

// AttachRepository wires the result archive; nil disables it.
func (m *Manager) AttachRepository(r ResultSaver) { m.repo = r }

func (m *Manager) AttachRenderer(r Renderer) {
	if r != nil {
		m.renderer = r
	}
}

func (m *Manager) seating(ctx context.Context, id string) (lobby.Seating, error) {
	if strings.TrimSpace(id) == "" {
		return lobby.Seating{}, ErrGameNotFound
	}
	seat, err := m.seats.Seating(ctx, id)
	if errors.Is(err, lobby.ErrLobbyNotFound) {
		return lobby.Seating{}, ErrGameNotFound
	}
	return seat, err
}

// playing returns the seating of a started match.
func (m *Manager) playing(ctx context.Context, id string) (lobby.Seating, error) {
	seat, err := m.seating(ctx, id)
	if err != nil {
		return seat, err
	}
	if !seat.Playing {
		return seat, ErrGameNotFound
	}
	return seat, nil
}

// State returns the current state of a started match.
func (m *Manager) State(ctx context.Context, id string) (game.GameState, error) {
	if _, err := m.playing(ctx, id); err != nil {
		return game.GameState{}, err
	}
	return m.store.Get(ctx, id)
}

// Move applies mv on behalf of identity.
func (m *Manager) Move(ctx context.Context, id, identity string, mv game.Move) (game.GameState, error) {
	seat, err := m.playing(ctx, id)
	if err != nil {
		return game.GameState{}, err
	}
	color, ok := seat.ColorOf(identity)
	if !ok {
		return game.GameState{}, game.ErrPlayerNotFound
	}
	next, err := m.store.Update(ctx, id, func(cur game.GameState) (game.GameState, error) {
		return game.ApplyMove(cur, color, mv)
	})
	if err != nil {
		obslog.L().Debug("match_move_rejected",
			zap.String("match_id", id),
			zap.String("player", identity),
			zap.String("piece", mv.PieceID),
			zap.String("target", mv.TargetPosition.String()),
			zap.Error(err),
		)
		return game.GameState{}, err
	}
	fields := []zap.Field{
		zap.String("match_id", id),
		zap.String("player", identity),
		zap.String("color", string(color)),
		zap.String("piece", next.LastMove.PieceID),
		zap.String("target", next.LastMove.TargetPosition.String()),
		zap.Int("move_count", next.MoveCount),
		zap.String("placement", board.Placement(next.Pieces)),
	}
	if n := len(next.CapturedPieces.By(color)); n > 0 {
		fields = append(fields, zap.Int("captured", n))
	}
	obslog.L().Info("match_move", fields...)
	m.publish(id, next)
	return next, nil
}

// Tick spends one second of color's clock. identity must own color.
func (m *Manager) Tick(ctx context.Context, id, identity, color string) (game.GameState, error) {
	seat, err := m.playing(ctx, id)
	if err != nil {
		return game.GameState{}, err
	}
	want, ok := board.ParseColor(color)
	if !ok {
		return game.GameState{}, game.ErrInvalidPlayerColor
	}
	if have, ok := seat.ColorOf(identity); !ok || have != want {
		return game.GameState{}, game.ErrInvalidPlayerColor
	}
	next, err := m.store.Update(ctx, id, func(cur game.GameState) (game.GameState, error) {
		return game.Tick(cur, want)
	})
	if err != nil {
		return game.GameState{}, err
	}
	obslog.L().Debug("match_tick",
		zap.String("match_id", id),
		zap.String("color", string(want)),
		zap.Int("remaining", next.TimeRemaining.For(want)),
	)
	if next.Over() {
		obslog.L().Info("match_timeout", zap.String("match_id", id), zap.String("status", next.Status))
		m.archive(ctx, id, seat, next, next.Winner.Title(), "timeout")
	}
	m.publish(id, next)
	return next, nil
}

// Start writes a fresh opening position with tc (nil for untimed). Both
// colors must be bound to a player.
func (m *Manager) Start(ctx context.Context, id string, tc *game.TimeControl) (game.GameState, error) {
	seat, err := m.seating(ctx, id)
	if err != nil {
		return game.GameState{}, err
	}
	if seat.White == "" || seat.Black == "" {
		return game.GameState{}, ErrLobbyNotReady
	}
	if tc != nil {
		if err := tc.Validate(); err != nil {
			return game.GameState{}, err
		}
	}
	s := game.NewGame(tc)
	s.GameID = m.newID()
	if err := m.store.Put(ctx, id, s); err != nil {
		return game.GameState{}, err
	}
	fields := []zap.Field{
		zap.String("match_id", id),
		zap.String("game_id", s.GameID),
		zap.String("white", seat.White),
		zap.String("black", seat.Black),
	}
	if tc != nil {
		fields = append(fields, zap.String("time_control", tc.String()))
	}
	obslog.L().Info("match_start", fields...)
	m.publish(id, s)
	return s, nil
}

// End deletes the match state and archives the result reported by a
// participant. Ending an unknown match is a no-op.
func (m *Manager) End(ctx context.Context, id, winner string) error {
	exists, err := m.store.Exists(ctx, id)
	if err != nil || !exists {
		return err
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	// A timed-out match was archived by Tick.
	if !s.Over() {
		seat, err := m.seating(ctx, id)
		if err != nil {
			obslog.L().Warn("match_archive_skipped", zap.String("match_id", id), zap.Error(err))
		} else {
			m.archive(ctx, id, seat, s, lobby.WinnerText(winner), "reported")
		}
	}
	return m.Discard(ctx, id)
}

// Winner returns the winner to record when a participant ends id. A match
// already decided on the clock keeps that verdict; otherwise reported stands.
func (m *Manager) Winner(ctx context.Context, id, reported string) (string, error) {
	exists, err := m.store.Exists(ctx, id)
	if err != nil || !exists {
		return reported, err
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return reported, err
	}
	if s.Over() && s.Winner.Valid() {
		return string(s.Winner), nil
	}
	return reported, nil
}

// Discard drops the state without archiving, as when a lobby is deleted.
func (m *Manager) Discard(ctx context.Context, id string) error {
	exists, err := m.store.Exists(ctx, id)
	if err != nil || !exists {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	obslog.L().Info("match_end", zap.String("match_id", id))
	if m.feed != nil {
		m.feed.Ended(id)
	}
	return nil
}

// LegalTargets lists the squares the referenced piece may move to.
func (m *Manager) LegalTargets(ctx context.Context, id, pieceRef string) ([]board.Square, error) {
	s, err := m.State(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := s.Find(pieceRef)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", game.ErrPieceNotFound, pieceRef)
	}
	return rules.LegalTargets(s.Pieces[idx], s.Pieces), nil
}

// BoardPNG renders the current position.
func (m *Manager) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	seat, err := m.playing(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.renderer.RenderPNG(ctx, s, render.Options{Title: title(seat)})
}

// ClearAll drops every stored match and returns how many there were.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	ids, err := m.store.IDs(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.store.Clear(ctx); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if m.feed != nil {
			m.feed.Ended(id)
		}
	}
	obslog.L().Warn("match_clear_all", zap.Int("cleared", len(ids)))
	return len(ids), nil
}

// Snapshot is State for the live feed.
func (m *Manager) Snapshot(ctx context.Context, id string) (game.GameState, error) {
	return m.State(ctx, id)
}

func (m *Manager) publish(id string, s game.GameState) {
	if m.feed != nil {
		m.feed.Publish(id, s)
	}
}

func title(seat lobby.Seating) string {
	if seat.White == "" && seat.Black == "" {
		return ""
	}
	return seat.White + " vs " + seat.Black
}
