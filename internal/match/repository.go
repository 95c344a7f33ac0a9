package match

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

// Result is one archived match.
type Result struct {
	GameID      string
	MatchID     string
	White       string
	Black       string
	Winner      string // White, Black or Draw
	Method      string // reported or timeout
	TimeControl string
	MoveCount   int
	Placement   string
	EndedAt     time.Time
}

func newResult(id string, seat lobby.Seating, s game.GameState, winner, method string) Result {
	r := Result{
		GameID:    s.GameID,
		MatchID:   id,
		White:     seat.White,
		Black:     seat.Black,
		Winner:    winner,
		Method:    method,
		MoveCount: s.MoveCount,
		Placement: board.Placement(s.Pieces),
		EndedAt:   s.UpdatedAt,
	}
	if s.TimeControl != nil {
		r.TimeControl = s.TimeControl.String()
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}
	return r
}

func (m *Manager) archive(ctx context.Context, id string, seat lobby.Seating, s game.GameState, winner, method string) {
	if m.repo == nil {
		return
	}
	r := newResult(id, seat, s, winner, method)
	if r.GameID == "" {
		r.GameID = m.newID()
	}
	if err := m.repo.SaveResult(ctx, r); err != nil {
		obslog.L().Warn("match_archive_failed", zap.String("match_id", id), zap.String("game_id", r.GameID), zap.Error(err))
	}
}

// Repository stores results in PostgreSQL.
type Repository struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS match_results (
	game_id      TEXT PRIMARY KEY,
	match_id     TEXT NOT NULL,
	white_id     TEXT NOT NULL,
	black_id     TEXT NOT NULL,
	winner       TEXT NOT NULL,
	method       TEXT NOT NULL,
	time_control TEXT NOT NULL DEFAULT '',
	move_count   INTEGER NOT NULL,
	placement    TEXT NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_results_match_id ON match_results (match_id)`

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create match_results: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts one finished game. Games of the same lobby share
// match_id and are told apart by game_id.
func (r *Repository) SaveResult(ctx context.Context, res Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	const q = `INSERT INTO match_results (
		game_id, match_id, white_id, black_id, winner, method,
		time_control, move_count, placement, ended_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (game_id) DO UPDATE SET
		white_id=EXCLUDED.white_id,
		black_id=EXCLUDED.black_id,
		winner=EXCLUDED.winner,
		method=EXCLUDED.method,
		time_control=EXCLUDED.time_control,
		move_count=EXCLUDED.move_count,
		placement=EXCLUDED.placement,
		ended_at=EXCLUDED.ended_at`
	_, err := r.db.ExecContext(ctx, q,
		res.GameID, res.MatchID, res.White, res.Black, res.Winner, strings.TrimSpace(res.Method),
		res.TimeControl, res.MoveCount, res.Placement, res.EndedAt,
	)
	return err
}
