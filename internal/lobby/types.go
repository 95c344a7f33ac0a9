package lobby

import (
	"strings"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
)

// Status is the lobby lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// Slot binds a player to a color. Slot1 always belongs to the host.
type Slot struct {
	Player string      `json:"player,omitempty"`
	Color  board.Color `json:"color"`
}

type Slots struct {
	Slot1 *Slot `json:"slot1,omitempty"`
	Slot2 *Slot `json:"slot2,omitempty"`
}

// Lobby is stored as JSON under lobby:{id}.
type Lobby struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Host        string            `json:"host"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created"`
	Slots       Slots             `json:"slots"`
	TimeControl *game.TimeControl `json:"timeControl,omitempty"`
	// Result is the winner text of the last finished game.
	Result string `json:"result,omitempty"`
}

func (l *Lobby) slots() []*Slot { return []*Slot{l.Slots.Slot1, l.Slots.Slot2} }

// Has reports whether player holds a slot.
func (l *Lobby) Has(player string) bool {
	_, ok := l.ColorOf(player)
	return ok
}

// ColorOf returns the color bound to player.
func (l *Lobby) ColorOf(player string) (board.Color, bool) {
	player = strings.TrimSpace(player)
	if player == "" {
		return "", false
	}
	for _, s := range l.slots() {
		if s != nil && s.Player == player {
			return s.Color, true
		}
	}
	return "", false
}

// PlayerFor returns the player bound to c, or "".
func (l *Lobby) PlayerFor(c board.Color) string {
	for _, s := range l.slots() {
		if s != nil && s.Player != "" && s.Color == c {
			return s.Player
		}
	}
	return ""
}

// Full reports whether both slots hold a player.
func (l *Lobby) Full() bool {
	return l.Slots.Slot1 != nil && l.Slots.Slot1.Player != "" &&
		l.Slots.Slot2 != nil && l.Slots.Slot2.Player != ""
}

// Seating is the slot binding handed to the match layer.
type Seating struct {
	White       string
	Black       string
	Playing     bool
	TimeControl *game.TimeControl
}

// ColorOf resolves an identity to the color it may move for.
func (s Seating) ColorOf(player string) (board.Color, bool) {
	player = strings.TrimSpace(player)
	switch {
	case player == "":
		return "", false
	case player == s.White:
		return board.White, true
	case player == s.Black:
		return board.Black, true
	}
	return "", false
}

// Seating snapshots l for the match layer.
func (l *Lobby) Seating() Seating {
	s := Seating{
		White:   l.PlayerFor(board.White),
		Black:   l.PlayerFor(board.Black),
		Playing: l.Status == StatusPlaying,
	}
	if l.TimeControl != nil {
		tc := *l.TimeControl
		s.TimeControl = &tc
	}
	return s
}

// WinnerText renders the result reported by end: "White", "Black" or "Draw".
func WinnerText(winner string) string {
	c, ok := board.ParseColor(winner)
	if !ok {
		return "Draw"
	}
	return c.Title()
}

var (
	ErrInvalidArgs      = errf("invalid arguments")
	ErrLobbyNotFound    = errf("lobby not found")
	ErrLobbyFull        = errf("lobby is full")
	ErrAlreadyInLobby   = errf("already in this lobby")
	ErrNotHost          = errf("only the host can do this")
	ErrNotInLobby       = errf("player is not in this lobby")
	ErrGameStarted      = errf("game has already started")
	ErrNotPlaying       = errf("game is not in progress")
	ErrNeedSecondPlayer = errf("a second player is required")
	ErrInvalidColor     = errf("invalid color")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
