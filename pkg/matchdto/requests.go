// Package matchdto holds the JSON bodies of the HTTP API.
package matchdto

type CreateLobbyRequest struct {
	Name       string `json:"name"`
	PlayerName string `json:"playerName"`
}

// PlayerRequest carries only the caller's identity (join, leave, randomize,
// start, delete).
type PlayerRequest struct {
	PlayerName string `json:"playerName"`
}

type SetColorRequest struct {
	PlayerName   string `json:"playerName"`
	TargetPlayer string `json:"targetPlayer"`
	Color        string `json:"color"`
}

type TimeControl struct {
	Minutes   int `json:"minutes"`
	Increment int `json:"increment"`
}

type TimeSettingsRequest struct {
	PlayerName  string       `json:"playerName"`
	TimeControl *TimeControl `json:"timeControl"`
}

type EndRequest struct {
	PlayerName string `json:"playerName"`
	Winner     string `json:"winner"`
}

type Move struct {
	PieceID        string `json:"pieceId"`
	TargetPosition string `json:"targetPosition"`
}

type MoveRequest struct {
	PlayerName string `json:"playerName"`
	Move       Move   `json:"move"`
}

type TickRequest struct {
	PlayerName string `json:"playerName"`
	Color      string `json:"color"`
}
