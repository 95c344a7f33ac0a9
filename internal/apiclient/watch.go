package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-PvP-server/internal/game"
)

// ErrFeedEnded is returned by Watch once the server announces the end of
// the match.
var ErrFeedEnded = errors.New("match feed ended")

type frame struct {
	T string          `json:"t"`
	M json.RawMessage `json:"m,omitempty"`
}

// Watch streams the live state of a match from the feed server at wsBase
// (e.g. "ws://localhost:8081") to fn until the match ends, ctx is done, fn
// returns an error or the connection drops.
func Watch(ctx context.Context, wsBase, matchID string, fn func(game.GameState) error) error {
	u := strings.TrimRight(wsBase, "/") + "/ws/game/" + url.PathEscape(matchID)
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return ErrFeedEnded
			}
			return err
		}
		switch f.T {
		case "ended":
			return ErrFeedEnded
		case "state":
			var s game.GameState
			if err := json.Unmarshal(f.M, &s); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}
			if err := fn(s); err != nil {
				return err
			}
		}
	}
}
