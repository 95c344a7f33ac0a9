// Command chess-check is a connectivity check for a running chess-server:
// it pings the API, lists lobbies and, given a match id, reads the state and
// follows the live feed for a short window.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/apiclient"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

func main() {
	baseURL := os.Getenv("CHESS_API_URL")
	wsURL := os.Getenv("CHESS_WS_URL")
	matchID := os.Getenv("CHESS_MATCH_ID")
	if baseURL == "" {
		log.Fatal("CHESS_API_URL is required")
	}

	opts := obslog.DefaultOptions()
	opts.ToFile = false
	opts.Format = "console"
	if err := obslog.Init(opts); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	client := apiclient.New(baseURL, apiclient.WithTimeout(8*time.Second), apiclient.WithRetry(2))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if _, err := check(ctx, client, wsURL, matchID, 10*time.Second); err != nil {
		obslog.L().Error("check_failed", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
}

type report struct {
	Lobbies int
	State   *game.GameState
	Frames  int
}

var errNoFrames = errors.New("feed sent no state")

// check runs the steps that have enough input. The feed is watched for at
// most window; reaching the end of the window after at least one frame is a
// pass.
func check(ctx context.Context, c *apiclient.Client, wsURL, matchID string, window time.Duration) (report, error) {
	var r report
	logger := obslog.L()

	if err := c.Health(ctx); err != nil {
		return r, err
	}
	logger.Info("check_health_ok")

	ls, err := c.ListLobbies(ctx, "all")
	if err != nil {
		return r, err
	}
	r.Lobbies = len(ls)
	logger.Info("check_lobbies_ok", zap.Int("lobbies", r.Lobbies))

	if matchID == "" {
		logger.Info("check_state_skipped", zap.String("reason", "CHESS_MATCH_ID not set"))
		return r, nil
	}
	st, err := c.State(ctx, matchID)
	if err != nil {
		return r, err
	}
	r.State = st
	logger.Info("check_state_ok",
		zap.String("match_id", matchID),
		zap.String("game_id", st.GameID),
		zap.String("active", string(st.ActivePlayer)),
		zap.Int("move_count", st.MoveCount),
	)

	if wsURL == "" {
		logger.Info("check_feed_skipped", zap.String("reason", "CHESS_WS_URL not set"))
		return r, nil
	}
	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	err = apiclient.Watch(wctx, wsURL, matchID, func(s game.GameState) error {
		r.Frames++
		logger.Info("check_feed_state", zap.Int("move_count", s.MoveCount), zap.String("status", s.Status))
		return nil
	})
	switch {
	case errors.Is(err, apiclient.ErrFeedEnded):
	case err != nil && wctx.Err() != nil && ctx.Err() == nil:
	case err != nil:
		return r, err
	}
	if r.Frames == 0 {
		return r, errNoFrames
	}
	logger.Info("check_feed_ok", zap.Int("frames", r.Frames))
	return r, nil
}
