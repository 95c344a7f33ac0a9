package builder

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/config"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/session"
)

func testConfig(t *testing.T, backend string) *config.AppConfig {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return &config.AppConfig{
		RedisURL:       fmt.Sprintf("redis://%s/0", mr.Addr()),
		SessionBackend: backend,
		SessionTTL:     time.Hour,
		LobbyTTL:       time.Hour,
	}
}

func TestNewWiresEveryBackend(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendRedis, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			d, err := New(ctx, testConfig(t, backend))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			t.Cleanup(func() { _ = d.Close() })

			switch backend {
			case config.BackendRedis:
				if _, ok := d.Store.(*session.Redis); !ok {
					t.Fatalf("store = %T", d.Store)
				}
			case config.BackendBadger:
				if _, ok := d.Store.(*session.Badger); !ok {
					t.Fatalf("store = %T", d.Store)
				}
			default:
				if _, ok := d.Store.(*session.Memory); !ok {
					t.Fatalf("store = %T", d.Store)
				}
			}

			l, err := d.Lobbies.Create(ctx, "wired", "alice")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := d.Lobbies.Join(ctx, l.ID, "bob"); err != nil {
				t.Fatalf("join: %v", err)
			}
			if _, err := d.Lobbies.MarkPlaying(ctx, l.ID, "alice"); err != nil {
				t.Fatalf("mark playing: %v", err)
			}
			if _, err := d.Matches.Start(ctx, l.ID, nil); err != nil {
				t.Fatalf("start: %v", err)
			}
			s, err := d.Matches.Move(ctx, l.ID, "alice", game.Move{PieceID: "d2", TargetPosition: board.MustSquare("d4")})
			if err != nil || s.MoveCount != 1 {
				t.Fatalf("move: %+v %v", s, err)
			}
		})
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := &config.AppConfig{RedisURL: "mysql://nope", SessionBackend: config.BackendMemory}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected error")
	}
}
