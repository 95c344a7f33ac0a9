// Package builder wires the server's dependencies from config.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/config"
	"github.com/park285/Cheese-PvP-server/internal/feed"
	"github.com/park285/Cheese-PvP-server/internal/httpapi"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/match"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/internal/session"
)

type Deps struct {
	Redis   *redis.Client
	Store   session.Store
	Lobbies *lobby.Directory
	Matches *match.Manager
	Feed    *feed.Hub
	API     *httpapi.Server
	Repo    *match.Repository
}

func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	d := &Deps{Redis: rdb}

	if d.Store, err = newStore(cfg, rdb); err != nil {
		_ = d.Close()
		return nil, err
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	d.Lobbies = lobby.NewDirectory(rdb, cfg.LobbyTTL, cfg.DefaultTimeControl)
	d.Matches = match.NewManager(d.Store, d.Lobbies)
	d.Feed = feed.NewHub(cfg.AllowOrigins)
	d.Feed.SetSnapshot(d.Matches.Snapshot)
	d.Matches.AttachFeed(d.Feed)

	if cfg.DatabaseURL != "" {
		repo, err := match.NewRepository(cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init result repository: %w", err)
		}
		d.Repo = repo
		d.Matches.AttachRepository(repo)
	}

	d.API = httpapi.New(d.Lobbies, d.Matches, msgs, cfg.DebugAPI)
	obslog.L().Info("deps_ready",
		zap.String("session_backend", cfg.SessionBackend),
		zap.Bool("result_archive", d.Repo != nil),
		zap.Bool("debug_api", cfg.DebugAPI),
	)
	return d, nil
}

func newStore(cfg *config.AppConfig, rdb *redis.Client) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		return session.NewRedis(rdb, cfg.SessionTTL), nil
	case config.BackendBadger:
		s, err := session.OpenBadger(cfg.BadgerDir, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return s, nil
	case config.BackendMemory, "":
		return session.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}

// Close releases everything New opened.
func (d *Deps) Close() error {
	var errs []error
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}
