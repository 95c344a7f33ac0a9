package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	SessionBackend string
	SessionTTL     time.Duration
	LobbyTTL       time.Duration

	RedisURL    string
	BadgerDir   string
	DatabaseURL string

	MessagesDir  string
	AllowOrigins []string
	DebugAPI     bool

	DefaultTimeControl *game.TimeControl

	Log obslog.Options
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":8080",
		WSAddr:         ":8081",
		SessionBackend: BackendMemory,
		SessionTTL:     24 * time.Hour,
		LobbyTTL:       24 * time.Hour,
		Log:            obslog.DefaultOptions(),
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("WS_ADDR"); v != "" {
		cfg.WSAddr = v
	}
	if v := env("SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = strings.ToLower(v)
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.BadgerDir = env("BADGER_DIR")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.MessagesDir = env("MESSAGES_DIR")
	cfg.AllowOrigins = list(env("WS_ALLOW_ORIGINS"))
	cfg.DebugAPI = flag("DEBUG_API", false)

	var err error
	if cfg.SessionTTL, err = seconds("SESSION_TTL_SEC", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.LobbyTTL, err = seconds("LOBBY_TTL_SEC", cfg.LobbyTTL); err != nil {
		return nil, err
	}

	minutes, increment := env("DEFAULT_MINUTES"), env("DEFAULT_INCREMENT")
	if minutes != "" {
		m, err := strconv.Atoi(minutes)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_MINUTES: %w", err)
		}
		inc := 0
		if increment != "" {
			if inc, err = strconv.Atoi(increment); err != nil {
				return nil, fmt.Errorf("DEFAULT_INCREMENT: %w", err)
			}
		}
		tc, err := game.NewTimeControl(m, inc)
		if err != nil {
			return nil, err
		}
		cfg.DefaultTimeControl = &tc
	} else if increment != "" {
		return nil, errors.New("DEFAULT_INCREMENT requires DEFAULT_MINUTES")
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := env("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	cfg.Log.Console = flag("LOG_TO_CONSOLE", cfg.Log.Console)
	cfg.Log.ToFile = flag("LOG_TO_FILE", cfg.Log.ToFile)
	cfg.Log.Caller = flag("LOG_CALLER", cfg.Log.Caller)

	switch cfg.SessionBackend {
	case BackendMemory, BackendRedis, BackendBadger:
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}
	// The lobby directory always lives in Redis.
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func flag(key string, def bool) bool {
	v := env(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// seconds reads key as a positive number of seconds, keeping def when unset.
func seconds(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func list(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
