package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultIsNop(t *testing.T) {
	if L() == nil {
		t.Fatalf("nil global logger")
	}
	L().Info("discarded")
}

func TestInitWritesFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	if err := Init(Options{Level: "debug", Format: "json", ToFile: true, File: path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	L().Info("match_move", zap.String("match_id", "m1"))
	Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"match_move"`) || !strings.Contains(string(raw), `"match_id":"m1"`) {
		t.Fatalf("unexpected log output: %s", raw)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
