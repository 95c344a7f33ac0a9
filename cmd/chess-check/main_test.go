package main

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/Cheese-PvP-server/internal/apiclient"
	"github.com/park285/Cheese-PvP-server/internal/feed"
	"github.com/park285/Cheese-PvP-server/internal/httpapi"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/match"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/session"
)

// serve runs a full in-process server and returns a client and the feed URL.
func serve(t *testing.T) (*apiclient.Client, string) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lobbies := lobby.NewDirectory(rdb, 0, nil)
	matches := match.NewManager(session.NewMemory(), lobbies)
	hub := feed.NewHub(nil)
	hub.SetSnapshot(matches.Snapshot)
	matches.AttachFeed(hub)
	ws := httptest.NewServer(hub.Handler())
	t.Cleanup(ws.Close)

	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: httpapi.New(lobbies, matches, msgs, false).Handler()}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.ShutdownWithContext(ctx)
	})

	c := apiclient.New("http://match.test",
		apiclient.WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
	)
	return c, "ws" + strings.TrimPrefix(ws.URL, "http")
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCheckWithoutMatch(t *testing.T) {
	c, wsURL := serve(t)
	r, err := check(testCtx(t), c, wsURL, "", time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if r.Lobbies != 0 || r.State != nil || r.Frames != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestCheckFollowsRunningMatch(t *testing.T) {
	c, wsURL := serve(t)
	ctx := testCtx(t)
	l, err := c.CreateLobby(ctx, "friendly", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Join(ctx, l.ID, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := c.Start(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	r, err := check(ctx, c, wsURL, l.ID, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if r.Lobbies != 1 || r.State == nil || r.State.GameID == "" || r.Frames < 1 {
		t.Fatalf("report = %+v", r)
	}
}

func TestCheckReportsMissingMatch(t *testing.T) {
	c, wsURL := serve(t)
	_, err := check(testCtx(t), c, wsURL, "nope", time.Second)
	var se *apiclient.StatusError
	if !errors.As(err, &se) || se.Status != fasthttp.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}
