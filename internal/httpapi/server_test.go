package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/Cheese-PvP-server/internal/apiclient"
	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/feed"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/match"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/session"
)

type fixture struct {
	client  *apiclient.Client
	matches *match.Manager
	store   session.Store
	hub     *feed.Hub
	wsURL   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, session.NewMemory())
}

func newFixtureWith(t *testing.T, store session.Store) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lobbies := lobby.NewDirectory(rdb, 0, nil)
	matches := match.NewManager(store, lobbies)
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
	srv := &fasthttp.Server{Handler: New(lobbies, matches, msgs, true).Handler()}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.ShutdownWithContext(ctx)
	})

	c := apiclient.New("http://match.test",
		apiclient.WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		apiclient.WithRetry(1),
	)
	return &fixture{
		client:  c,
		matches: matches,
		store:   store,
		hub:     hub,
		wsURL:   "ws" + strings.TrimPrefix(ws.URL, "http"),
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// started creates a lobby hosted by alice, seats bob and starts the game.
func (f *fixture) started(t *testing.T, minutes int) string {
	t.Helper()
	ctx := testCtx(t)
	l, err := f.client.CreateLobby(ctx, "friendly", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.client.Join(ctx, l.ID, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if minutes > 0 {
		if _, err := f.client.SetTimeControl(ctx, l.ID, "alice", minutes, 0); err != nil {
			t.Fatalf("time settings: %v", err)
		}
	}
	if _, err := f.client.Start(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	return l.ID
}

func wantStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want status error %d %s", err, status, code)
	}
	if se.Status != status || se.Code != code {
		t.Fatalf("got %d %s (%s), want %d %s", se.Status, se.Code, se.Message, status, code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	if err := f.client.Health(testCtx(t)); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestMatchLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 5)

	st, err := f.client.State(ctx, id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.ActivePlayer != board.White || len(st.Pieces) != 32 || st.TimeRemaining == nil || st.TimeRemaining.White != 300 {
		t.Fatalf("opening state = %+v", st)
	}

	if st, err = f.client.Move(ctx, id, "alice", "white-pawn-e", "e4"); err != nil {
		t.Fatalf("white move: %v", err)
	}
	if st.LastMove == nil || st.LastMove.PieceID != "white-pawn-e" || st.LastMove.TargetPosition != board.MustSquare("e4") {
		t.Fatalf("last move = %+v", st.LastMove)
	}
	if st, err = f.client.Move(ctx, id, "bob", "e7", "e5"); err != nil {
		t.Fatalf("black move by square: %v", err)
	}
	if st.MoveCount != 2 || st.ActivePlayer != board.White {
		t.Fatalf("after two moves: count=%d active=%s", st.MoveCount, st.ActivePlayer)
	}

	targets, err := f.client.LegalTargets(ctx, id, "white-knight-g")
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if diff := cmp.Diff([]string{"e2", "f3", "h3"}, targets); diff != "" {
		t.Fatalf("knight targets (-want +got):\n%s", diff)
	}

	png, err := f.client.BoardPNG(ctx, id)
	if err != nil || !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("board png: %v", err)
	}

	winner, err := f.client.End(ctx, id, "bob", "black")
	if err != nil || winner != "Black" {
		t.Fatalf("end = %q, %v", winner, err)
	}
	_, err = f.client.State(ctx, id)
	wantStatus(t, err, fasthttp.StatusNotFound, "GameNotFound")

	l, err := f.client.Lobby(ctx, id)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if l.Status != lobby.StatusWaiting || l.Result != "Black" {
		t.Fatalf("lobby after end = %+v", l)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 0)

	_, err := f.client.Move(ctx, id, "mallory", "e2", "e4")
	wantStatus(t, err, fasthttp.StatusForbidden, "PlayerNotFound")

	_, err = f.client.Move(ctx, id, "bob", "e7", "e5")
	wantStatus(t, err, fasthttp.StatusBadRequest, "NotYourTurn")
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.Message != "It is not your turn." {
		t.Fatalf("catalog message = %q", se.Message)
	}

	_, err = f.client.Move(ctx, id, "alice", "e2", "e5")
	wantStatus(t, err, fasthttp.StatusBadRequest, "InvalidMove")

	_, err = f.client.Move(ctx, id, "alice", "e2", "z9")
	wantStatus(t, err, fasthttp.StatusBadRequest, "InvalidArgs")

	_, err = f.client.Move(ctx, id, "alice", "e4", "e5")
	wantStatus(t, err, fasthttp.StatusNotFound, "PieceNotFound")

	_, err = f.client.Tick(ctx, id, "alice", "white")
	wantStatus(t, err, fasthttp.StatusBadRequest, "TimeControlNotInitialized")

	_, err = f.client.State(ctx, "nope")
	wantStatus(t, err, fasthttp.StatusNotFound, "GameNotFound")

	_, err = f.client.Join(ctx, id, "carol")
	wantStatus(t, err, fasthttp.StatusConflict, "LobbyFull")

	_, err = f.client.Randomize(ctx, id, "bob")
	wantStatus(t, err, fasthttp.StatusForbidden, "NotHost")

	_, err = f.client.Start(ctx, id, "alice")
	wantStatus(t, err, fasthttp.StatusConflict, "GameStarted")

	_, err = f.client.SetTimeControl(ctx, id, "alice", 0, 0)
	wantStatus(t, err, fasthttp.StatusBadRequest, "InvalidTimeControl")

	_, err = f.client.SetColor(ctx, id, "alice", "bob", "purple")
	wantStatus(t, err, fasthttp.StatusBadRequest, "InvalidColor")

	st, err := f.client.State(ctx, id)
	if err != nil || st.MoveCount != 0 {
		t.Fatalf("rejections changed state: %+v %v", st, err)
	}
}

func TestStartNeedsSecondPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	l, err := f.client.CreateLobby(ctx, "solo", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.client.Start(ctx, l.ID, "alice")
	wantStatus(t, err, fasthttp.StatusBadRequest, "NeedSecondPlayer")
	if ok, _ := f.store.Exists(ctx, l.ID); ok {
		t.Fatalf("game state written for a lobby that did not start")
	}
}

// brokenStore refuses writes of a fresh game while broken is set.
type brokenStore struct {
	session.Store
	broken atomic.Bool
}

func (b *brokenStore) Put(ctx context.Context, id string, s game.GameState) error {
	if b.broken.Load() {
		return errors.New("store offline")
	}
	return b.Store.Put(ctx, id, s)
}

func TestFailedStartReopensLobby(t *testing.T) {
	store := &brokenStore{Store: session.NewMemory()}
	f := newFixtureWith(t, store)
	ctx := testCtx(t)
	l, err := f.client.CreateLobby(ctx, "friendly", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.client.Join(ctx, l.ID, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.client.SetTimeControl(ctx, l.ID, "alice", 5, 0); err != nil {
		t.Fatalf("time settings: %v", err)
	}

	store.broken.Store(true)
	_, err = f.client.Start(ctx, l.ID, "alice")
	wantStatus(t, err, fasthttp.StatusInternalServerError, "Internal")
	got, err := f.client.Lobby(ctx, l.ID)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if got.Status != lobby.StatusWaiting {
		t.Fatalf("status after failed start = %s", got.Status)
	}
	_, err = f.client.State(ctx, l.ID)
	wantStatus(t, err, fasthttp.StatusNotFound, "GameNotFound")

	store.broken.Store(false)
	if _, err := f.client.Start(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("retry start: %v", err)
	}
	st, err := f.client.State(ctx, l.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.TimeControl == nil || st.TimeControl.Minutes != 5 || st.TimeRemaining.White != 300 {
		t.Fatalf("time control lost: %+v %+v", st.TimeControl, st.TimeRemaining)
	}
}

func TestTickOverHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 1)

	st, err := f.client.Tick(ctx, id, "alice", "white")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if st.TimeRemaining.White != 59 || st.TimeRemaining.Black != 60 {
		t.Fatalf("clock = %+v", st.TimeRemaining)
	}
	_, err = f.client.Tick(ctx, id, "bob", "white")
	wantStatus(t, err, fasthttp.StatusForbidden, "InvalidPlayerColor")
}

func TestEndAfterTimeoutKeepsClockVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 1)
	for i := 0; i < 60; i++ {
		if _, err := f.client.Tick(ctx, id, "alice", "white"); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	winner, err := f.client.End(ctx, id, "bob", "white")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if winner != "Black" {
		t.Fatalf("winner = %q, want Black", winner)
	}
	l, err := f.client.Lobby(ctx, id)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if l.Status != lobby.StatusWaiting || l.Result != "Black" {
		t.Fatalf("lobby after end: status=%s result=%q", l.Status, l.Result)
	}
}

func TestHostLeaveDropsGame(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 0)

	deleted, err := f.client.Leave(ctx, id, "alice")
	if err != nil || !deleted {
		t.Fatalf("leave = %v, %v", deleted, err)
	}
	if ok, _ := f.store.Exists(ctx, id); ok {
		t.Fatalf("game survived host leave")
	}
	_, err = f.client.Lobby(ctx, id)
	wantStatus(t, err, fasthttp.StatusNotFound, "LobbyNotFound")
}

func TestDeleteLobby(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 0)

	err := f.client.DeleteLobby(ctx, id, "bob")
	wantStatus(t, err, fasthttp.StatusForbidden, "NotHost")
	if err := f.client.DeleteLobby(ctx, id, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := f.store.Exists(ctx, id); ok {
		t.Fatalf("game survived lobby delete")
	}
}

func TestListAndClearMemory(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	f.started(t, 0)
	if _, err := f.client.CreateLobby(ctx, "open", "carol"); err != nil {
		t.Fatalf("create: %v", err)
	}

	waiting, err := f.client.ListLobbies(ctx, "")
	if err != nil || len(waiting) != 1 || waiting[0].Host != "carol" {
		t.Fatalf("waiting = %+v, %v", waiting, err)
	}
	all, err := f.client.ListLobbies(ctx, "all")
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %+v, %v", all, err)
	}

	res, err := f.client.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if res.Lobbies != 2 || res.Games != 1 {
		t.Fatalf("clear = %+v", res)
	}
	if all, _ = f.client.ListLobbies(ctx, "all"); len(all) != 0 {
		t.Fatalf("lobbies left: %+v", all)
	}
}

func TestRouting(t *testing.T) {
	f := newFixture(t)
	h := New(nil, f.matches, nil, false).Handler()

	cases := []struct {
		method, path string
		status       int
	}{
		{fasthttp.MethodGet, "/nope", fasthttp.StatusNotFound},
		{fasthttp.MethodPost, "/healthz", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodGet, "/api/lobbies/x/join", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodPost, "/api/lobbies/x/fly", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/api/game/x/move", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodPost, "/api/lobbies/x/join", fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/api/debug/clear-memory", fasthttp.StatusNotFound},
	}
	for _, tc := range cases {
		var rc fasthttp.RequestCtx
		rc.Request.Header.SetMethod(tc.method)
		rc.Request.SetRequestURI(tc.path)
		h(&rc)
		if got := rc.Response.StatusCode(); got != tc.status {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, got, tc.status)
		}
	}
}

func TestFeedFollowsMoves(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	id := f.started(t, 0)

	states := make(chan game.GameState, 8)
	done := make(chan error, 1)
	go func() {
		done <- apiclient.Watch(ctx, f.wsURL, id, func(s game.GameState) error {
			states <- s
			return nil
		})
	}()

	next := func() game.GameState {
		t.Helper()
		select {
		case s := <-states:
			return s
		case <-ctx.Done():
			t.Fatalf("no state from feed")
		}
		return game.GameState{}
	}
	if s := next(); s.MoveCount != 0 {
		t.Fatalf("snapshot move count = %d", s.MoveCount)
	}
	if _, err := f.client.Move(ctx, id, "alice", "b1", "c3"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s := next(); s.MoveCount != 1 || s.LastMove == nil || s.LastMove.PieceID != "white-knight-b" {
		t.Fatalf("pushed state = %+v", s)
	}
	if _, err := f.client.End(ctx, id, "alice", "draw"); err != nil {
		t.Fatalf("end: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, apiclient.ErrFeedEnded) {
			t.Fatalf("watch = %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("watch did not end")
	}
}
