// Package feed pushes match updates to browsers over WebSocket. Clients
// subscribe to GET /ws/game/{id} and receive {"t":"state","m":GameState}
// after every accepted change and {"t":"ended"} when the match is torn down.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
)

const (
	MsgState = "state"
	MsgEnded = "ended"
)

// Envelope is the wire frame.
type Envelope struct {
	T string `json:"t"`
	M any    `json:"m,omitempty"`
}

// SnapshotFunc returns the current state sent to a client right after it
// connects. An error skips the snapshot.
type SnapshotFunc func(ctx context.Context, matchID string) (game.GameState, error)

type subscriber struct {
	send chan []byte
}

// offer never blocks; a slow client just misses frames.
func (s *subscriber) offer(msg []byte) {
	select {
	case s.send <- msg:
	default:
	}
}

type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*subscriber]struct{}
	origins []string

	snapshot     SnapshotFunc
	pingInterval time.Duration
	writeTimeout time.Duration
}

// NewHub accepts connections from the given origin patterns. An empty list
// accepts any origin.
func NewHub(origins []string) *Hub {
	return &Hub{
		subs:         make(map[string]map[*subscriber]struct{}),
		origins:      origins,
		pingInterval: 20 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

// SetSnapshot installs the state source used on connect.
func (h *Hub) SetSnapshot(fn SnapshotFunc) { h.snapshot = fn }

// Handler serves /ws/game/{id} and /healthz.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/game/{id}", h.serveGame)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (h *Hub) Publish(matchID string, s game.GameState) {
	msg, err := json.Marshal(Envelope{T: MsgState, M: s})
	if err != nil {
		obslog.L().Error("feed_encode_error", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[matchID] {
		sub.offer(msg)
	}
}

// Ended notifies and disconnects every subscriber of matchID.
func (h *Hub) Ended(matchID string) {
	msg, _ := json.Marshal(Envelope{T: MsgEnded})
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[matchID] {
		sub.offer(msg)
		close(sub.send)
	}
	delete(h.subs, matchID)
}

// Subscribers counts live connections for matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}

func (h *Hub) add(id string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[id] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) remove(id string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[id]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, id)
	}
}

func (h *Hub) serveGame(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "missing match id", http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		obslog.L().Warn("feed_accept_error", zap.String("match_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sub := &subscriber{send: make(chan []byte, 16)}
	ctx := conn.CloseRead(r.Context())
	if h.snapshot != nil {
		if s, err := h.snapshot(ctx, id); err == nil {
			if msg, err := json.Marshal(Envelope{T: MsgState, M: s}); err == nil {
				sub.offer(msg)
			}
		}
	}
	h.add(id, sub)
	defer h.remove(id, sub)
	obslog.L().Debug("feed_subscribe", zap.String("match_id", id))

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.send:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "match ended")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
