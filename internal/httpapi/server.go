// Package httpapi serves the lobby and match API over fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/match"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/matchdto"
)

const requestTimeout = 10 * time.Second

type Server struct {
	lobbies *lobby.Directory
	matches *match.Manager
	msgs    *msgcat.Catalog
	debug   bool
}

// New builds the API. msgs may be nil, in which case error messages fall
// back to the error text. The clear-memory endpoint is only routed when
// debug is set.
func New(lobbies *lobby.Directory, matches *match.Manager, msgs *msgcat.Catalog, debug bool) *Server {
	return &Server{lobbies: lobbies, matches: matches, msgs: msgs, debug: debug}
}

// Handler returns the request handler for fasthttp.Server.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(rc)
		obslog.L().Debug("http_request",
			zap.ByteString("method", rc.Method()),
			zap.ByteString("path", rc.Path()),
			zap.Int("status", rc.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) route(rc *fasthttp.RequestCtx) {
	path := strings.Trim(string(rc.Path()), "/")
	parts := strings.Split(path, "/")
	switch {
	case path == "healthz":
		if !rc.IsGet() {
			s.methodNotAllowed(rc)
			return
		}
		s.writeJSON(rc, fasthttp.StatusOK, matchdto.OKResponse{OK: true})
	case len(parts) >= 2 && parts[0] == "api" && parts[1] == "lobbies":
		s.routeLobbies(rc, parts[2:])
	case len(parts) >= 3 && parts[0] == "api" && parts[1] == "game":
		s.routeGame(rc, parts[2], parts[3:])
	case s.debug && path == "api/debug/clear-memory":
		if !rc.IsPost() {
			s.methodNotAllowed(rc)
			return
		}
		s.clearMemory(rc)
	default:
		s.notFound(rc)
	}
}

func (s *Server) routeLobbies(rc *fasthttp.RequestCtx, rest []string) {
	method := string(rc.Method())
	switch len(rest) {
	case 0:
		switch method {
		case fasthttp.MethodGet:
			s.listLobbies(rc)
		case fasthttp.MethodPost:
			s.createLobby(rc)
		default:
			s.methodNotAllowed(rc)
		}
		return
	case 1:
		switch method {
		case fasthttp.MethodGet:
			s.getLobby(rc, rest[0])
		case fasthttp.MethodDelete:
			s.deleteLobby(rc, rest[0])
		default:
			s.methodNotAllowed(rc)
		}
		return
	case 2:
	default:
		s.notFound(rc)
		return
	}

	id, action := rest[0], rest[1]
	handlers := map[string]func(*fasthttp.RequestCtx, string){
		"join":          s.joinLobby,
		"leave":         s.leaveLobby,
		"set-color":     s.setColor,
		"randomize":     s.randomize,
		"time-settings": s.timeSettings,
		"start":         s.startGame,
		"end":           s.endGame,
	}
	h, ok := handlers[action]
	if !ok {
		s.notFound(rc)
		return
	}
	if method != fasthttp.MethodPost {
		s.methodNotAllowed(rc)
		return
	}
	h(rc, id)
}

func (s *Server) routeGame(rc *fasthttp.RequestCtx, id string, rest []string) {
	method := string(rc.Method())
	action := ""
	if len(rest) == 1 {
		action = rest[0]
	} else if len(rest) > 1 {
		s.notFound(rc)
		return
	}
	want := fasthttp.MethodGet
	var h func(*fasthttp.RequestCtx, string)
	switch action {
	case "":
		h = s.gameState
	case "move":
		want, h = fasthttp.MethodPost, s.move
	case "time":
		want, h = fasthttp.MethodPost, s.tick
	case "moves":
		h = s.legalMoves
	case "board.png":
		h = s.boardPNG
	default:
		s.notFound(rc)
		return
	}
	if method != want {
		s.methodNotAllowed(rc)
		return
	}
	h(rc, id)
}

// reqContext bounds the work of one request.
func reqContext(rc *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(rc, requestTimeout)
}

// decode reads a JSON body into v. An empty or malformed body is an
// InvalidArgs error.
func (s *Server) decode(rc *fasthttp.RequestCtx, v any) bool {
	body := rc.PostBody()
	if len(body) == 0 || json.Unmarshal(body, v) != nil {
		s.writeError(rc, lobby.ErrInvalidArgs)
		return false
	}
	return true
}

func (s *Server) writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("http_encode_failed", zap.Error(err))
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(b)
}

func (s *Server) writeError(rc *fasthttp.RequestCtx, err error) {
	de, status := s.classify(err)
	if status >= fasthttp.StatusInternalServerError {
		obslog.L().Error("http_internal_error",
			zap.ByteString("path", rc.Path()),
			zap.Error(err),
		)
	}
	s.writeJSON(rc, status, de)
}

func (s *Server) notFound(rc *fasthttp.RequestCtx) {
	s.writeJSON(rc, fasthttp.StatusNotFound, s.domainError("NotFound", "not found", false))
}

func (s *Server) methodNotAllowed(rc *fasthttp.RequestCtx) {
	s.writeJSON(rc, fasthttp.StatusMethodNotAllowed, s.domainError("InvalidArgs", "method not allowed", false))
}
