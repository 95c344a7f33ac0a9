package httpapi

import (
	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/pkg/matchdto"
)

func (s *Server) gameState(rc *fasthttp.RequestCtx, id string) {
	c, cancel := reqContext(rc)
	defer cancel()
	st, err := s.matches.State(c, id)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, st)
}

func (s *Server) move(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.MoveRequest
	if !s.decode(rc, &req) {
		return
	}
	target, err := board.ParseSquare(req.Move.TargetPosition)
	if err != nil || req.Move.PieceID == "" {
		s.writeError(rc, lobby.ErrInvalidArgs)
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	st, err := s.matches.Move(c, id, req.PlayerName, game.Move{PieceID: req.Move.PieceID, TargetPosition: target})
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, st)
}

func (s *Server) tick(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.TickRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	st, err := s.matches.Tick(c, id, req.PlayerName, req.Color)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, st)
}

func (s *Server) legalMoves(rc *fasthttp.RequestCtx, id string) {
	piece := string(rc.QueryArgs().Peek("piece"))
	if piece == "" {
		s.writeError(rc, lobby.ErrInvalidArgs)
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	targets, err := s.matches.LegalTargets(c, id, piece)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	out := matchdto.MovesResponse{Piece: piece, Targets: make([]string, 0, len(targets))}
	for _, sq := range targets {
		out.Targets = append(out.Targets, sq.String())
	}
	s.writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) boardPNG(rc *fasthttp.RequestCtx, id string) {
	c, cancel := reqContext(rc)
	defer cancel()
	png, err := s.matches.BoardPNG(c, id)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	rc.SetStatusCode(fasthttp.StatusOK)
	rc.SetContentType("image/png")
	rc.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	rc.SetBody(png)
}
