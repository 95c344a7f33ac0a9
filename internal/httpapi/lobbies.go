package httpapi

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/matchdto"
)

// listLobbies lists waiting lobbies; ?status=all or ?status=playing widen or
// change the filter.
func (s *Server) listLobbies(rc *fasthttp.RequestCtx) {
	c, cancel := reqContext(rc)
	defer cancel()
	status := lobby.StatusWaiting
	switch v := string(rc.QueryArgs().Peek("status")); v {
	case "":
	case "all":
		status = ""
	case string(lobby.StatusWaiting), string(lobby.StatusPlaying):
		status = lobby.Status(v)
	default:
		s.writeError(rc, lobby.ErrInvalidArgs)
		return
	}
	ls, err := s.lobbies.List(c, status)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	if ls == nil {
		ls = []*lobby.Lobby{}
	}
	s.writeJSON(rc, fasthttp.StatusOK, ls)
}

func (s *Server) createLobby(rc *fasthttp.RequestCtx) {
	var req matchdto.CreateLobbyRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.Create(c, req.Name, req.PlayerName)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusCreated, l)
}

func (s *Server) getLobby(rc *fasthttp.RequestCtx, id string) {
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.Get(c, id)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

// deleteLobby takes the caller from the body or, failing that, ?playerName=.
func (s *Server) deleteLobby(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.PlayerRequest
	if len(rc.PostBody()) > 0 {
		if !s.decode(rc, &req) {
			return
		}
	} else {
		req.PlayerName = string(rc.QueryArgs().Peek("playerName"))
	}
	c, cancel := reqContext(rc)
	defer cancel()
	if err := s.lobbies.Delete(c, id, req.PlayerName); err != nil {
		s.writeError(rc, err)
		return
	}
	s.discard(c, id)
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.OKResponse{OK: true})
}

func (s *Server) joinLobby(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.PlayerRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.Join(c, id, req.PlayerName)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

// leaveLobby drops any running game: a host leaving deletes the lobby and a
// guest leaving returns it to waiting.
func (s *Server) leaveLobby(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.PlayerRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	_, deleted, err := s.lobbies.Leave(c, id, req.PlayerName)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.discard(c, id)
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.LeaveResponse{OK: true, Deleted: deleted})
}

func (s *Server) setColor(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.SetColorRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.SetColor(c, id, req.PlayerName, req.TargetPlayer, req.Color)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

func (s *Server) randomize(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.PlayerRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.Randomize(c, id, req.PlayerName)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

func (s *Server) timeSettings(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.TimeSettingsRequest
	if !s.decode(rc, &req) {
		return
	}
	if req.TimeControl == nil {
		s.writeError(rc, lobby.ErrInvalidArgs)
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	tc := game.TimeControl{Minutes: req.TimeControl.Minutes, Increment: req.TimeControl.Increment}
	l, err := s.lobbies.SetTimeControl(c, id, req.PlayerName, tc)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

// startGame marks the lobby playing and writes the opening position.
func (s *Server) startGame(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.PlayerRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	l, err := s.lobbies.MarkPlaying(c, id, req.PlayerName)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	if _, err := s.matches.Start(c, id, l.TimeControl); err != nil {
		if aerr := s.lobbies.AbortStart(c, id); aerr != nil {
			obslog.L().Error("lobby_abort_failed", zap.String("lobby_id", id), zap.Error(aerr))
		}
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, l)
}

func (s *Server) endGame(rc *fasthttp.RequestCtx, id string) {
	var req matchdto.EndRequest
	if !s.decode(rc, &req) {
		return
	}
	c, cancel := reqContext(rc)
	defer cancel()
	winner, err := s.matches.Winner(c, id, req.Winner)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	l, err := s.lobbies.Finish(c, id, req.PlayerName, winner)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	if err := s.matches.End(c, id, winner); err != nil {
		s.writeError(rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.EndResponse{OK: true, Winner: l.Result})
}

func (s *Server) clearMemory(rc *fasthttp.RequestCtx) {
	c, cancel := reqContext(rc)
	defer cancel()
	ids, err := s.lobbies.Clear(c)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	games, err := s.matches.ClearAll(c)
	if err != nil {
		s.writeError(rc, err)
		return
	}
	obslog.L().Warn("debug_clear_memory", zap.Int("lobbies", len(ids)), zap.Int("games", games))
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.ClearResponse{OK: true, Lobbies: len(ids), Games: games})
}

// discard drops the game of a lobby that no longer plays. The lobby change
// already succeeded, so a failure is only logged.
func (s *Server) discard(c context.Context, id string) {
	if err := s.matches.Discard(c, id); err != nil {
		obslog.L().Warn("match_discard_failed", zap.String("match_id", id), zap.Error(err))
	}
}
