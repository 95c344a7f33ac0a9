package httpapi

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/internal/match"
	"github.com/park285/Cheese-PvP-server/internal/session"
	"github.com/park285/Cheese-PvP-server/pkg/matchdto"
)

type errorKind struct {
	err    error
	code   string
	status int
}

var errorKinds = []errorKind{
	{match.ErrGameNotFound, "GameNotFound", fasthttp.StatusNotFound},
	{match.ErrLobbyNotReady, "LobbyNotReady", fasthttp.StatusBadRequest},
	{game.ErrPlayerNotFound, "PlayerNotFound", fasthttp.StatusForbidden},
	{game.ErrNotYourTurn, "NotYourTurn", fasthttp.StatusBadRequest},
	{game.ErrPieceNotFound, "PieceNotFound", fasthttp.StatusNotFound},
	{game.ErrCannotMoveOpponentPiece, "CannotMoveOpponentPiece", fasthttp.StatusBadRequest},
	{game.ErrInvalidMove, "InvalidMove", fasthttp.StatusBadRequest},
	{game.ErrTimeControlNotInitialized, "TimeControlNotInitialized", fasthttp.StatusBadRequest},
	{game.ErrInvalidTimeControl, "InvalidTimeControl", fasthttp.StatusBadRequest},
	{game.ErrInvalidPlayerColor, "InvalidPlayerColor", fasthttp.StatusForbidden},
	{game.ErrGameOver, "GameOver", fasthttp.StatusConflict},
	{lobby.ErrLobbyNotFound, "LobbyNotFound", fasthttp.StatusNotFound},
	{lobby.ErrLobbyFull, "LobbyFull", fasthttp.StatusConflict},
	{lobby.ErrAlreadyInLobby, "AlreadyInLobby", fasthttp.StatusConflict},
	{lobby.ErrNotHost, "NotHost", fasthttp.StatusForbidden},
	{lobby.ErrNotInLobby, "NotInLobby", fasthttp.StatusForbidden},
	{lobby.ErrGameStarted, "GameStarted", fasthttp.StatusConflict},
	{lobby.ErrNotPlaying, "NotPlaying", fasthttp.StatusConflict},
	{lobby.ErrNeedSecondPlayer, "NeedSecondPlayer", fasthttp.StatusBadRequest},
	{lobby.ErrInvalidColor, "InvalidColor", fasthttp.StatusBadRequest},
	{lobby.ErrInvalidArgs, "InvalidArgs", fasthttp.StatusBadRequest},
	{session.ErrEmptyID, "InvalidArgs", fasthttp.StatusBadRequest},
}

// classify maps err to a wire error and an HTTP status. Unknown errors are
// internal.
func (s *Server) classify(err error) (matchdto.DomainError, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return s.domainError(k.code, err.Error(), false), k.status
		}
	}
	if errors.Is(err, session.ErrConflict) || errors.Is(err, redis.TxFailedErr) {
		return s.domainError("Conflict", err.Error(), true), fasthttp.StatusConflict
	}
	return s.domainError("Internal", "internal error", true), fasthttp.StatusInternalServerError
}

func (s *Server) domainError(code, fallback string, retryable bool) matchdto.DomainError {
	return matchdto.DomainError{Code: code, Message: s.msgs.Error(code, fallback), Retryable: retryable}
}
