package game

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }

var (
	ErrPlayerNotFound            = errf("player not found")
	ErrNotYourTurn               = errf("not your turn")
	ErrPieceNotFound             = errf("piece not found")
	ErrCannotMoveOpponentPiece   = errf("cannot move opponent piece")
	ErrInvalidMove               = errf("invalid move")
	ErrTimeControlNotInitialized = errf("time control not initialized")
	ErrInvalidTimeControl        = errf("invalid time control")
	ErrInvalidPlayerColor        = errf("invalid player or color")
	ErrGameOver                  = errf("game is over")
)
