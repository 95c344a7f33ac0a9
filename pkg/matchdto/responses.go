package matchdto

type OKResponse struct {
	OK bool `json:"ok"`
}

type LeaveResponse struct {
	OK      bool `json:"ok"`
	Deleted bool `json:"deleted"`
}

type EndResponse struct {
	OK     bool   `json:"ok"`
	Winner string `json:"winner"`
}

type MovesResponse struct {
	Piece   string   `json:"piece"`
	Targets []string `json:"targets"`
}

type ClearResponse struct {
	OK      bool `json:"ok"`
	Lobbies int  `json:"lobbies"`
	Games   int  `json:"games"`
}
