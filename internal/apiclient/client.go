// Package apiclient is a fasthttp client for the match server API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Cheese-PvP-server/internal/game"
	"github.com/park285/Cheese-PvP-server/internal/lobby"
	"github.com/park285/Cheese-PvP-server/pkg/matchdto"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status int
	matchdto.DomainError
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s (%s)", e.Status, e.DomainError.Error(), e.Code)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func lobbyPath(id string, action ...string) string {
	p := "/api/lobbies/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

func gamePath(id string, action ...string) string {
	p := "/api/game/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil)
}

func (c *Client) ListLobbies(ctx context.Context, status string) ([]lobby.Lobby, error) {
	path := "/api/lobbies"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []lobby.Lobby
	return out, c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out)
}

func (c *Client) CreateLobby(ctx context.Context, name, player string) (*lobby.Lobby, error) {
	return c.lobbyCall(ctx, fasthttp.MethodPost, "/api/lobbies", matchdto.CreateLobbyRequest{Name: name, PlayerName: player})
}

func (c *Client) Lobby(ctx context.Context, id string) (*lobby.Lobby, error) {
	return c.lobbyCall(ctx, fasthttp.MethodGet, lobbyPath(id), nil)
}

func (c *Client) DeleteLobby(ctx context.Context, id, player string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, lobbyPath(id), matchdto.PlayerRequest{PlayerName: player}, nil)
}

func (c *Client) Join(ctx context.Context, id, player string) (*lobby.Lobby, error) {
	return c.lobbyCall(ctx, fasthttp.MethodPost, lobbyPath(id, "join"), matchdto.PlayerRequest{PlayerName: player})
}

// Leave reports whether the lobby was deleted.
func (c *Client) Leave(ctx context.Context, id, player string) (bool, error) {
	var out matchdto.LeaveResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, lobbyPath(id, "leave"), matchdto.PlayerRequest{PlayerName: player}, &out)
	return out.Deleted, err
}

func (c *Client) SetColor(ctx context.Context, id, player, target, color string) (*lobby.Lobby, error) {
	req := matchdto.SetColorRequest{PlayerName: player, TargetPlayer: target, Color: color}
	return c.lobbyCall(ctx, fasthttp.MethodPost, lobbyPath(id, "set-color"), req)
}

func (c *Client) Randomize(ctx context.Context, id, player string) (*lobby.Lobby, error) {
	return c.lobbyCall(ctx, fasthttp.MethodPost, lobbyPath(id, "randomize"), matchdto.PlayerRequest{PlayerName: player})
}

func (c *Client) SetTimeControl(ctx context.Context, id, player string, minutes, increment int) (*lobby.Lobby, error) {
	req := matchdto.TimeSettingsRequest{
		PlayerName:  player,
		TimeControl: &matchdto.TimeControl{Minutes: minutes, Increment: increment},
	}
	return c.lobbyCall(ctx, fasthttp.MethodPost, lobbyPath(id, "time-settings"), req)
}

func (c *Client) Start(ctx context.Context, id, player string) (*lobby.Lobby, error) {
	return c.lobbyCall(ctx, fasthttp.MethodPost, lobbyPath(id, "start"), matchdto.PlayerRequest{PlayerName: player})
}

// End reports the winner ("white", "black" or anything else for a draw)
// and returns the recorded result text.
func (c *Client) End(ctx context.Context, id, player, winner string) (string, error) {
	var out matchdto.EndResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, lobbyPath(id, "end"), matchdto.EndRequest{PlayerName: player, Winner: winner}, &out)
	return out.Winner, err
}

func (c *Client) State(ctx context.Context, id string) (*game.GameState, error) {
	return c.gameCall(ctx, fasthttp.MethodGet, gamePath(id), nil)
}

func (c *Client) Move(ctx context.Context, id, player, pieceID, target string) (*game.GameState, error) {
	req := matchdto.MoveRequest{PlayerName: player, Move: matchdto.Move{PieceID: pieceID, TargetPosition: target}}
	return c.gameCall(ctx, fasthttp.MethodPost, gamePath(id, "move"), req)
}

func (c *Client) Tick(ctx context.Context, id, player, color string) (*game.GameState, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, gamePath(id, "time"), matchdto.TickRequest{PlayerName: player, Color: color})
}

func (c *Client) LegalTargets(ctx context.Context, id, piece string) ([]string, error) {
	var out matchdto.MovesResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "moves")+"?piece="+url.QueryEscape(piece), nil, &out)
	return out.Targets, err
}

func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, gamePath(id, "board.png"), nil)
}

func (c *Client) ClearMemory(ctx context.Context) (matchdto.ClearResponse, error) {
	var out matchdto.ClearResponse
	return out, c.doJSON(ctx, fasthttp.MethodPost, "/api/debug/clear-memory", nil, &out)
}

func (c *Client) lobbyCall(ctx context.Context, method, path string, in any) (*lobby.Lobby, error) {
	var out lobby.Lobby
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) gameCall(ctx context.Context, method, path string, in any) (*game.GameState, error) {
	var out game.GameState
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends one request, retrying transport failures on GET and answers the
// server marks retryable.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if method != fasthttp.MethodGet {
				return nil, lastErr
			}
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return append([]byte(nil), resp.Body()...), nil
			}
			se := &StatusError{Status: status}
			if json.Unmarshal(resp.Body(), &se.DomainError) != nil || se.Code == "" {
				se.Code = "Unknown"
				se.Message = truncate(string(resp.Body()), 512)
			}
			lastErr = se
			if !se.Retryable || status == fasthttp.StatusInternalServerError {
				return nil, se
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
