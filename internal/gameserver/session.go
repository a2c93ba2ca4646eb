package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/railforge/railforge/internal/game"
	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/observer"
	"github.com/railforge/railforge/internal/protocol"
)

// errLogout ends the session read loop after a clean LOGOUT.
var errLogout = errors.New("client logged out")

// session serves one TCP connection. A connection is either a player or an
// observer, never both.
type session struct {
	srv  *Server
	conn net.Conn
	log  *slog.Logger

	player *model.Player
	game   *game.Game
	obs    *observer.Observer
}

func (s *session) serve(ctx context.Context) {
	defer s.conn.Close()
	defer s.leaveGame()

	var parser protocol.Parser
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n])
			if err := s.drain(ctx, &parser); err != nil {
				if !errors.Is(err, errLogout) {
					s.log.Warn("session closed", "error", err)
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("connection read failed", "error", err)
			}
			return
		}
	}
}

// drain handles every complete request currently buffered.
func (s *session) drain(ctx context.Context, parser *protocol.Parser) error {
	for {
		req, ok, err := parser.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.handle(ctx, req); err != nil {
			return err
		}
	}
}

func (s *session) handle(ctx context.Context, req protocol.Request) error {
	payload, err := s.dispatch(ctx, req)
	if err != nil {
		if errors.Is(err, errLogout) {
			if werr := protocol.WriteResponse(s.conn, protocol.ResultOkey, nil); werr != nil {
				return werr
			}
			return err
		}
		return s.writeError(err)
	}
	return protocol.WriteResponse(s.conn, protocol.ResultOkey, payload)
}

func (s *session) dispatch(ctx context.Context, req protocol.Request) ([]byte, error) {
	switch req.Action {
	case protocol.ActionLogin:
		return s.login(ctx, req.Payload)
	case protocol.ActionLogout:
		return nil, errLogout
	case protocol.ActionMove:
		return s.move(req.Payload)
	case protocol.ActionUpgrade:
		return s.upgrade(req.Payload)
	case protocol.ActionTurn:
		return s.turn(ctx, req.Payload)
	case protocol.ActionMap:
		return s.mapLayer(req.Payload)
	case protocol.ActionObserver:
		return s.observe(ctx)
	case protocol.ActionGame:
		return s.selectGame(ctx, req.Payload)
	}
	return nil, &game.Error{Kind: game.KindBadCommand,
		Msg: fmt.Sprintf("unknown action code: %d", req.Action)}
}

func (s *session) login(ctx context.Context, payload []byte) ([]byte, error) {
	if s.obs != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "observers cannot login as players"}
	}
	if s.player != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "already logged in"}
	}

	var msg struct {
		Name        string `json:"name"`
		SecurityKey string `json:"security_key"`
		Game        string `json:"game"`
		NumPlayers  *int   `json:"num_players"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "malformed login message"}
	}
	if msg.Name == "" {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "player name is required"}
	}
	numPlayers := 1
	switch {
	case msg.Game == "":
		msg.Game = "Game of " + msg.Name
	case msg.NumPlayers == nil:
		return nil, &game.Error{Kind: game.KindBadCommand,
			Msg: "num_players is required when a game name is given"}
	}
	if msg.NumPlayers != nil {
		numPlayers = *msg.NumPlayers
	}

	player, err := s.srv.players.Resolve(msg.Name, msg.SecurityKey)
	if err != nil {
		return nil, err
	}

	g, err := s.srv.registry.GetOrCreate(ctx, msg.Game, numPlayers)
	if err != nil {
		return nil, err
	}
	if g.NumPlayers() != numPlayers {
		return nil, &game.Error{Kind: game.KindBadCommand,
			Msg: fmt.Sprintf("game %q expects %d players, requested %d",
				msg.Game, g.NumPlayers(), numPlayers)}
	}
	if err := g.AddPlayer(ctx, player); err != nil {
		return nil, err
	}
	s.player = player
	s.game = g
	s.log = s.log.With("player", player.Name, "game", g.Name())
	s.log.Info("player logged in")

	return g.PlayerSnapshot(player.Idx)
}

func (s *session) move(payload []byte) ([]byte, error) {
	if s.player == nil {
		return nil, errLoginRequired()
	}
	var msg struct {
		TrainIdx *int `json:"train_idx"`
		Speed    *int `json:"speed"`
		LineIdx  *int `json:"line_idx"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "malformed move message"}
	}
	if msg.TrainIdx == nil || msg.Speed == nil || msg.LineIdx == nil {
		return nil, &game.Error{Kind: game.KindBadCommand,
			Msg: "move requires train_idx, speed and line_idx"}
	}
	return nil, s.game.MoveTrain(s.player.Idx, *msg.TrainIdx, *msg.Speed, *msg.LineIdx)
}

func (s *session) upgrade(payload []byte) ([]byte, error) {
	if s.player == nil {
		return nil, errLoginRequired()
	}
	var msg struct {
		Posts  []int `json:"post"`
		Trains []int `json:"train"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "malformed upgrade message"}
	}
	if msg.Posts == nil && msg.Trains == nil {
		return nil, &game.Error{Kind: game.KindBadCommand,
			Msg: "upgrade requires post or train ids"}
	}
	return nil, s.game.Upgrade(s.player.Idx, msg.Posts, msg.Trains)
}

func (s *session) turn(ctx context.Context, payload []byte) ([]byte, error) {
	if s.obs != nil {
		var msg struct {
			Idx *int `json:"idx"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Idx == nil {
			return nil, &game.Error{Kind: game.KindBadCommand, Msg: "turn requires a target idx"}
		}
		return nil, s.obs.Seek(ctx, *msg.Idx)
	}
	if s.player == nil {
		return nil, errLoginRequired()
	}
	return nil, s.game.Turn(s.player.Idx)
}

func (s *session) mapLayer(payload []byte) ([]byte, error) {
	if s.obs == nil && s.player == nil {
		return nil, errLoginRequired()
	}
	var msg struct {
		Layer *int `json:"layer"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Layer == nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "map requires a layer"}
	}
	if s.obs != nil {
		return s.obs.MapLayer(*msg.Layer)
	}
	return s.game.MapLayer(s.player.Idx, *msg.Layer)
}

func (s *session) observe(ctx context.Context) ([]byte, error) {
	if s.player != nil {
		return nil, &game.Error{Kind: game.KindAccessDenied, Msg: "players cannot observe"}
	}
	if s.obs != nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "already observing"}
	}
	obs, err := observer.New(ctx, s.srv.replayLog, s.srv.rules, s.srv.loadMap, s.log)
	if err != nil {
		return nil, err
	}
	s.obs = obs
	s.log.Info("observer attached")
	return obs.GamesJSON()
}

func (s *session) selectGame(ctx context.Context, payload []byte) ([]byte, error) {
	if s.obs == nil {
		return nil, &game.Error{Kind: game.KindAccessDenied, Msg: "only observers can select games"}
	}
	var msg struct {
		Idx *int64 `json:"idx"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Idx == nil {
		return nil, &game.Error{Kind: game.KindBadCommand, Msg: "game selection requires an idx"}
	}
	return nil, s.obs.SelectGame(ctx, *msg.Idx)
}

// leaveGame detaches the session's player and stops the game when nobody
// else is connected to it.
func (s *session) leaveGame() {
	if s.player == nil || s.game == nil {
		return
	}
	if remaining := s.game.Leave(s.player.Idx); !remaining {
		s.log.Info("last player left, stopping game")
		s.game.Stop()
	}
	s.player = nil
	s.game = nil
}

func errLoginRequired() error {
	return &game.Error{Kind: game.KindAccessDenied, Msg: "you have to login first"}
}

// writeError maps a failure to its wire result code. Errors without a game
// kind are internal: the detail stays in the log, not on the wire.
func (s *session) writeError(err error) error {
	result := resultOf(err)
	if result == protocol.ResultInternalServerError {
		s.log.Error("request failed", "error", err)
		return protocol.WriteResponse(s.conn, result, nil)
	}
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		payload = nil
	}
	return protocol.WriteResponse(s.conn, result, payload)
}

func resultOf(err error) protocol.Result {
	switch game.KindOf(err) {
	case game.KindBadCommand:
		return protocol.ResultBadCommand
	case game.KindResourceNotFound:
		return protocol.ResultResourceNotFound
	case game.KindAccessDenied:
		return protocol.ResultAccessDenied
	case game.KindNotReady:
		return protocol.ResultNotReady
	case game.KindTimeout:
		return protocol.ResultTimeout
	}
	return protocol.ResultInternalServerError
}
