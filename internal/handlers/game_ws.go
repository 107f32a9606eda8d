// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/monopoly-online/session-service/internal/game"
	"github.com/monopoly-online/session-service/internal/middleware"
	"github.com/monopoly-online/session-service/internal/protocol"
)

// GameWSHandler upgrades the HTTP connection to a WebSocket, allocates a
// connection identity, and runs the read loop until the client goes away.
// Cleanup of the connection's lobby membership is unconditional.
func GameWSHandler(logger *logrus.Logger, registry *game.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"monopoly"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "monopoly" {
			c.Close(BadSubprotocolError, "client must speak the monopoly subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := game.NewConnection()
		go writePump(ctx, c, conn, logger)

		readErr := readPump(ctx, c, conn, registry, logger)

		// Disconnect cleanup must run no matter how the read loop exited.
		registry.RemoveConnection(conn.ID)
		close(conn.Out)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump reads messages until the connection closes and dispatches each
// one. Messages from one connection are handled strictly in order; the
// per-lobby lock inside the game package serializes members of the same
// lobby against each other.
func readPump(ctx context.Context, c *websocket.Conn, conn *game.Connection, registry *game.Registry, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("connection %s: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.Write(protocol.ErrorEvent(400, "Invalid JSON"))
			continue
		}
		dispatch(req, conn, registry, logger)
	}
}

// dispatch routes one request by type. The switch is exhaustive over the
// closed request set; adding a request type means adding a case here.
func dispatch(req protocol.Request, conn *game.Connection, registry *game.Registry, logger *logrus.Logger) {
	var err error

	switch req.Type {
	case protocol.TypeGameCreate:
		var p protocol.CreatePayload
		if err = decode(req.Data, &p); err == nil {
			_, err = registry.CreateLobby(conn, p.Username)
		}

	case protocol.TypeRequestJoin:
		var p protocol.JoinPayload
		if err = decode(req.Data, &p); err == nil {
			_, err = registry.JoinLobby(conn, p.Username, p.Lobby)
		}

	case protocol.TypeGameStart:
		err = withLobby(registry, conn, func(lob *game.Lobby) error {
			return lob.Start(conn.ID)
		})

	case protocol.TypeFinishTurn:
		err = withLobby(registry, conn, func(lob *game.Lobby) error {
			return lob.FinishTurn(conn.ID)
		})

	case protocol.TypeRequestRoll:
		err = withLobby(registry, conn, func(lob *game.Lobby) error {
			return lob.Roll(conn.ID)
		})

	case protocol.TypeChoiceResponse:
		var p protocol.ChoicePayload
		if err = decode(req.Data, &p); err == nil {
			err = withLobby(registry, conn, func(lob *game.Lobby) error {
				return lob.ChoiceResponse(conn.ID, p.Label)
			})
		}

	case protocol.TypeRequestUpgrade:
		var p protocol.UpgradePayload
		if err = decode(req.Data, &p); err == nil {
			err = withLobby(registry, conn, func(lob *game.Lobby) error {
				return lob.Upgrade(conn.ID, p.Property.ID)
			})
		}

	case protocol.TypeGameEnd:
		err = registry.EndGame(conn.ID)

	default:
		conn.Write(protocol.UnknownTypeError(req.Type))
		return
	}

	if err != nil {
		var gameErr *game.Error
		if errors.As(err, &gameErr) {
			conn.WriteError(gameErr.Code, gameErr.Message)
			return
		}
		// Anything unexpected degrades to a generic validation error; the
		// connection stays open.
		logger.Warnf("connection %s: %s failed: %v", conn.ID, req.Type, err)
		conn.Write(protocol.ErrorEvent(400, "Invalid JSON"))
	}
}

// decode unmarshals a request payload. A missing data object decodes to
// zero values, which the game layer rejects field by field.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// withLobby resolves the caller's lobby and runs fn against it.
func withLobby(registry *game.Registry, conn *game.Connection, fn func(*game.Lobby) error) error {
	lob, err := registry.LobbyFor(conn.ID)
	if err != nil {
		return err
	}
	return fn(lob)
}

// writePump drains the connection's outbound queue onto the socket,
// keeping per-connection send order, and pings periodically.
func writePump(ctx context.Context, c *websocket.Conn, conn *game.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-conn.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				logger.Warnf("connection %s: failed to marshal %s: %v", conn.ID, env.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: write failed: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
