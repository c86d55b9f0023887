package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/DoyleJ11/tier-auction/internal/types"
	wire "github.com/DoyleJ11/tier-auction/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 30 * time.Second
)

type Options struct {
	Logger         *zap.Logger
	OriginPatterns []string
}

// Handler upgrades to a websocket, resolves the role from the "key" query
// parameter and bridges frames to the lobby inbox.
func Handler(lb *lobby.Lobby, resolver *auth.Resolver, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		who := resolver.Resolve(r.URL.Query().Get("key"))

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("client_id", clientID), zap.String("role", string(who.Role)))
		log.Info("client connected", zap.String("manager_id", string(who.ManagerID)))

		welcome, _ := json.Marshal(wire.ServerMessage{Type: types.TypeWelcome, Who: &who})
		if err := writeFrame(r.Context(), conn, welcome); err != nil {
			return
		}

		out := make(chan lobby.Message, 16)
		if !lb.Send(r.Context(), lobby.Join{ClientID: clientID, Who: who, Outbox: out}) {
			return
		}
		defer lb.Send(context.Background(), lobby.Leave{ClientID: clientID})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, conn, out, log)

		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-writeCtx.Done():
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						conn.Close(websocket.StatusGoingAway, "ping timeout")
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Debug("client read ended", zap.Error(err))
				}
				return
			}

			var cm wire.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, ok := toLobbyMsg(clientID, who, cm)
			if !ok {
				_ = writeError(r.Context(), conn, "unknown type")
				continue
			}

			if !lb.Send(r.Context(), msg) {
				return
			}
		}
	}
}

// frameConn is the part of *websocket.Conn the writer needs.
type frameConn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// writeLoop drains the outbox onto the connection until the context ends,
// the lobby closes the outbox, or a write fails.
func writeLoop(ctx context.Context, conn frameConn, out <-chan lobby.Message, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-out:
			if !ok {
				// Lobby closed the outbox: slow client or shutdown.
				conn.Close(websocket.StatusTryAgainLater, "disconnected by server")
				return
			}
			payload, err := json.Marshal(types.FromLobby(m))
			if err != nil {
				log.Error("encode message", zap.Error(err))
				continue
			}
			if err := writeFrame(ctx, conn, payload); err != nil {
				log.Debug("write failed", zap.Error(err))
				conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn frameConn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func writeError(ctx context.Context, conn frameConn, reason string) error {
	payload, _ := json.Marshal(wire.ServerMessage{Type: types.TypeError, Error: reason})
	return writeFrame(ctx, conn, payload)
}

func toLobbyMsg(clientID string, who auth.Identity, m wire.ClientMessage) (lobby.Msg, bool) {
	switch m.Type {
	case "PlaceBid":
		return lobby.FromClient{ClientID: clientID, Who: who, Cmd: engine.Command{
			Type:      engine.CmdPlaceBid,
			ManagerID: who.ManagerID,
			Increment: m.Increment,
		}}, true
	case "StartOrResume":
		return lobby.FromClient{ClientID: clientID, Who: who, Cmd: engine.Command{Type: engine.CmdStartOrResume}}, true
	case "ForceEndLot":
		return lobby.FromClient{ClientID: clientID, Who: who, Cmd: engine.Command{Type: engine.CmdForceEndLot}}, true
	case "UpdateManager":
		return lobby.FromClient{ClientID: clientID, Who: who, Cmd: engine.Command{
			Type:      engine.CmdUpdateManager,
			ManagerID: engine.ManagerID(m.ManagerID),
			Name:      m.Name,
			Coin:      m.Coin,
		}}, true
	case "Chat":
		return lobby.Chat{ClientID: clientID, Who: who, Text: m.Text}, true
	default:
		return nil, false
	}
}
