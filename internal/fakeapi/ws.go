package fakeapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/live"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	authWait       = 10 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type authPayload struct {
	Token string `json:"token"`
}

type authenticatedPayload struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// serveLive upgrades the request and runs the in-band authenticate
// handshake. onConnect runs once the client is registered; onEvent runs for
// every later frame.
func (s *Server) serveLive(hub *Hub, onConnect func(*Client), onEvent func(*Client, string, json.RawMessage)) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Debug("fakeapi: upgrade failed", zap.Error(err))
			return
		}
		conn.SetReadLimit(maxMessageSize)

		a, err := s.handshake(conn)
		if err != nil {
			b, _ := frame(live.EventAuthError, messagePayload{Message: err.Error()})
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.TextMessage, b)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}

		client := NewClient(a, conn)
		hub.Register(client)
		go client.WritePump(s.log)
		b, _ := frame(live.EventAuthenticated, authenticatedPayload{UserID: a.ID, UserType: a.UserType})
		client.enqueue(b)
		if onConnect != nil {
			onConnect(client)
		}

		defer func() {
			if onEvent != nil {
				s.leaveRoom(client)
			}
			hub.Unregister(client)
		}()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var msg inbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			if onEvent != nil {
				onEvent(client, msg.Event, msg.Data)
			}
		}
	}
}

// handshake waits for the authenticate frame and validates its token.
func (s *Server) handshake(conn *websocket.Conn) (*account, error) {
	_ = conn.SetReadDeadline(time.Now().Add(authWait))
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	if msg.Event != live.EventAuthenticate {
		return nil, errBadToken
	}
	var p authPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil || p.Token == "" {
		return nil, errBadToken
	}
	a, _, err := s.authenticate(p.Token)
	return a, err
}
