package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Chatrigo/pkg/config"
	"Chatrigo/pkg/logger"
	svc "Chatrigo/pkg/services"
	tokenstore "Chatrigo/pkg/token"
)

const (
	wsReadLimit = 64 << 10
	wsPingEvery = 50 * time.Second
	wsWriteWait = 10 * time.Second
)

// wsPongWait is how long the connection may stay silent between frames.
var wsPongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type wsFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// ChatWS runs the send pipeline over a websocket.
// Client protocol (JSON messages):
//
//	-> {type: "send", sessionId: string, text: string}
//	<- {type: "sent", userMessage: {...}, botMessage: {...}}
//	<- {type: "error", status: number, error: string, details?: string}
func ChatWS(sender *svc.SendService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := tokenstore.Parse(config.JWTSecret, tokenStr)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, tokenstore.ErrRevoked) {
				msg = "Token has been revoked (logout)"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.L.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		// gorilla allows one concurrent writer; all writes go through out
		out := make(chan any, 4)
		done := make(chan struct{})
		go wsWriter(conn, out, done)
		defer func() {
			close(out)
			<-done
		}()

		ctx := c.Request.Context()
		for {
			// a send can outlast the previous deadline
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			mt, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.L.Info("ws closed", zap.String("user_id", claims.UserID), zap.Error(err))
				}
				return
			}
			if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
				continue
			}

			var frame wsFrame
			if err := json.Unmarshal(raw, &frame); err != nil || strings.ToLower(strings.TrimSpace(frame.Type)) != "send" {
				out <- gin.H{"type": "error", "status": http.StatusBadRequest, "error": "Invalid frame"}
				continue
			}

			ex, err := sender.Send(ctx, claims.UserID, frame.SessionID, frame.Text)
			if err != nil {
				status, body := errorBody(err)
				if status >= 500 {
					logger.L.Error("ws send failed", zap.String("user_id", claims.UserID), zap.Error(err))
				}
				body["type"] = "error"
				body["status"] = status
				out <- body
				continue
			}
			reply := exchangeJSON(ex)
			reply["type"] = "sent"
			out <- reply
		}
	}
}

func wsWriter(conn *websocket.Conn, out <-chan any, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.L.Debug("ws write failed", zap.Error(err))
				drain(conn, out)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				drain(conn, out)
				return
			}
		}
	}
}

// drain closes the connection so the reader loop ends, then discards what
// it still queues.
func drain(conn *websocket.Conn, out <-chan any) {
	_ = conn.Close()
	for range out {
	}
}
