package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/offbeatfm/offbeat/internal/metrics"
	"github.com/offbeatfm/offbeat/internal/realtime"
)

const maxInboundFrameSize = 8 * 1024

func (s *Server) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.config.CORSOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

// handleWebSocket upgrades the request and pumps inbound frames into the hub
// until the client goes away.
func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.WebSocketConnectionsRejected.Inc()
		slog.Warn("Websocket connection rejected", "ip", ip, "reason", reason)
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "connection limit reached",
		})
	}
	defer s.limits.Release(ip)

	wsConn, err := s.newUpgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		slog.Warn("Websocket upgrade failed", "ip", ip, "error", err)
		return nil
	}
	wsConn.SetReadLimit(maxInboundFrameSize)

	conn := realtime.NewWSConn(wsConn, s.clock)
	s.hub.Connect(conn)
	slog.Debug("Websocket connected", "conn_id", conn.ID(), "ip", ip)

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Websocket read error", "conn_id", conn.ID(), "error", err)
			}
			break
		}
		s.hub.HandleMessage(conn.ID(), raw)
	}

	s.hub.Disconnect(conn.ID())
	slog.Debug("Websocket disconnected", "conn_id", conn.ID(), "ip", ip)
	return nil
}
