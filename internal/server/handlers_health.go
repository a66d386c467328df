package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 2 * time.Second

func (s *Server) handleHealth(c echo.Context) error {
	resp := map[string]any{
		"status": "ok",
		"uptime": s.clock.Now().Sub(s.startTime).String(),
	}
	if s.hub != nil {
		resp["connections"] = s.hub.ConnCount()
	}

	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	return c.JSON(status, resp)
}
