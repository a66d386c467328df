package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.config.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	s.echo.GET("/api/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/ws", s.handleWebSocket)

	api := s.echo.Group("/api")

	authGroup := api.Group("/auth", newRateLimiter(5, 10))
	authGroup.POST("/signup", s.handleSignup)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)

	users := api.Group("/user")
	users.GET("", s.handleQueryUsers)
	users.GET("/:id", s.handleGetUser)
	users.PUT("/:id", s.handleUpdateUser, s.requireAuth)
	users.DELETE("/:id", s.handleRemoveUser, s.requireAuth)
	users.GET("/:id/liked-songs", s.handleLikedSongs)
	users.POST("/:id/liked-songs", s.handleAddLikedSong, s.requireAuth)
	users.DELETE("/:id/liked-songs/:songId", s.handleRemoveLikedSong, s.requireAuth)

	stations := api.Group("/station")
	stations.GET("", s.handleQueryStations)
	stations.GET("/:id", s.handleGetStation)
	stations.POST("", s.handleAddStation, s.requireAuth)
	stations.PUT("/:id", s.handleUpdateStation, s.requireAuth)
	stations.DELETE("/:id", s.handleRemoveStation, s.requireAuth)
	stations.POST("/:id/song", s.handleAddSong, s.requireAuth)
	stations.DELETE("/:id/song/:songId", s.handleRemoveSong, s.requireAuth)
	stations.POST("/:id/msg", s.handleAddStationMsg, s.requireAuth)
	stations.DELETE("/:id/msg/:msgId", s.handleRemoveStationMsg, s.requireAuth)
	stations.POST("/:id/like", s.handleAddLike, s.requireAuth)
	stations.DELETE("/:id/like", s.handleRemoveLike, s.requireAuth)

	reviews := api.Group("/review")
	reviews.GET("", s.handleQueryReviews)
	reviews.POST("", s.handleAddReview, s.requireAuth)
	reviews.DELETE("/:id", s.handleRemoveReview, s.requireAuth)

	yt := api.Group("/youtube")
	yt.GET("/search", s.handleYouTubeSearch)
	yt.GET("/video/:id", s.handleYouTubeVideo)
	yt.GET("/playlist/:id", s.handleYouTubePlaylist)
	yt.GET("/playlist/:id/items", s.handleYouTubePlaylistItems)
	yt.GET("/cache/stats", s.handleYouTubeCacheStats)
	yt.DELETE("/cache", s.handleYouTubeClearCache, s.requireAuth)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}
