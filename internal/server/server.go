// Package server wires the HTTP and websocket surface: the JSON API, the
// realtime upgrade endpoint, and the operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/offbeatfm/offbeat/internal/config"
	"github.com/offbeatfm/offbeat/internal/domain"
	"github.com/offbeatfm/offbeat/internal/realtime"
	"github.com/offbeatfm/offbeat/internal/youtube"
)

const (
	sessionName      = "offbeat-session"
	sessionKeyUserID = "user_id"
	sessionMaxAge    = 7 * 24 * time.Hour
)

type authService interface {
	Signup(ctx context.Context, username, password, fullname, imgURL string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, error)
}

type userService interface {
	Query(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Remove(ctx context.Context, id string) error
	LikedSongs(ctx context.Context, id string) ([]domain.Song, error)
	AddLikedSong(ctx context.Context, id string, song domain.Song) ([]domain.Song, error)
	RemoveLikedSong(ctx context.Context, id, songID string) ([]domain.Song, error)
}

type stationService interface {
	Query(ctx context.Context, filter domain.StationFilter) ([]domain.Station, error)
	Get(ctx context.Context, id string) (*domain.Station, error)
	Add(ctx context.Context, station *domain.Station, owner *domain.User) (*domain.Station, error)
	Update(ctx context.Context, station *domain.Station, actor *domain.User) (*domain.Station, error)
	Remove(ctx context.Context, id string, actor *domain.User) error
	AddSong(ctx context.Context, stationID string, song domain.Song, actor *domain.User) (*domain.Station, error)
	RemoveSong(ctx context.Context, stationID, songID string, actor *domain.User) (*domain.Station, error)
	AddMsg(ctx context.Context, stationID string, msg domain.ChatMsg) (domain.ChatMsg, error)
	RemoveMsg(ctx context.Context, stationID, msgID string) error
	AddLike(ctx context.Context, stationID string, userID bson.ObjectID) (*domain.Station, error)
	RemoveLike(ctx context.Context, stationID string, userID bson.ObjectID) (*domain.Station, error)
}

type reviewService interface {
	Query(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
	Add(ctx context.Context, txt string, rating int, byUserID, aboutUserID string) (*domain.Review, error)
	Remove(ctx context.Context, id string, actor *domain.User) error
}

type youtubeService interface {
	Search(ctx context.Context, term string, maxResults int) (json.RawMessage, error)
	Video(ctx context.Context, id string) (json.RawMessage, error)
	Playlist(ctx context.Context, id string) (json.RawMessage, error)
	PlaylistItems(ctx context.Context, playlistID string, maxResults int) (json.RawMessage, error)
	ClearCache() int
	CacheStats() youtube.CacheStats
}

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	auth     authService
	users    userService
	stations stationService
	reviews  reviewService
	youtube  youtubeService

	hub          *realtime.Hub
	clock        clockwork.Clock
	sessionStore *sessions.CookieStore
	limits       *ConnectionLimits
	db           Pinger
	startTime    time.Time
}

func NewServer(
	cfg *config.Config,
	auth authService,
	users userService,
	stations stationService,
	reviews reviewService,
	yt youtubeService,
	hub *realtime.Hub,
	db Pinger,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		auth:         auth,
		users:        users,
		stations:     stations,
		reviews:      reviews,
		youtube:      yt,
		hub:          hub,
		clock:        clock,
		sessionStore: setupSessionStore(cfg),
		limits:       NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnsPerIP, 10, 10),
		db:           db,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
