package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

func (s *Server) handleYouTubeSearch(c echo.Context) error {
	maxResults, err := parseMaxResults(c)
	if err != nil {
		return err
	}

	payload, err := s.youtube.Search(c.Request().Context(), c.QueryParam("q"), maxResults)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func (s *Server) handleYouTubeVideo(c echo.Context) error {
	payload, err := s.youtube.Video(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func (s *Server) handleYouTubePlaylist(c echo.Context) error {
	payload, err := s.youtube.Playlist(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func (s *Server) handleYouTubePlaylistItems(c echo.Context) error {
	maxResults, err := parseMaxResults(c)
	if err != nil {
		return err
	}

	payload, err := s.youtube.PlaylistItems(c.Request().Context(), c.Param("id"), maxResults)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func (s *Server) handleYouTubeCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.youtube.CacheStats())
}

func (s *Server) handleYouTubeClearCache(c echo.Context) error {
	removed := s.youtube.ClearCache()
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

func parseMaxResults(c echo.Context) (int, error) {
	v := c.QueryParam("maxResults")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationError("maxResults must be a non-negative integer")
	}
	return n, nil
}
