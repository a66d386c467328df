package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

func (s *Server) handleQueryUsers(c echo.Context) error {
	filter := domain.UserFilter{Txt: c.QueryParam("txt")}
	if v := c.QueryParam("minScore"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.ValidationError("minScore must be an integer")
		}
		filter.MinScore = min
	}

	users, err := s.users.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if users == nil {
		users = []domain.User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) handleGetUser(c echo.Context) error {
	user, err := s.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// handleUpdateUser lets users edit themselves; admins can edit anyone.
func (s *Server) handleUpdateUser(c echo.Context) error {
	id := c.Param("id")
	actor := loggedinUser(c)
	if !actor.IsAdmin && actor.ID.Hex() != id {
		return apperrors.ForbiddenError("cannot update another user")
	}

	var user domain.User
	if err := c.Bind(&user); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	existing, err := s.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	user.ID = existing.ID

	updated, err := s.users.Update(c.Request().Context(), &user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleRemoveUser(c echo.Context) error {
	id := c.Param("id")
	actor := loggedinUser(c)
	if !actor.IsAdmin && actor.ID.Hex() != id {
		return apperrors.ForbiddenError("cannot remove another user")
	}

	if err := s.users.Remove(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"removedId": id})
}

func (s *Server) handleLikedSongs(c echo.Context) error {
	songs, err := s.users.LikedSongs(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]domain.Song{"likedSongs": songs})
}

func (s *Server) handleAddLikedSong(c echo.Context) error {
	id := c.Param("id")
	actor := loggedinUser(c)
	if actor.ID.Hex() != id {
		return apperrors.ForbiddenError("cannot like songs for another user")
	}

	var song domain.Song
	if err := c.Bind(&song); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	songs, err := s.users.AddLikedSong(c.Request().Context(), id, song)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]domain.Song{"likedSongs": songs})
}

func (s *Server) handleRemoveLikedSong(c echo.Context) error {
	id := c.Param("id")
	actor := loggedinUser(c)
	if actor.ID.Hex() != id {
		return apperrors.ForbiddenError("cannot unlike songs for another user")
	}

	songs, err := s.users.RemoveLikedSong(c.Request().Context(), id, c.Param("songId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]domain.Song{"likedSongs": songs})
}
