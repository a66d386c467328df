package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

func (s *Server) handleQueryStations(c echo.Context) error {
	filter := domain.StationFilter{
		Txt:       c.QueryParam("txt"),
		SortField: c.QueryParam("sortField"),
	}
	if v := c.QueryParam("sortDir"); v != "" {
		dir, err := strconv.Atoi(v)
		if err != nil || (dir != 1 && dir != -1) {
			return apperrors.ValidationError("sortDir must be 1 or -1")
		}
		filter.SortDir = dir
	}
	if v := c.QueryParam("pageIdx"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 {
			return apperrors.ValidationError("pageIdx must be a non-negative integer")
		}
		filter.PageIdx = &idx
	}

	stations, err := s.stations.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if stations == nil {
		stations = []domain.Station{}
	}
	return c.JSON(http.StatusOK, stations)
}

func (s *Server) handleGetStation(c echo.Context) error {
	station, err := s.stations.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, station)
}

func (s *Server) handleAddStation(c echo.Context) error {
	var station domain.Station
	if err := c.Bind(&station); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	created, err := s.stations.Add(c.Request().Context(), &station, loggedinUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateStation(c echo.Context) error {
	var station domain.Station
	if err := c.Bind(&station); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	existing, err := s.stations.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	station.ID = existing.ID

	updated, err := s.stations.Update(c.Request().Context(), &station, loggedinUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleRemoveStation(c echo.Context) error {
	id := c.Param("id")
	if err := s.stations.Remove(c.Request().Context(), id, loggedinUser(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"removedId": id})
}

func (s *Server) handleAddSong(c echo.Context) error {
	var song domain.Song
	if err := c.Bind(&song); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	station, err := s.stations.AddSong(c.Request().Context(), c.Param("id"), song, loggedinUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, station)
}

func (s *Server) handleRemoveSong(c echo.Context) error {
	station, err := s.stations.RemoveSong(c.Request().Context(), c.Param("id"), c.Param("songId"), loggedinUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, station)
}

func (s *Server) handleAddStationMsg(c echo.Context) error {
	var msg domain.ChatMsg
	if err := c.Bind(&msg); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if msg.From == "" {
		msg.From = loggedinUser(c).Fullname
	}

	saved, err := s.stations.AddMsg(c.Request().Context(), c.Param("id"), msg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleRemoveStationMsg(c echo.Context) error {
	msgID := c.Param("msgId")
	if err := s.stations.RemoveMsg(c.Request().Context(), c.Param("id"), msgID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"removedId": msgID})
}

func (s *Server) handleAddLike(c echo.Context) error {
	station, err := s.stations.AddLike(c.Request().Context(), c.Param("id"), loggedinUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, station)
}

func (s *Server) handleRemoveLike(c echo.Context) error {
	station, err := s.stations.RemoveLike(c.Request().Context(), c.Param("id"), loggedinUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, station)
}
