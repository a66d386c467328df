package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	ImgURL   string `json:"imgUrl"`
}

func (s *Server) handleSignup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	user, err := s.auth.Signup(c.Request().Context(), req.Username, req.Password, req.Fullname, req.ImgURL)
	if err != nil {
		return err
	}
	if err := s.saveSession(c, user.ID.Hex()); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	user, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	if err := s.saveSession(c, user.ID.Hex()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.clearSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}
