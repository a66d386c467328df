package server

import (
	"github.com/labstack/echo/v4"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

const ctxKeyUser = "loggedinUser"

// requireAuth resolves the session cookie into the logged-in user and stores
// it on the request context. Requests without a valid session get a 401.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return apperrors.UnauthorizedError("invalid session")
		}
		userID, ok := session.Values[sessionKeyUserID].(string)
		if !ok || userID == "" {
			return apperrors.UnauthorizedError("login required")
		}

		user, err := s.users.Get(c.Request().Context(), userID)
		if err != nil {
			// The session points at a user that no longer exists.
			return apperrors.UnauthorizedError("login required")
		}

		c.Set(ctxKeyUser, user)
		return next(c)
	}
}

func loggedinUser(c echo.Context) *domain.User {
	user, _ := c.Get(ctxKeyUser).(*domain.User)
	return user
}

func (s *Server) saveSession(c echo.Context, userID string) error {
	session, _ := s.sessionStore.Get(c.Request(), sessionName)
	session.Values[sessionKeyUserID] = userID
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}
	return nil
}

func (s *Server) clearSession(c echo.Context) error {
	session, _ := s.sessionStore.Get(c.Request(), sessionName)
	session.Options.MaxAge = -1
	delete(session.Values, sessionKeyUserID)
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}
	return nil
}
