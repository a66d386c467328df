package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

func (s *Server) handleQueryReviews(c echo.Context) error {
	filter := domain.ReviewFilter{
		ByUserID:    c.QueryParam("byUserId"),
		AboutUserID: c.QueryParam("aboutUserId"),
	}

	reviews, err := s.reviews.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

type addReviewRequest struct {
	Txt         string `json:"txt"`
	Rating      int    `json:"rating"`
	AboutUserID string `json:"aboutUserId"`
}

func (s *Server) handleAddReview(c echo.Context) error {
	var req addReviewRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	review, err := s.reviews.Add(c.Request().Context(), req.Txt, req.Rating, loggedinUser(c).ID.Hex(), req.AboutUserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, review)
}

func (s *Server) handleRemoveReview(c echo.Context) error {
	id := c.Param("id")
	if err := s.reviews.Remove(c.Request().Context(), id, loggedinUser(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"removedId": id})
}
