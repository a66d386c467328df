// Package review implements peer reviews between users. Adding a review fans
// out over the realtime hub so online users learn about it immediately.
package review

import (
	"context"
	"log/slog"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

// Realtime notification event types.
const (
	EvReviewAdded    = "review-added"
	EvReviewAboutYou = "review-about-you"
)

// UserGetter resolves user snapshots for the embedded review refs.
type UserGetter interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Notifier pushes review notifications to connected clients.
type Notifier interface {
	BroadcastExcludingUser(eventType string, payload any, roomKey, userID string)
	EmitToUser(userID, eventType string, payload any)
}

type Service struct {
	store    Store
	users    UserGetter
	notifier Notifier
}

func NewService(store Store, users UserGetter, notifier Notifier) *Service {
	return &Service{store: store, users: users, notifier: notifier}
}

func (s *Service) Query(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	return s.store.Query(ctx, filter)
}

// Add stores the review and notifies: everyone except the author sees
// review-added, and the reviewed user additionally gets review-about-you.
func (s *Service) Add(ctx context.Context, txt string, rating int, byUserID, aboutUserID string) (*domain.Review, error) {
	if txt == "" {
		return nil, apperrors.ValidationError("review text is required")
	}
	if byUserID == aboutUserID {
		return nil, apperrors.ValidationError("cannot review yourself")
	}

	author, err := s.users.Get(ctx, byUserID)
	if err != nil {
		return nil, err
	}
	about, err := s.users.Get(ctx, aboutUserID)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		Txt:       txt,
		Rating:    rating,
		ByUser:    &domain.UserRef{ID: author.ID, Fullname: author.Fullname, ImgURL: author.ImgURL},
		AboutUser: &domain.UserRef{ID: about.ID, Fullname: about.Fullname, ImgURL: about.ImgURL},
	}
	id, err := s.store.Insert(ctx, review)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("Review added", "review_id", id, "by", byUserID, "about", aboutUserID)

	if s.notifier != nil {
		s.notifier.BroadcastExcludingUser(EvReviewAdded, saved, "", byUserID)
		s.notifier.EmitToUser(aboutUserID, EvReviewAboutYou, saved)
	}
	return saved, nil
}

// Remove deletes a review; only its author or an admin may do so.
func (s *Service) Remove(ctx context.Context, id string, actor *domain.User) error {
	review, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && (review.ByUser == nil || review.ByUser.ID != actor.ID) {
		return apperrors.ForbiddenError("only the author can remove a review")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Review removed", "review_id", id, "user_id", actor.ID.Hex())
	return nil
}
