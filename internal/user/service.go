// Package user implements user accounts, profile reads, and liked songs.
package user

import (
	"context"
	"log/slog"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

// ReviewLister supplies a user's given reviews without importing the review
// package directly.
type ReviewLister interface {
	Query(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
}

type Service struct {
	store   Store
	reviews ReviewLister
}

func NewService(store Store, reviews ReviewLister) *Service {
	return &Service{store: store, reviews: reviews}
}

// Query lists users matching the filter. Password hashes are stripped.
func (s *Service) Query(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	users, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// Get loads a user profile with the reviews they have written attached.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""

	if s.reviews != nil {
		given, err := s.reviews.Query(ctx, domain.ReviewFilter{ByUserID: id})
		if err != nil {
			return nil, err
		}
		// The reader already knows who wrote these.
		for i := range given {
			given[i].ByUser = nil
		}
		user.GivenReviews = given
	}
	return user, nil
}

// GetByUsername keeps the password hash; it exists for credential checks.
func (s *Service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.store.GetByUsername(ctx, username)
}

// Add inserts a prepared user record. Validation and password hashing happen
// in the auth service.
func (s *Service) Add(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.Score = 100
	if user.LikedSongs == nil {
		user.LikedSongs = []domain.Song{}
	}

	id, err := s.store.Insert(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("User created", "user_id", id, "username", user.Username)
	return s.Get(ctx, id)
}

// Update changes the editable profile fields only.
func (s *Service) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID.Hex()
	if err := s.store.Update(ctx, id, user.Fullname, user.Score); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("User removed", "user_id", id)
	return nil
}

func (s *Service) LikedSongs(ctx context.Context, id string) ([]domain.Song, error) {
	return s.store.LikedSongs(ctx, id)
}

// AddLikedSong is idempotent: liking an already-liked song returns the
// current list unchanged.
func (s *Service) AddLikedSong(ctx context.Context, id string, song domain.Song) ([]domain.Song, error) {
	if song.ID == "" {
		return nil, apperrors.ValidationError("song id is required")
	}

	liked, err := s.store.HasLikedSong(ctx, id, song.ID)
	if err != nil {
		return nil, err
	}
	if liked {
		slog.Warn("Song already liked", "user_id", id, "song_id", song.ID)
		return s.store.LikedSongs(ctx, id)
	}

	if err := s.store.PushLikedSong(ctx, id, song); err != nil {
		return nil, err
	}
	return s.store.LikedSongs(ctx, id)
}

func (s *Service) RemoveLikedSong(ctx context.Context, id, songID string) ([]domain.Song, error) {
	if err := s.store.PullLikedSong(ctx, id, songID); err != nil {
		return nil, err
	}
	return s.store.LikedSongs(ctx, id)
}
