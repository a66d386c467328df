package user

import (
	"context"

	"github.com/offbeatfm/offbeat/internal/domain"
)

// Store abstracts user persistence.
type Store interface {
	Query(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (string, error)
	Update(ctx context.Context, id, fullname string, score int) error
	Delete(ctx context.Context, id string) error

	LikedSongs(ctx context.Context, id string) ([]domain.Song, error)
	HasLikedSong(ctx context.Context, id, songID string) (bool, error)
	PushLikedSong(ctx context.Context, id string, song domain.Song) error
	PullLikedSong(ctx context.Context, id, songID string) error
}
