package review

import (
	"context"

	"github.com/offbeatfm/offbeat/internal/domain"
)

// Store abstracts review persistence.
type Store interface {
	Query(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
	Get(ctx context.Context, id string) (*domain.Review, error)
	Insert(ctx context.Context, review *domain.Review) (string, error)
	Delete(ctx context.Context, id string) error
}
