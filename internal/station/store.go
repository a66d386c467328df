package station

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/offbeatfm/offbeat/internal/domain"
)

// Store abstracts station persistence so the service can be tested without a
// running MongoDB.
type Store interface {
	Query(ctx context.Context, filter domain.StationFilter) ([]domain.Station, error)
	Get(ctx context.Context, id string) (*domain.Station, error)
	Insert(ctx context.Context, station *domain.Station) (string, error)
	Update(ctx context.Context, id string, name, description, imgURL string) error

	// Delete removes the station only when the criteria match; ownerID is
	// ignored for admins. Returns false when nothing matched.
	Delete(ctx context.Context, id string, ownerID bson.ObjectID, isAdmin bool) (bool, error)

	PushSong(ctx context.Context, id string, song domain.Song) error
	PullSong(ctx context.Context, id, songID string) error
	PushMsg(ctx context.Context, id string, msg domain.ChatMsg) error
	PullMsg(ctx context.Context, id, msgID string) error
	AddLike(ctx context.Context, id string, userID bson.ObjectID) (bool, error)
	RemoveLike(ctx context.Context, id string, userID bson.ObjectID) (bool, error)
}
