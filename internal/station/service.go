// Package station implements the station CRUD service: playlists of songs
// with chat history and likes, owned by a user.
package station

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	return &Service{store: store, clock: clock}
}

func (s *Service) Query(ctx context.Context, filter domain.StationFilter) ([]domain.Station, error) {
	return s.store.Query(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Station, error) {
	return s.store.Get(ctx, id)
}

// Add creates a station owned by the given user.
func (s *Service) Add(ctx context.Context, station *domain.Station, owner *domain.User) (*domain.Station, error) {
	if station.Name == "" {
		return nil, apperrors.ValidationError("station name is required")
	}

	station.Owner = &domain.UserRef{
		ID:       owner.ID,
		Fullname: owner.Fullname,
		ImgURL:   owner.ImgURL,
	}
	if station.Songs == nil {
		station.Songs = []domain.Song{}
	}

	id, err := s.store.Insert(ctx, station)
	if err != nil {
		return nil, err
	}
	slog.Info("Station created", "station_id", id, "owner_id", owner.ID.Hex())
	return s.store.Get(ctx, id)
}

// Update changes the editable fields only; songs, msgs and likes have their
// own operations.
func (s *Service) Update(ctx context.Context, station *domain.Station, actor *domain.User) (*domain.Station, error) {
	if station.Name == "" {
		return nil, apperrors.ValidationError("station name is required")
	}

	id := station.ID.Hex()
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(existing, actor) {
		return nil, apperrors.ForbiddenError("only the owner can update a station")
	}

	if err := s.store.Update(ctx, id, station.Name, station.Description, station.ImgURL); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Remove deletes the station. Non-admins can only delete their own.
func (s *Service) Remove(ctx context.Context, id string, actor *domain.User) error {
	deleted, err := s.store.Delete(ctx, id, actor.ID, actor.IsAdmin)
	if err != nil {
		return err
	}
	if !deleted {
		slog.Warn("Station remove refused",
			"station_id", id,
			"user_id", actor.ID.Hex(),
			"is_admin", actor.IsAdmin,
		)
		return apperrors.ForbiddenError("not your station or station not found")
	}
	slog.Info("Station removed", "station_id", id, "user_id", actor.ID.Hex())
	return nil
}

// AddSong appends a song, refusing duplicates by song id.
func (s *Service) AddSong(ctx context.Context, stationID string, song domain.Song, actor *domain.User) (*domain.Station, error) {
	if song.ID == "" {
		return nil, apperrors.ValidationError("song id is required")
	}

	station, err := s.store.Get(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if !canModify(station, actor) {
		return nil, apperrors.ForbiddenError("only the owner can add songs")
	}
	for _, existing := range station.Songs {
		if existing.ID == song.ID {
			return nil, apperrors.ConflictError("song already exists in station")
		}
	}

	song.AddedBy = &domain.UserRef{ID: actor.ID, Fullname: actor.Fullname, ImgURL: actor.ImgURL}
	song.AddedAt = s.clock.Now()
	if err := s.store.PushSong(ctx, stationID, song); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, stationID)
}

// RemoveSong is idempotent: removing an absent song returns the station unchanged.
func (s *Service) RemoveSong(ctx context.Context, stationID, songID string, actor *domain.User) (*domain.Station, error) {
	station, err := s.store.Get(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if !canModify(station, actor) {
		return nil, apperrors.ForbiddenError("only the owner can remove songs")
	}

	found := false
	for _, existing := range station.Songs {
		if existing.ID == songID {
			found = true
			break
		}
	}
	if !found {
		slog.Warn("Song not found for removal", "station_id", stationID, "song_id", songID)
		return station, nil
	}

	if err := s.store.PullSong(ctx, stationID, songID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, stationID)
}

// AddMsg persists a chat message and returns it with its assigned id.
func (s *Service) AddMsg(ctx context.Context, stationID string, msg domain.ChatMsg) (domain.ChatMsg, error) {
	if msg.Txt == "" {
		return domain.ChatMsg{}, apperrors.ValidationError("message text is required")
	}
	msg.ID = uuid.NewString()
	msg.At = s.clock.Now()

	if err := s.store.PushMsg(ctx, stationID, msg); err != nil {
		return domain.ChatMsg{}, err
	}
	return msg, nil
}

func (s *Service) RemoveMsg(ctx context.Context, stationID, msgID string) error {
	return s.store.PullMsg(ctx, stationID, msgID)
}

func (s *Service) AddLike(ctx context.Context, stationID string, userID bson.ObjectID) (*domain.Station, error) {
	matched, err := s.store.AddLike(ctx, stationID, userID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperrors.NotFoundError("station not found")
	}
	return s.store.Get(ctx, stationID)
}

func (s *Service) RemoveLike(ctx context.Context, stationID string, userID bson.ObjectID) (*domain.Station, error) {
	matched, err := s.store.RemoveLike(ctx, stationID, userID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperrors.NotFoundError("station not found")
	}
	return s.store.Get(ctx, stationID)
}

func canModify(station *domain.Station, actor *domain.User) bool {
	if actor.IsAdmin {
		return true
	}
	return station.Owner != nil && station.Owner.ID == actor.ID
}
