package station

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/offbeatfm/offbeat/internal/database"
	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

const pageSize = 3

// MongoStore persists stations in the station collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *database.DB) *MongoStore {
	return &MongoStore{coll: db.Collection(database.CollStation)}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Query(ctx context.Context, filter domain.StationFilter) ([]domain.Station, error) {
	criteria := bson.M{}
	if filter.Txt != "" {
		regex := bson.M{"$regex": filter.Txt, "$options": "i"}
		criteria["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"description": regex},
		}
	}

	opts := options.Find()
	if filter.SortField != "" {
		dir := filter.SortDir
		if dir == 0 {
			dir = 1
		}
		opts.SetSort(bson.D{{Key: filter.SortField, Value: dir}})
	}
	if filter.PageIdx != nil {
		opts.SetSkip(int64(*filter.PageIdx * pageSize)).SetLimit(pageSize)
	}

	cursor, err := s.coll.Find(ctx, criteria, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer cursor.Close(ctx)

	var stations []domain.Station
	if err := cursor.All(ctx, &stations); err != nil {
		return nil, fmt.Errorf("failed to decode stations: %w", err)
	}
	for i := range stations {
		stations[i].CreatedAt = stations[i].ID.Timestamp()
	}
	return stations, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.Station, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ValidationError("invalid station id")
	}

	var station domain.Station
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&station)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFoundError("station not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find station %s: %w", id, err)
	}
	station.CreatedAt = station.ID.Timestamp()
	return &station, nil
}

func (s *MongoStore) Insert(ctx context.Context, station *domain.Station) (string, error) {
	result, err := s.coll.InsertOne(ctx, station)
	if err != nil {
		return "", fmt.Errorf("failed to insert station: %w", err)
	}
	oid := result.InsertedID.(bson.ObjectID)
	return oid.Hex(), nil
}

func (s *MongoStore) Update(ctx context.Context, id, name, description, imgURL string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ValidationError("invalid station id")
	}

	update := bson.M{"$set": bson.M{
		"name":        name,
		"description": description,
		"imgUrl":      imgURL,
	}}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update station %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFoundError("station not found")
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string, ownerID bson.ObjectID, isAdmin bool) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, apperrors.ValidationError("invalid station id")
	}

	criteria := bson.M{"_id": oid}
	if !isAdmin {
		criteria["owner._id"] = ownerID
	}

	result, err := s.coll.DeleteOne(ctx, criteria)
	if err != nil {
		return false, fmt.Errorf("failed to delete station %s: %w", id, err)
	}
	return result.DeletedCount > 0, nil
}

func (s *MongoStore) PushSong(ctx context.Context, id string, song domain.Song) error {
	return s.updateByID(ctx, id, bson.M{"$push": bson.M{"songs": song}})
}

func (s *MongoStore) PullSong(ctx context.Context, id, songID string) error {
	return s.updateByID(ctx, id, bson.M{"$pull": bson.M{"songs": bson.M{"id": songID}}})
}

func (s *MongoStore) PushMsg(ctx context.Context, id string, msg domain.ChatMsg) error {
	return s.updateByID(ctx, id, bson.M{"$push": bson.M{"msgs": msg}})
}

func (s *MongoStore) PullMsg(ctx context.Context, id, msgID string) error {
	return s.updateByID(ctx, id, bson.M{"$pull": bson.M{"msgs": bson.M{"id": msgID}}})
}

func (s *MongoStore) AddLike(ctx context.Context, id string, userID bson.ObjectID) (bool, error) {
	return s.matchedUpdate(ctx, id, bson.M{"$addToSet": bson.M{"likedByUsers": userID}})
}

func (s *MongoStore) RemoveLike(ctx context.Context, id string, userID bson.ObjectID) (bool, error) {
	return s.matchedUpdate(ctx, id, bson.M{"$pull": bson.M{"likedByUsers": userID}})
}

func (s *MongoStore) updateByID(ctx context.Context, id string, update bson.M) error {
	matched, err := s.matchedUpdate(ctx, id, update)
	if err != nil {
		return err
	}
	if !matched {
		return apperrors.NotFoundError("station not found")
	}
	return nil
}

func (s *MongoStore) matchedUpdate(ctx context.Context, id string, update bson.M) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, apperrors.ValidationError("invalid station id")
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return false, fmt.Errorf("failed to update station %s: %w", id, err)
	}
	return result.MatchedCount > 0, nil
}
