package user

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

// MongoStore persists users in the user collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *database.DB) *MongoStore {
	return &MongoStore{coll: db.Collection(database.CollUser)}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Query(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	criteria := bson.M{}
	if filter.Txt != "" {
		regex := bson.M{"$regex": filter.Txt, "$options": "i"}
		criteria["$or"] = bson.A{
			bson.M{"username": regex},
			bson.M{"fullname": regex},
		}
	}
	if filter.MinScore > 0 {
		criteria["score"] = bson.M{"$gte": filter.MinScore}
	}

	cursor, err := s.coll.Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range users {
		users[i].CreatedAt = users[i].ID.Timestamp()
	}
	return users, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ValidationError("invalid user id")
	}

	var user domain.User
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	user.CreatedAt = user.ID.Timestamp()
	return &user, nil
}

func (s *MongoStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) Insert(ctx context.Context, user *domain.User) (string, error) {
	result, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}
	oid := result.InsertedID.(bson.ObjectID)
	return oid.Hex(), nil
}

func (s *MongoStore) Update(ctx context.Context, id, fullname string, score int) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}

	update := bson.M{"$set": bson.M{"fullname": fullname, "score": score}}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFoundError("user not found")
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) LikedSongs(ctx context.Context, id string) ([]domain.Song, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ValidationError("invalid user id")
	}

	var user domain.User
	opts := options.FindOne().SetProjection(bson.M{"likedSongs": 1})
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load liked songs for %s: %w", id, err)
	}
	if user.LikedSongs == nil {
		return []domain.Song{}, nil
	}
	return user.LikedSongs, nil
}

func (s *MongoStore) HasLikedSong(ctx context.Context, id, songID string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, apperrors.ValidationError("invalid user id")
	}

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err = s.coll.FindOne(ctx, bson.M{"_id": oid, "likedSongs.id": songID}, opts).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check liked song: %w", err)
	}
	return true, nil
}

func (s *MongoStore) PushLikedSong(ctx context.Context, id string, song domain.Song) error {
	return s.updateLikedSongs(ctx, id, bson.M{"$push": bson.M{"likedSongs": song}})
}

func (s *MongoStore) PullLikedSong(ctx context.Context, id, songID string) error {
	return s.updateLikedSongs(ctx, id, bson.M{"$pull": bson.M{"likedSongs": bson.M{"id": songID}}})
}

func (s *MongoStore) updateLikedSongs(ctx context.Context, id string, update bson.M) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update liked songs for %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFoundError("user not found")
	}
	return nil
}
