package review

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/offbeatfm/offbeat/internal/database"
	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

// MongoStore persists reviews in the review collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *database.DB) *MongoStore {
	return &MongoStore{coll: db.Collection(database.CollReview)}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Query(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	criteria := bson.M{}
	if filter.ByUserID != "" {
		oid, err := bson.ObjectIDFromHex(filter.ByUserID)
		if err != nil {
			return nil, apperrors.ValidationError("invalid reviewer id")
		}
		criteria["byUser._id"] = oid
	}
	if filter.AboutUserID != "" {
		oid, err := bson.ObjectIDFromHex(filter.AboutUserID)
		if err != nil {
			return nil, apperrors.ValidationError("invalid reviewed user id")
		}
		criteria["aboutUser._id"] = oid
	}

	cursor, err := s.coll.Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []domain.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	for i := range reviews {
		reviews[i].CreatedAt = reviews[i].ID.Timestamp()
	}
	return reviews, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.Review, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ValidationError("invalid review id")
	}

	var review domain.Review
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFoundError("review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review %s: %w", id, err)
	}
	review.CreatedAt = review.ID.Timestamp()
	return &review, nil
}

func (s *MongoStore) Insert(ctx context.Context, review *domain.Review) (string, error) {
	result, err := s.coll.InsertOne(ctx, review)
	if err != nil {
		return "", fmt.Errorf("failed to insert review: %w", err)
	}
	oid := result.InsertedID.(bson.ObjectID)
	return oid.Hex(), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ValidationError("invalid review id")
	}
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete review %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFoundError("review not found")
	}
	return nil
}
