package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

type memStore struct {
	reviews map[string]*domain.Review
}

func newMemStore() *memStore {
	return &memStore{reviews: make(map[string]*domain.Review)}
}

var _ Store = (*memStore)(nil)

func (m *memStore) Query(_ context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	var out []domain.Review
	for _, r := range m.reviews {
		if filter.ByUserID != "" && (r.ByUser == nil || r.ByUser.ID.Hex() != filter.ByUserID) {
			continue
		}
		if filter.AboutUserID != "" && (r.AboutUser == nil || r.AboutUser.ID.Hex() != filter.AboutUserID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, apperrors.NotFoundError("review not found")
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) Insert(_ context.Context, review *domain.Review) (string, error) {
	review.ID = bson.NewObjectID()
	id := review.ID.Hex()
	clone := *review
	m.reviews[id] = &clone
	return id, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.reviews[id]; !ok {
		return apperrors.NotFoundError("review not found")
	}
	delete(m.reviews, id)
	return nil
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) Get(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFoundError("user not found")
	}
	return u, nil
}

type notification struct {
	event       string
	userID      string
	excludeUser string
}

type fakeNotifier struct {
	broadcasts []notification
	directs    []notification
}

func (f *fakeNotifier) BroadcastExcludingUser(eventType string, _ any, _, userID string) {
	f.broadcasts = append(f.broadcasts, notification{event: eventType, excludeUser: userID})
}

func (f *fakeNotifier) EmitToUser(userID, eventType string, _ any) {
	f.directs = append(f.directs, notification{event: eventType, userID: userID})
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeNotifier, *domain.User, *domain.User) {
	t.Helper()
	author := &domain.User{ID: bson.NewObjectID(), Username: "alice", Fullname: "Alice"}
	subject := &domain.User{ID: bson.NewObjectID(), Username: "bob", Fullname: "Bob"}
	users := &fakeUsers{users: map[string]*domain.User{
		author.ID.Hex():  author,
		subject.ID.Hex(): subject,
	}}
	store := newMemStore()
	notifier := &fakeNotifier{}
	return NewService(store, users, notifier), store, notifier, author, subject
}

func TestService_AddNotifies(t *testing.T) {
	svc, _, notifier, author, subject := newTestService(t)

	review, err := svc.Add(context.Background(), "great taste", 5, author.ID.Hex(), subject.ID.Hex())
	require.NoError(t, err)

	assert.False(t, review.ID.IsZero())
	require.NotNil(t, review.ByUser)
	assert.Equal(t, author.ID, review.ByUser.ID)
	require.NotNil(t, review.AboutUser)
	assert.Equal(t, subject.ID, review.AboutUser.ID)

	require.Len(t, notifier.broadcasts, 1)
	assert.Equal(t, EvReviewAdded, notifier.broadcasts[0].event)
	assert.Equal(t, author.ID.Hex(), notifier.broadcasts[0].excludeUser, "The author must not be re-notified")

	require.Len(t, notifier.directs, 1)
	assert.Equal(t, EvReviewAboutYou, notifier.directs[0].event)
	assert.Equal(t, subject.ID.Hex(), notifier.directs[0].userID)
}

func TestService_AddValidation(t *testing.T) {
	svc, store, notifier, author, subject := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", 3, author.ID.Hex(), subject.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeValidation, apperrors.AsStructuredError(err).Type)

	_, err = svc.Add(ctx, "self five", 5, author.ID.Hex(), author.ID.Hex())
	require.Error(t, err, "Self reviews are rejected")

	_, err = svc.Add(ctx, "ghost", 1, author.ID.Hex(), bson.NewObjectID().Hex())
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeNotFound, apperrors.AsStructuredError(err).Type)

	assert.Empty(t, store.reviews, "Nothing persisted on validation failure")
	assert.Empty(t, notifier.broadcasts, "Nothing announced on validation failure")
}

func TestService_QueryByReviewer(t *testing.T) {
	svc, _, _, author, subject := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "first", 4, author.ID.Hex(), subject.ID.Hex())
	require.NoError(t, err)
	_, err = svc.Add(ctx, "second", 2, subject.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)

	byAuthor, err := svc.Query(ctx, domain.ReviewFilter{ByUserID: author.ID.Hex()})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "first", byAuthor[0].Txt)

	aboutAuthor, err := svc.Query(ctx, domain.ReviewFilter{AboutUserID: author.ID.Hex()})
	require.NoError(t, err)
	require.Len(t, aboutAuthor, 1)
	assert.Equal(t, "second", aboutAuthor[0].Txt)
}

func TestService_RemoveOwnership(t *testing.T) {
	svc, store, _, author, subject := newTestService(t)
	ctx := context.Background()

	review, err := svc.Add(ctx, "to be removed", 1, author.ID.Hex(), subject.ID.Hex())
	require.NoError(t, err)
	id := review.ID.Hex()

	err = svc.Remove(ctx, id, subject)
	require.Error(t, err, "Only the author may remove their review")
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)

	require.NoError(t, svc.Remove(ctx, id, author))
	assert.Empty(t, store.reviews)
}

func TestService_AdminCanRemoveAnyReview(t *testing.T) {
	svc, store, _, author, subject := newTestService(t)
	ctx := context.Background()

	review, err := svc.Add(ctx, "spam", 1, author.ID.Hex(), subject.ID.Hex())
	require.NoError(t, err)

	admin := &domain.User{ID: bson.NewObjectID(), IsAdmin: true}
	require.NoError(t, svc.Remove(ctx, review.ID.Hex(), admin))
	assert.Empty(t, store.reviews)
}
