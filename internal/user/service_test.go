package user

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
	users map[string]*domain.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*domain.User)}
}

var _ Store = (*memStore)(nil)

func (m *memStore) Query(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFoundError("user not found")
	}
	clone := *u
	return &clone, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.NotFoundError("user not found")
}

func (m *memStore) Insert(_ context.Context, user *domain.User) (string, error) {
	user.ID = bson.NewObjectID()
	id := user.ID.Hex()
	clone := *user
	m.users[id] = &clone
	return id, nil
}

func (m *memStore) Update(_ context.Context, id, fullname string, score int) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFoundError("user not found")
	}
	u.Fullname, u.Score = fullname, score
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memStore) LikedSongs(_ context.Context, id string) ([]domain.Song, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFoundError("user not found")
	}
	if u.LikedSongs == nil {
		return []domain.Song{}, nil
	}
	return u.LikedSongs, nil
}

func (m *memStore) HasLikedSong(_ context.Context, id, songID string) (bool, error) {
	u, ok := m.users[id]
	if !ok {
		return false, apperrors.NotFoundError("user not found")
	}
	for _, s := range u.LikedSongs {
		if s.ID == songID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) PushLikedSong(_ context.Context, id string, song domain.Song) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFoundError("user not found")
	}
	u.LikedSongs = append(u.LikedSongs, song)
	return nil
}

func (m *memStore) PullLikedSong(_ context.Context, id, songID string) error {
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFoundError("user not found")
	}
	for i, s := range u.LikedSongs {
		if s.ID == songID {
			u.LikedSongs = append(u.LikedSongs[:i], u.LikedSongs[i+1:]...)
			return nil
		}
	}
	return nil
}

type stubReviews struct {
	reviews []domain.Review
}

func (s *stubReviews) Query(_ context.Context, _ domain.ReviewFilter) ([]domain.Review, error) {
	return s.reviews, nil
}

func addUser(t *testing.T, svc *Service, username string) *domain.User {
	t.Helper()
	u, err := svc.Add(context.Background(), &domain.User{
		Username: username,
		Password: "hashed-secret",
		Fullname: "Full " + username,
	})
	require.NoError(t, err)
	return u
}

func TestService_AddDefaults(t *testing.T) {
	svc := NewService(newMemStore(), &stubReviews{})

	u := addUser(t, svc, "alice")
	assert.Equal(t, 100, u.Score)
	assert.NotNil(t, u.LikedSongs)
	assert.Empty(t, u.Password, "Reads never expose the password hash")
}

func TestService_QueryStripsPasswords(t *testing.T) {
	svc := NewService(newMemStore(), &stubReviews{})
	addUser(t, svc, "alice")
	addUser(t, svc, "bob")

	users, err := svc.Query(context.Background(), domain.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.Password)
	}
}

func TestService_GetAttachesGivenReviews(t *testing.T) {
	ref := &domain.UserRef{ID: bson.NewObjectID(), Fullname: "Alice"}
	reviews := &stubReviews{reviews: []domain.Review{
		{ID: bson.NewObjectID(), Txt: "nice", ByUser: ref},
	}}
	svc := NewService(newMemStore(), reviews)
	u := addUser(t, svc, "alice")

	loaded, err := svc.Get(context.Background(), u.ID.Hex())
	require.NoError(t, err)
	require.Len(t, loaded.GivenReviews, 1)
	assert.Equal(t, "nice", loaded.GivenReviews[0].Txt)
	assert.Nil(t, loaded.GivenReviews[0].ByUser, "Authorship is implied in a given-reviews listing")
}

func TestService_GetByUsernameKeepsPassword(t *testing.T) {
	svc := NewService(newMemStore(), &stubReviews{})
	addUser(t, svc, "alice")

	u, err := svc.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "hashed-secret", u.Password, "Credential checks need the stored hash")

	_, err = svc.GetByUsername(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeNotFound, apperrors.AsStructuredError(err).Type)
}

func TestService_Update(t *testing.T) {
	svc := NewService(newMemStore(), &stubReviews{})
	u := addUser(t, svc, "alice")

	u.Fullname = "Alice Cooper"
	u.Score = 250
	updated, err := svc.Update(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.Fullname)
	assert.Equal(t, 250, updated.Score)
}

func TestService_LikedSongs(t *testing.T) {
	svc := NewService(newMemStore(), &stubReviews{})
	u := addUser(t, svc, "alice")
	id := u.ID.Hex()
	ctx := context.Background()

	songs, err := svc.AddLikedSong(ctx, id, domain.Song{ID: "yt1", Title: "One"})
	require.NoError(t, err)
	require.Len(t, songs, 1)

	// Liking the same song again is a warned no-op.
	songs, err = svc.AddLikedSong(ctx, id, domain.Song{ID: "yt1", Title: "One"})
	require.NoError(t, err)
	assert.Len(t, songs, 1)

	songs, err = svc.AddLikedSong(ctx, id, domain.Song{ID: "yt2", Title: "Two"})
	require.NoError(t, err)
	assert.Len(t, songs, 2)

	songs, err = svc.RemoveLikedSong(ctx, id, "yt1")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "yt2", songs[0].ID)

	_, err = svc.AddLikedSong(ctx, id, domain.Song{})
	require.Error(t, err, "Song id is required")
}

func TestService_Remove(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &stubReviews{})
	u := addUser(t, svc, "alice")

	require.NoError(t, svc.Remove(context.Background(), u.ID.Hex()))
	assert.Empty(t, store.users)
}
