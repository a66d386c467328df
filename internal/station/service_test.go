package station

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

// memStore is an in-memory Store used to exercise the service rules.
type memStore struct {
	stations map[string]*domain.Station
}

func newMemStore() *memStore {
	return &memStore{stations: make(map[string]*domain.Station)}
}

var _ Store = (*memStore)(nil)

func (m *memStore) Query(_ context.Context, filter domain.StationFilter) ([]domain.Station, error) {
	var out []domain.Station
	for _, st := range m.stations {
		out = append(out, *st)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Station, error) {
	st, ok := m.stations[id]
	if !ok {
		return nil, apperrors.NotFoundError("station not found")
	}
	clone := *st
	return &clone, nil
}

func (m *memStore) Insert(_ context.Context, station *domain.Station) (string, error) {
	station.ID = bson.NewObjectID()
	id := station.ID.Hex()
	clone := *station
	m.stations[id] = &clone
	return id, nil
}

func (m *memStore) Update(_ context.Context, id, name, description, imgURL string) error {
	st, ok := m.stations[id]
	if !ok {
		return apperrors.NotFoundError("station not found")
	}
	st.Name, st.Description, st.ImgURL = name, description, imgURL
	return nil
}

func (m *memStore) Delete(_ context.Context, id string, ownerID bson.ObjectID, isAdmin bool) (bool, error) {
	st, ok := m.stations[id]
	if !ok {
		return false, nil
	}
	if !isAdmin && (st.Owner == nil || st.Owner.ID != ownerID) {
		return false, nil
	}
	delete(m.stations, id)
	return true, nil
}

func (m *memStore) PushSong(_ context.Context, id string, song domain.Song) error {
	st, ok := m.stations[id]
	if !ok {
		return apperrors.NotFoundError("station not found")
	}
	st.Songs = append(st.Songs, song)
	return nil
}

func (m *memStore) PullSong(_ context.Context, id, songID string) error {
	st, ok := m.stations[id]
	if !ok {
		return apperrors.NotFoundError("station not found")
	}
	for i, s := range st.Songs {
		if s.ID == songID {
			st.Songs = append(st.Songs[:i], st.Songs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) PushMsg(_ context.Context, id string, msg domain.ChatMsg) error {
	st, ok := m.stations[id]
	if !ok {
		return apperrors.NotFoundError("station not found")
	}
	st.Msgs = append(st.Msgs, msg)
	return nil
}

func (m *memStore) PullMsg(_ context.Context, id, msgID string) error {
	st, ok := m.stations[id]
	if !ok {
		return apperrors.NotFoundError("station not found")
	}
	for i, msg := range st.Msgs {
		if msg.ID == msgID {
			st.Msgs = append(st.Msgs[:i], st.Msgs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) AddLike(_ context.Context, id string, userID bson.ObjectID) (bool, error) {
	st, ok := m.stations[id]
	if !ok {
		return false, nil
	}
	for _, uid := range st.LikedByUsers {
		if uid == userID {
			return true, nil
		}
	}
	st.LikedByUsers = append(st.LikedByUsers, userID)
	return true, nil
}

func (m *memStore) RemoveLike(_ context.Context, id string, userID bson.ObjectID) (bool, error) {
	st, ok := m.stations[id]
	if !ok {
		return false, nil
	}
	for i, uid := range st.LikedByUsers {
		if uid == userID {
			st.LikedByUsers = append(st.LikedByUsers[:i], st.LikedByUsers[i+1:]...)
			break
		}
	}
	return true, nil
}

func testUser(admin bool) *domain.User {
	return &domain.User{
		ID:       bson.NewObjectID(),
		Username: "tester",
		Fullname: "Test User",
		IsAdmin:  admin,
	}
}

func newTestService(t *testing.T) (*Service, *memStore, *clockwork.FakeClock) {
	t.Helper()
	store := newMemStore()
	clock := clockwork.NewFakeClock()
	return NewService(store, clock), store, clock
}

func TestService_AddSetsOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := testUser(false)

	created, err := svc.Add(context.Background(), &domain.Station{Name: "Lo-fi beats"}, owner)
	require.NoError(t, err)

	assert.False(t, created.ID.IsZero())
	require.NotNil(t, created.Owner)
	assert.Equal(t, owner.ID, created.Owner.ID)
	assert.NotNil(t, created.Songs, "Songs must serialize as an empty array, not null")
}

func TestService_AddRequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Add(context.Background(), &domain.Station{}, testUser(false))
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeValidation, apperrors.AsStructuredError(err).Type)
}

func TestService_UpdateOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Jazz"}, owner)
	require.NoError(t, err)

	created.Name = "Smooth Jazz"
	_, err = svc.Update(context.Background(), created, testUser(false))
	require.Error(t, err, "A stranger cannot update the station")
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)

	updated, err := svc.Update(context.Background(), created, owner)
	require.NoError(t, err)
	assert.Equal(t, "Smooth Jazz", updated.Name)

	// Admins bypass ownership.
	created.Name = "Admin Jazz"
	updated, err = svc.Update(context.Background(), created, testUser(true))
	require.NoError(t, err)
	assert.Equal(t, "Admin Jazz", updated.Name)
}

func TestService_RemoveOwnership(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Rock"}, owner)
	require.NoError(t, err)
	id := created.ID.Hex()

	err = svc.Remove(context.Background(), id, testUser(false))
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)
	assert.Contains(t, store.stations, id, "Refused remove must leave the station intact")

	require.NoError(t, svc.Remove(context.Background(), id, owner))
	assert.NotContains(t, store.stations, id)
}

func TestService_AdminCanRemoveAnyStation(t *testing.T) {
	svc, store, _ := newTestService(t)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Pop"}, testUser(false))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), created.ID.Hex(), testUser(true)))
	assert.Empty(t, store.stations)
}

func TestService_AddSong(t *testing.T) {
	svc, _, clock := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Mix"}, owner)
	require.NoError(t, err)
	id := created.ID.Hex()

	song := domain.Song{ID: "yt123", Title: "Some Song"}
	updated, err := svc.AddSong(context.Background(), id, song, owner)
	require.NoError(t, err)
	require.Len(t, updated.Songs, 1)
	assert.Equal(t, clock.Now(), updated.Songs[0].AddedAt)
	require.NotNil(t, updated.Songs[0].AddedBy)
	assert.Equal(t, owner.ID, updated.Songs[0].AddedBy.ID)

	// Duplicate song id is a conflict.
	_, err = svc.AddSong(context.Background(), id, song, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeConflict, apperrors.AsStructuredError(err).Type)

	// Strangers cannot add songs.
	_, err = svc.AddSong(context.Background(), id, domain.Song{ID: "yt456"}, testUser(false))
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)
}

func TestService_RemoveSongIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Mix"}, owner)
	require.NoError(t, err)
	id := created.ID.Hex()

	_, err = svc.AddSong(context.Background(), id, domain.Song{ID: "yt123"}, owner)
	require.NoError(t, err)

	updated, err := svc.RemoveSong(context.Background(), id, "yt123", owner)
	require.NoError(t, err)
	assert.Empty(t, updated.Songs)

	// Removing again is not an error.
	updated, err = svc.RemoveSong(context.Background(), id, "yt123", owner)
	require.NoError(t, err)
	assert.Empty(t, updated.Songs)
}

func TestService_AddMsgAssignsIDAndTime(t *testing.T) {
	svc, _, clock := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Chat"}, owner)
	require.NoError(t, err)
	id := created.ID.Hex()

	msg, err := svc.AddMsg(context.Background(), id, domain.ChatMsg{From: "u1", Txt: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, clock.Now(), msg.At)

	_, err = svc.AddMsg(context.Background(), id, domain.ChatMsg{From: "u1"})
	require.Error(t, err, "Empty message text is rejected")

	require.NoError(t, svc.RemoveMsg(context.Background(), id, msg.ID))
	station, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, station.Msgs)
}

func TestService_Likes(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := testUser(false)
	created, err := svc.Add(context.Background(), &domain.Station{Name: "Likes"}, owner)
	require.NoError(t, err)
	id := created.ID.Hex()
	fan := bson.NewObjectID()

	updated, err := svc.AddLike(context.Background(), id, fan)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{fan}, updated.LikedByUsers)

	// Liking twice keeps a single entry.
	updated, err = svc.AddLike(context.Background(), id, fan)
	require.NoError(t, err)
	assert.Len(t, updated.LikedByUsers, 1)

	updated, err = svc.RemoveLike(context.Background(), id, fan)
	require.NoError(t, err)
	assert.Empty(t, updated.LikedByUsers)

	_, err = svc.AddLike(context.Background(), bson.NewObjectID().Hex(), fan)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeNotFound, apperrors.AsStructuredError(err).Type)
}
