package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

type fakeUsers struct {
	byUsername map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byUsername: make(map[string]*domain.User)}
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, apperrors.NotFoundError("user not found")
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) Add(_ context.Context, user *domain.User) (*domain.User, error) {
	user.ID = bson.NewObjectID()
	clone := *user
	f.byUsername[user.Username] = &clone

	returned := *user
	returned.Password = ""
	return &returned, nil
}

func TestSignup_HashesPassword(t *testing.T) {
	users := newFakeUsers()
	svc := NewService(users)

	created, err := svc.Signup(context.Background(), "alice", "s3cret", "Alice", "")
	require.NoError(t, err)
	assert.Empty(t, created.Password)

	stored := users.byUsername["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret", stored.Password, "Plaintext must never be stored")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret")))
}

func TestSignup_Validation(t *testing.T) {
	svc := NewService(newFakeUsers())
	ctx := context.Background()

	cases := []struct {
		name                         string
		username, password, fullname string
	}{
		{"missing username", "", "s3cret", "Alice"},
		{"missing password", "alice", "", "Alice"},
		{"missing fullname", "alice", "s3cret", ""},
		{"short password", "alice", "abc", "Alice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.username, tc.password, tc.fullname, "")
			require.Error(t, err)
			assert.Equal(t, apperrors.TypeValidation, apperrors.AsStructuredError(err).Type)
		})
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	svc := NewService(newFakeUsers())
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "s3cret", "Alice", "")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "alice", "other", "Other Alice", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeConflict, apperrors.AsStructuredError(err).Type)
}

func TestLogin(t *testing.T) {
	svc := NewService(newFakeUsers())
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "s3cret", "Alice", "")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password)

	// Wrong password and unknown user yield the same error.
	_, badPass := svc.Login(ctx, "alice", "wrong")
	require.Error(t, badPass)
	_, badUser := svc.Login(ctx, "nobody", "s3cret")
	require.Error(t, badUser)
	assert.Equal(t, badPass.Error(), badUser.Error())
	assert.Equal(t, apperrors.TypeUnauthorized, apperrors.AsStructuredError(badPass).Type)
}
