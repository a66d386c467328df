// Package auth implements credential handling: bcrypt-hashed signup and login.
// Session cookies are issued by the HTTP layer on top of these checks.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/offbeatfm/offbeat/internal/domain"
	apperrors "github.com/offbeatfm/offbeat/internal/errors"
)

const minPasswordLength = 4

// UserService is the slice of the user service auth depends on.
type UserService interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Add(ctx context.Context, user *domain.User) (*domain.User, error)
}

type Service struct {
	users UserService
}

func NewService(users UserService) *Service {
	return &Service{users: users}
}

// Signup registers a new user with a hashed password.
func (s *Service) Signup(ctx context.Context, username, password, fullname, imgURL string) (*domain.User, error) {
	if username == "" || password == "" || fullname == "" {
		return nil, apperrors.ValidationError("username, password and fullname are required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.ValidationError("password is too short")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil && apperrors.AsStructuredError(err).Type != apperrors.TypeNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ConflictError("username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err)
	}

	user, err := s.users.Add(ctx, &domain.User{
		Username: username,
		Password: string(hash),
		Fullname: fullname,
		ImgURL:   imgURL,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("User signed up", "username", username, "user_id", user.ID.Hex())
	return user, nil
}

// Login verifies credentials and returns the user without the password hash.
// Unknown username and wrong password are deliberately indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, apperrors.ValidationError("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.AsStructuredError(err).Type == apperrors.TypeNotFound {
			return nil, apperrors.UnauthorizedError("invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Warn("Failed login attempt", "username", username)
			return nil, apperrors.UnauthorizedError("invalid username or password")
		}
		return nil, apperrors.InternalError("failed to verify password", err)
	}

	user.Password = ""
	slog.Info("User logged in", "username", username, "user_id", user.ID.Hex())
	return user, nil
}
