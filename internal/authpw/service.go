// Package authpw provides email/password authentication on top of the
// subject-keyed user table: local accounts get a "local:" subject so they
// flow through the same identity path as externally issued tokens.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tandem/api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrMissingFields      = errors.New("email, password and name are required")
)

// UserStore is the slice of persistence authpw needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	UpsertUserBySubject(ctx context.Context, subject, name, email, avatarURL string) (store.User, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	store UserStore
}

func NewService(users UserStore) *Service {
	return &Service{store: users}
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignUp creates a local account. The subject "local:<email>" keys the user
// row, so a later sign-in resolves to the same identity.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" {
		return store.User{}, ErrMissingFields
	}
	if len(req.Password) < 8 {
		return store.User{}, ErrWeakPassword
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.UpsertUserBySubject(ctx, "local:"+email, name, email, "")
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, user.ID, string(hash)); err != nil {
		return store.User{}, fmt.Errorf("store password: %w", err)
	}
	return user, nil
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates a local account. Accounts provisioned from external
// tokens have no password hash and cannot sign in this way.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return store.User{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}
