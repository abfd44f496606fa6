package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"tandem/api/internal/store"
)

type mockUserStore struct {
	users  map[string]store.User
	nextID int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *mockUserStore) UpsertUserBySubject(_ context.Context, subject, name, email, avatarURL string) (store.User, error) {
	for _, user := range m.users {
		if user.Subject == subject {
			user.DisplayName = name
			m.users[user.ID] = user
			return user, nil
		}
	}
	m.nextID++
	user := store.User{
		ID:          fmt.Sprintf("usr_%d", m.nextID),
		Subject:     subject,
		DisplayName: name,
		Email:       email,
		AvatarURL:   avatarURL,
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockUserStore) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.users[userID] = user
	return nil
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockUserStore())

	t.Run("successful sign up", func(t *testing.T) {
		user, err := svc.SignUp(ctx, SignUpRequest{
			Email:    "Test@Example.com",
			Password: "password123",
			Name:     "Test User",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be set")
		}
		if user.Email != "test@example.com" {
			t.Errorf("expected lowercased email, got %q", user.Email)
		}
		if user.Subject != "local:test@example.com" {
			t.Errorf("expected local subject, got %q", user.Subject)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Email:    "test@example.com",
			Password: "password123",
			Name:     "Second User",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Email:    "test2@example.com",
			Password: "short",
			Name:     "Test User",
		})
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{})
		if !errors.Is(err, ErrMissingFields) {
			t.Errorf("expected ErrMissingFields, got %v", err)
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	users := newMockUserStore()
	svc := NewService(users)

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	t.Run("successful sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "Test@Example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "test@example.com" {
			t.Errorf("expected email test@example.com, got %s", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "test@example.com",
			Password: "wrongpassword",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nonexistent@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("externally provisioned account has no password", func(t *testing.T) {
		if _, err := users.UpsertUserBySubject(ctx, "oidc:ext-1", "External", "ext@example.com", ""); err != nil {
			t.Fatalf("seed external user: %v", err)
		}
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "ext@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
