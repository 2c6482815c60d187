package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/pavelanni/examportal/internal/model"
)

// CreateUser inserts a new account keyed by lower-cased email.
// It fails with an AuthError when the email is taken.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(u.Email)
	existing, err := s.GetUserByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return &model.AuthError{Code: model.AuthEmailInUse}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if err := s.Set(ctx, CollUsers, u.Email, u); err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return err
	}
	slog.Info("created user", "email", u.Email, "role", u.Role)
	return nil
}

// GetUserByEmail returns a user by email, or nil if none exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	d, err := s.Get(ctx, CollUsers, strings.ToLower(email))
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := d.DataTo(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all accounts ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	docs, err := s.Query(ctx, Collection(CollUsers))
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		var u model.User
		if err := d.DataTo(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// SetUserActive enables or disables an account.
func (s *Store) SetUserActive(ctx context.Context, email string, active bool) error {
	return s.Update(ctx, CollUsers, strings.ToLower(email), map[string]any{"active": active})
}

// UserCount returns the total number of accounts.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	return s.Count(ctx, CollUsers)
}
