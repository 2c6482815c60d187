package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/examportal/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession creates a new auth session token for a user.
func (s *Store) CreateAuthSession(ctx context.Context, email string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	err = s.Set(ctx, CollAuthSessions, token, model.AuthSession{
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(authSessionTTL),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the auth session for the given token, or nil if not found/expired.
func (s *Store) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	d, err := s.Get(ctx, CollAuthSessions, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess model.AuthSession
	if err := d.DataTo(&sess); err != nil {
		return nil, err
	}
	sess.ID = token
	if s.now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(ctx, token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(ctx context.Context, token string) error {
	return s.Delete(ctx, CollAuthSessions, token)
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions(ctx context.Context) error {
	docs, err := s.Query(ctx, Collection(CollAuthSessions))
	if err != nil {
		return err
	}
	now := s.now()
	for _, d := range docs {
		if timestamp(d.Data["expiresAt"]).Before(now) {
			if err := s.Delete(ctx, CollAuthSessions, d.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
