package store

import (
	"context"
	"errors"

	"github.com/pavelanni/examportal/internal/model"
)

// PresenceQuery selects the status document of one identity.
func PresenceQuery(identity string) Query {
	return Collection(CollStatus).Doc(identity)
}

// MergePresence merge-upserts fields of an identity's status document.
func (s *Store) MergePresence(ctx context.Context, identity string, fields map[string]any) error {
	return s.Merge(ctx, CollStatus, identity, fields)
}

// GetPresence returns an identity's status; a missing document reads as offline.
func (s *Store) GetPresence(ctx context.Context, identity string) (model.Presence, error) {
	d, err := s.Get(ctx, CollStatus, identity)
	if errors.Is(err, model.ErrNotFound) {
		return model.Presence{Identity: identity}, nil
	}
	if err != nil {
		return model.Presence{}, err
	}
	return decodePresence(*d), nil
}

// DecodePresence extracts the status of identity from a snapshot of
// PresenceQuery(identity).
func DecodePresence(identity string, docs []Document) model.Presence {
	for _, d := range docs {
		if d.ID == identity {
			return decodePresence(d)
		}
	}
	return model.Presence{Identity: identity}
}
