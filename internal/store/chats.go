package store

import (
	"context"
	"time"

	"github.com/pavelanni/examportal/internal/model"
)

// ThreadQuery selects every message a student exchanged with the admin,
// oldest first.
func ThreadQuery(student string) Query {
	return Collection(CollChats).
		Where("participants", OpArrayContains, student).
		Order("timestamp", Asc)
}

// AddMessage stores a chat message with a server-assigned timestamp.
func (s *Store) AddMessage(ctx context.Context, m model.ChatMessage) (string, error) {
	return s.Add(ctx, CollChats, map[string]any{
		"from":         m.From,
		"to":           m.To,
		"participants": m.Participants,
		"text":         m.Text,
		"timestamp":    ServerTimestamp,
		"seenByAdmin":  m.SeenByAdmin,
	})
}

// Messages returns the conversation between student and admin, oldest first.
func (s *Store) Messages(ctx context.Context, student string) ([]model.ChatMessage, error) {
	docs, err := s.Query(ctx, ThreadQuery(student))
	if err != nil {
		return nil, err
	}
	return DecodeMessages(docs), nil
}

// DecodeMessages converts chat documents to messages, keeping their order.
func DecodeMessages(docs []Document) []model.ChatMessage {
	msgs := make([]model.ChatMessage, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, decodeMessage(d))
	}
	return msgs
}

// MarkSeen flips seenByAdmin on one message.
func (s *Store) MarkSeen(ctx context.Context, id string) error {
	return s.Update(ctx, CollChats, id, map[string]any{"seenByAdmin": true})
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return s.Delete(ctx, CollChats, id)
}

// LatestMessageTime returns the timestamp of the newest message involving
// student, or the zero time when there is none.
func (s *Store) LatestMessageTime(ctx context.Context, student string) (time.Time, error) {
	docs, err := s.Query(ctx, ThreadQuery(student).Order("timestamp", Desc).Take(1))
	if err != nil || len(docs) == 0 {
		return time.Time{}, err
	}
	return decodeMessage(docs[0]).Timestamp, nil
}
