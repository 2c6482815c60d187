// Package chat implements the two-party student/admin conversation: threads
// on live subscriptions, read receipts, presence and typing indicators.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

// MaxMessageLen bounds the text of a single message.
const MaxMessageLen = 2000

// Service runs chat operations against the document store.
type Service struct {
	st  *store.Store
	cfg model.Config
	now func() time.Time
}

// NewService creates a chat service. Zero durations in cfg fall back to the
// defaults of the browser client.
func NewService(st *store.Store, cfg model.Config) *Service {
	if cfg.StudentPing <= 0 {
		cfg.StudentPing = 5 * time.Second
	}
	if cfg.AdminPing <= 0 {
		cfg.AdminPing = 30 * time.Second
	}
	if cfg.PresenceWindow <= 0 {
		cfg.PresenceWindow = 15 * time.Second
	}
	if cfg.TypingDelay <= 0 {
		cfg.TypingDelay = 1500 * time.Millisecond
	}
	return &Service{st: st, cfg: cfg, now: time.Now}
}

// SetClock replaces the clock used for presence decisions.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the effective timing configuration.
func (s *Service) Config() model.Config {
	return s.cfg
}

// Send posts text from sender into the thread of student. The admin writes
// to the student; a student always writes to the admin.
func (s *Service) Send(ctx context.Context, sender *model.User, student, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &model.ValidationError{Field: "text", Reason: "message is empty"}
	}
	if len(text) > MaxMessageLen {
		return "", &model.ValidationError{Field: "text", Reason: fmt.Sprintf("message longer than %d characters", MaxMessageLen)}
	}

	m := model.ChatMessage{Text: text}
	if sender.IsAdmin() {
		if student == "" {
			return "", &model.ValidationError{Field: "to", Reason: "no student selected"}
		}
		m.From, m.To = model.AdminID, student
	} else {
		m.From, m.To = sender.Email, model.AdminID
	}
	m.Participants = []string{m.From, m.To}

	id, err := s.st.AddMessage(ctx, m)
	if err != nil {
		return "", err
	}
	slog.Debug("chat message sent", "id", id, "from", m.From, "to", m.To)
	return id, nil
}

// UnreadCount counts the student's messages the admin has not seen.
func UnreadCount(msgs []model.ChatMessage, student string) int {
	n := 0
	for _, m := range msgs {
		if unseen(m, student) {
			n++
		}
	}
	return n
}

func unseen(m model.ChatMessage, student string) bool {
	return m.From == student && m.To == model.AdminID && !m.SeenByAdmin
}

// MarkThreadSeen flips seenByAdmin on every unseen message from student in
// msgs and returns how many it marked.
func (s *Service) MarkThreadSeen(ctx context.Context, msgs []model.ChatMessage, student string) (int, error) {
	var ids []string
	for _, m := range msgs {
		if unseen(m, student) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, id := range ids {
		g.Go(func() error {
			return s.st.MarkSeen(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("mark thread of %s seen: %w", student, err)
	}
	return len(ids), nil
}

// Clear deletes every message of the student's thread with the admin.
// Deletes run concurrently and already applied ones stay applied when
// another fails.
func (s *Service) Clear(ctx context.Context, student string) (int, error) {
	msgs, err := s.st.Messages(ctx, student)
	if err != nil {
		return 0, err
	}
	var g errgroup.Group
	g.SetLimit(8)
	for _, m := range msgs {
		g.Go(func() error {
			return s.st.DeleteMessage(ctx, m.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("clear chat of %s: %w", student, err)
	}
	slog.Info("chat cleared", "student", student, "messages", len(msgs))
	return len(msgs), nil
}

// Day groups the messages sent on one calendar day.
type Day struct {
	Date      time.Time
	Today     bool
	Yesterday bool
	Messages  []model.ChatMessage
}

// GroupByDay splits an ordered thread at calendar-day boundaries in loc.
func GroupByDay(msgs []model.ChatMessage, now time.Time, loc *time.Location) []Day {
	if loc == nil {
		loc = time.Local
	}
	today := dayOf(now.In(loc))
	var days []Day
	for _, m := range msgs {
		d := dayOf(m.Timestamp.In(loc))
		if len(days) == 0 || !days[len(days)-1].Date.Equal(d) {
			days = append(days, Day{
				Date:      d,
				Today:     d.Equal(today),
				Yesterday: d.Equal(today.AddDate(0, 0, -1)),
			})
		}
		last := &days[len(days)-1]
		last.Messages = append(last.Messages, m)
	}
	return days
}

func dayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
