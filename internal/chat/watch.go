package chat

import (
	"context"
	"log/slog"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

// ThreadWatch streams the current messages of one thread.
type ThreadWatch struct {
	sub  *store.Subscription
	out  chan []model.ChatMessage
	done chan struct{}
}

// WatchThread subscribes to the thread of student. When asAdmin is set, every
// delivered snapshot marks the student's unseen messages as seen before it is
// handed out, so the rendered thread and its read receipts stay in step.
func (s *Service) WatchThread(ctx context.Context, student string, asAdmin bool) (*ThreadWatch, error) {
	sub, err := s.st.Watch(ctx, store.ThreadQuery(student))
	if err != nil {
		return nil, err
	}
	w := &ThreadWatch{sub: sub, out: make(chan []model.ChatMessage, 1), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer close(w.out)
		for snap := range sub.Snapshots() {
			msgs := store.DecodeMessages(snap.Docs)
			if asAdmin {
				if _, err := s.MarkThreadSeen(ctx, msgs, student); err != nil {
					slog.Warn("failed to mark thread seen", "student", student, "error", err)
				}
			}
			select {
			case <-w.out:
			default:
			}
			select {
			case w.out <- msgs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return w, nil
}

// Messages returns the delivery channel, closed when the watch ends.
func (w *ThreadWatch) Messages() <-chan []model.ChatMessage {
	return w.out
}

// Close releases the subscription.
func (w *ThreadWatch) Close() {
	w.sub.Close()
	<-w.done
}

// PresenceWatch streams the status of one identity.
type PresenceWatch struct {
	sub  *store.Subscription
	out  chan model.Presence
	done chan struct{}
}

// WatchPresence subscribes to the status document of identity.
func (s *Service) WatchPresence(ctx context.Context, identity string) (*PresenceWatch, error) {
	sub, err := s.st.Watch(ctx, store.PresenceQuery(identity))
	if err != nil {
		return nil, err
	}
	w := &PresenceWatch{sub: sub, out: make(chan model.Presence, 1), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer close(w.out)
		for snap := range sub.Snapshots() {
			p := store.DecodePresence(identity, snap.Docs)
			select {
			case <-w.out:
			default:
			}
			select {
			case w.out <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	return w, nil
}

// Updates returns the delivery channel, closed when the watch ends.
func (w *PresenceWatch) Updates() <-chan model.Presence {
	return w.out
}

// Close releases the subscription.
func (w *PresenceWatch) Close() {
	w.sub.Close()
	<-w.done
}
