package chat

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

// InboxEntry is one student row of the admin inbox.
type InboxEntry struct {
	Student model.Student
	Unread  int
	Latest  time.Time
	Online  bool
	Typing  bool
}

// SortInbox orders entries by latest message, newest first; students without
// messages follow in name order.
func SortInbox(entries []InboxEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Latest.Equal(b.Latest) {
			return a.Latest.After(b.Latest)
		}
		return strings.ToLower(a.Student.DisplayName()) < strings.ToLower(b.Student.DisplayName())
	})
}

// Inbox builds the inbox once, without subscribing.
func (s *Service) Inbox(ctx context.Context) ([]InboxEntry, error) {
	students, err := s.st.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]InboxEntry, 0, len(students))
	for _, st := range students {
		msgs, err := s.st.Messages(ctx, st.Email)
		if err != nil {
			return nil, err
		}
		p, err := s.st.GetPresence(ctx, st.Email)
		if err != nil {
			return nil, err
		}
		entries = append(entries, s.entry(st, msgs, p))
	}
	SortInbox(entries)
	return entries, nil
}

func (s *Service) entry(st model.Student, msgs []model.ChatMessage, p model.Presence) InboxEntry {
	e := InboxEntry{
		Student: st,
		Unread:  UnreadCount(msgs, st.Email),
		Online:  s.Online(p, true),
		Typing:  p.Typing,
	}
	if n := len(msgs); n > 0 {
		e.Latest = msgs[n-1].Timestamp
	}
	return e
}

type threadUpdate struct {
	student string
	msgs    []model.ChatMessage
}

type studentThread struct {
	watch  *ThreadWatch
	cancel context.CancelFunc
	msgs   []model.ChatMessage
}

func (t *studentThread) release() {
	t.cancel()
	t.watch.Close()
}

// InboxWatch streams the admin inbox. It holds one thread subscription per
// student plus subscriptions on the student list and on presence.
type InboxWatch struct {
	out  chan []InboxEntry
	done chan struct{}
	stop context.CancelFunc
}

// WatchInbox subscribes to the inbox. Threads of students that disappear
// are released; new students get their own subscription.
func (s *Service) WatchInbox(ctx context.Context) (*InboxWatch, error) {
	ctx, cancel := context.WithCancel(ctx)
	studentsSub, err := s.st.Watch(ctx, store.Collection(store.CollStudents))
	if err != nil {
		cancel()
		return nil, err
	}
	statusSub, err := s.st.Watch(ctx, store.Collection(store.CollStatus))
	if err != nil {
		studentsSub.Close()
		cancel()
		return nil, err
	}

	w := &InboxWatch{out: make(chan []InboxEntry, 1), done: make(chan struct{}), stop: cancel}
	go s.runInbox(ctx, w, studentsSub, statusSub)
	return w, nil
}

func (s *Service) runInbox(ctx context.Context, w *InboxWatch, studentsSub, statusSub *store.Subscription) {
	defer close(w.done)
	defer close(w.out)

	threads := make(map[string]*studentThread)
	defer func() {
		for _, t := range threads {
			t.release()
		}
		studentsSub.Close()
		statusSub.Close()
	}()

	updates := make(chan threadUpdate)
	var students []model.Student
	presence := make(map[string]model.Presence)
	ready := false

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-studentsSub.Snapshots():
			if !ok {
				return
			}
			students = store.DecodeStudents(snap.Docs)
			s.syncThreads(ctx, threads, students, updates)
			ready = true
		case snap, ok := <-statusSub.Snapshots():
			if !ok {
				return
			}
			clear(presence)
			for _, d := range snap.Docs {
				presence[d.ID] = store.DecodePresence(d.ID, []store.Document{d})
			}
		case u := <-updates:
			t, ok := threads[u.student]
			if !ok {
				continue
			}
			t.msgs = u.msgs
		}
		if !ready {
			continue
		}

		entries := make([]InboxEntry, 0, len(students))
		for _, st := range students {
			var msgs []model.ChatMessage
			if t := threads[st.Email]; t != nil {
				msgs = t.msgs
			}
			p, ok := presence[st.Email]
			if !ok {
				p = model.Presence{Identity: st.Email}
			}
			entries = append(entries, s.entry(st, msgs, p))
		}
		SortInbox(entries)

		select {
		case <-w.out:
		default:
		}
		w.out <- entries
	}
}

// syncThreads releases subscriptions of removed students and opens one for
// each new student.
func (s *Service) syncThreads(ctx context.Context, threads map[string]*studentThread, students []model.Student, updates chan<- threadUpdate) {
	want := make(map[string]bool, len(students))
	for _, st := range students {
		want[st.Email] = true
	}
	for email, t := range threads {
		if !want[email] {
			t.release()
			delete(threads, email)
		}
	}
	for email := range want {
		if threads[email] != nil {
			continue
		}
		tctx, cancel := context.WithCancel(ctx)
		tw, err := s.WatchThread(tctx, email, false)
		if err != nil {
			cancel()
			slog.Warn("inbox thread subscription failed", "student", email, "error", err)
			continue
		}
		threads[email] = &studentThread{watch: tw, cancel: cancel}
		go func() {
			for msgs := range tw.Messages() {
				select {
				case updates <- threadUpdate{student: email, msgs: msgs}:
				case <-tctx.Done():
					return
				}
			}
		}()
	}
}

// Entries returns the delivery channel, closed when the watch ends.
func (w *InboxWatch) Entries() <-chan []InboxEntry {
	return w.out
}

// Close releases every subscription held by the inbox.
func (w *InboxWatch) Close() {
	w.stop()
	<-w.done
}
