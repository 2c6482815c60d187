package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

const offlineWriteTimeout = 2 * time.Second

// ObservedOnline decides whether the peer described by p should be shown as
// online. The admin judges students by the age of lastSeen; students take
// the admin's stored flag.
func ObservedOnline(p model.Presence, observerIsAdmin bool, now time.Time, window time.Duration) bool {
	if !observerIsAdmin {
		return p.Online
	}
	if p.LastSeen.IsZero() {
		return false
	}
	return now.Sub(p.LastSeen) < window
}

// Online applies ObservedOnline with the service clock and window.
func (s *Service) Online(p model.Presence, observerIsAdmin bool) bool {
	return ObservedOnline(p, observerIsAdmin, s.now(), s.cfg.PresenceWindow)
}

// Heartbeat keeps one identity's status document fresh while it runs.
type Heartbeat struct {
	st       *store.Store
	identity string
	interval time.Duration
}

// Heartbeat returns the heartbeat for user at its role's interval.
func (s *Service) Heartbeat(u *model.User) *Heartbeat {
	interval := s.cfg.StudentPing
	if u.IsAdmin() {
		interval = s.cfg.AdminPing
	}
	return &Heartbeat{st: s.st, identity: u.ChatID(), interval: interval}
}

// Run writes online status immediately and then on every interval until ctx
// ends, then makes a best-effort offline write.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.ping(ctx)
	for {
		select {
		case <-ctx.Done():
			h.offline()
			return
		case <-ticker.C:
			h.ping(ctx)
		}
	}
}

func (h *Heartbeat) ping(ctx context.Context) {
	err := h.st.MergePresence(ctx, h.identity, map[string]any{
		"online":   true,
		"lastSeen": store.ServerTimestamp,
	})
	if err != nil && ctx.Err() == nil {
		slog.Warn("presence ping failed", "identity", h.identity, "error", err)
	}
}

func (h *Heartbeat) offline() {
	ctx, cancel := context.WithTimeout(context.Background(), offlineWriteTimeout)
	defer cancel()
	err := h.st.MergePresence(ctx, h.identity, map[string]any{
		"online": false,
		"typing": false,
	})
	if err != nil {
		slog.Warn("offline write failed", "identity", h.identity, "error", err)
	}
}

// Typing publishes a typing flag with a trailing debounce: every keystroke
// sets typing and restarts the timer that clears it.
type Typing struct {
	st       *store.Store
	identity string
	delay    time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

// Typing returns the typing indicator of user.
func (s *Service) Typing(u *model.User) *Typing {
	return &Typing{st: s.st, identity: u.ChatID(), delay: s.cfg.TypingDelay}
}

// Keystroke records activity.
func (t *Typing) Keystroke(ctx context.Context) error {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.clear)
	t.active = true
	t.mu.Unlock()

	return t.st.MergePresence(ctx, t.identity, map[string]any{"typing": true})
}

// Stop cancels a pending clear and clears the flag if it is set.
func (t *Typing) Stop() {
	t.mu.Lock()
	pending := t.timer != nil && t.timer.Stop()
	t.timer = nil
	t.mu.Unlock()
	if pending {
		t.clear()
	}
}

func (t *Typing) clear() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), offlineWriteTimeout)
	defer cancel()
	if err := t.st.MergePresence(ctx, t.identity, map[string]any{"typing": false}); err != nil {
		slog.Warn("typing clear failed", "identity", t.identity, "error", err)
	}
}
