package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examportal/internal/model"
)

func TestObservedOnline(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Second

	tests := []struct {
		name    string
		p       model.Presence
		byAdmin bool
		want    bool
	}{
		{name: "fresh lastSeen", p: model.Presence{LastSeen: now.Add(-5 * time.Second)}, byAdmin: true, want: true},
		{name: "stale lastSeen", p: model.Presence{Online: true, LastSeen: now.Add(-15 * time.Second)}, byAdmin: true, want: false},
		{name: "never seen", p: model.Presence{}, byAdmin: true, want: false},
		{name: "student trusts flag", p: model.Presence{Online: true, LastSeen: now.Add(-time.Hour)}, byAdmin: false, want: true},
		{name: "student sees offline flag", p: model.Presence{LastSeen: now}, byAdmin: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObservedOnline(tt.p, tt.byAdmin, now, window))
		})
	}
}

func TestHeartbeatWritesOnlineThenOffline(t *testing.T) {
	svc, st := newService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Heartbeat(student).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		p, err := st.GetPresence(context.Background(), student.Email)
		return err == nil && p.Online && !p.LastSeen.IsZero()
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	p, err := st.GetPresence(context.Background(), student.Email)
	require.NoError(t, err)
	assert.False(t, p.Online)
	assert.False(t, p.LastSeen.IsZero(), "offline write keeps lastSeen")
}

func TestHeartbeatUsesAdminIdentity(t *testing.T) {
	svc, st := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Heartbeat(admin).Run(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		p, err := st.GetPresence(context.Background(), model.AdminID)
		return err == nil && p.Online
	}, time.Second, 10*time.Millisecond)
}

func TestTypingDebounce(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	typing := svc.Typing(student)

	require.NoError(t, typing.Keystroke(ctx))
	p, err := st.GetPresence(ctx, student.Email)
	require.NoError(t, err)
	assert.True(t, p.Typing)

	require.Eventually(t, func() bool {
		p, err := st.GetPresence(ctx, student.Email)
		return err == nil && !p.Typing
	}, time.Second, 5*time.Millisecond)
}

func TestTypingStopClearsPending(t *testing.T) {
	svc, st := newService(t)
	svc.cfg.TypingDelay = time.Hour
	typing := svc.Typing(student)
	require.NoError(t, typing.Keystroke(context.Background()))

	typing.Stop()
	p, err := st.GetPresence(context.Background(), student.Email)
	require.NoError(t, err)
	assert.False(t, p.Typing)
}
