package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

var (
	admin   = &model.User{Email: "admin@gmail.com", Role: model.UserRoleAdmin}
	student = &model.User{Email: "ann@example.com", Role: model.UserRoleStudent}
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var mu sync.Mutex
	clock := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})
	return NewService(st, model.Config{TypingDelay: 20 * time.Millisecond}), st
}

func TestSendSetsParticipants(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, student, "", "hello")
	require.NoError(t, err)
	_, err = svc.Send(ctx, admin, student.Email, "hi Ann")
	require.NoError(t, err)

	msgs, err := st.Messages(ctx, student.Email)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, student.Email, msgs[0].From)
	assert.Equal(t, model.AdminID, msgs[0].To)
	assert.False(t, msgs[0].SeenByAdmin)
	assert.Equal(t, []string{model.AdminID, student.Email}, msgs[1].Participants)
	assert.Equal(t, 1, UnreadCount(msgs, student.Email))
}

func TestSendRejectsInvalid(t *testing.T) {
	svc, _ := newService(t)
	var verr *model.ValidationError

	_, err := svc.Send(context.Background(), student, "", "   ")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Send(context.Background(), admin, "", "hello")
	assert.ErrorAs(t, err, &verr)
}

func TestMarkThreadSeen(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, student, "", text)
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, admin, student.Email, "reply")
	require.NoError(t, err)

	msgs, err := st.Messages(ctx, student.Email)
	require.NoError(t, err)
	require.Equal(t, 3, UnreadCount(msgs, student.Email))

	n, err := svc.MarkThreadSeen(ctx, msgs, student.Email)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	msgs, err = st.Messages(ctx, student.Email)
	require.NoError(t, err)
	assert.Zero(t, UnreadCount(msgs, student.Email))
}

func TestWatchThreadAsAdminMarksSeen(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	_, err := svc.Send(ctx, student, "", "help")
	require.NoError(t, err)

	w, err := svc.WatchThread(ctx, student.Email, true)
	require.NoError(t, err)
	defer w.Close()

	require.Eventually(t, func() bool {
		msgs, err := st.Messages(ctx, student.Email)
		return err == nil && UnreadCount(msgs, student.Email) == 0
	}, time.Second, 10*time.Millisecond)

	var last []model.ChatMessage
	require.Eventually(t, func() bool {
		select {
		case last = <-w.Messages():
		default:
		}
		return len(last) == 1 && last[0].SeenByAdmin
	}, time.Second, 10*time.Millisecond)
}

func TestClear(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Send(ctx, student, "", "msg")
		require.NoError(t, err)
	}
	other := &model.User{Email: "bob@example.com", Role: model.UserRoleStudent}
	_, err := svc.Send(ctx, other, "", "keep me")
	require.NoError(t, err)

	n, err := svc.Clear(ctx, student.Email)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	msgs, err := st.Messages(ctx, student.Email)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	msgs, err = st.Messages(ctx, other.Email)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	msgs := []model.ChatMessage{
		{Text: "a", Timestamp: now.AddDate(0, 0, -3)},
		{Text: "b", Timestamp: now.AddDate(0, 0, -1)},
		{Text: "c", Timestamp: now.Add(-time.Hour)},
		{Text: "d", Timestamp: now},
	}
	days := GroupByDay(msgs, now, time.UTC)
	require.Len(t, days, 3)
	assert.False(t, days[0].Today || days[0].Yesterday)
	assert.True(t, days[1].Yesterday)
	assert.True(t, days[2].Today)
	assert.Len(t, days[2].Messages, 2)
}
