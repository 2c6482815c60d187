package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

func TestSortInbox(t *testing.T) {
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	entries := []InboxEntry{
		{Student: model.Student{Email: "zed@example.com", Name: "zed"}},
		{Student: model.Student{Email: "old@example.com"}, Latest: base},
		{Student: model.Student{Email: "amy@example.com", Name: "Amy"}},
		{Student: model.Student{Email: "new@example.com"}, Latest: base.Add(time.Hour)},
	}
	SortInbox(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.Student.Email)
	}
	assert.Equal(t, []string{"new@example.com", "old@example.com", "amy@example.com", "zed@example.com"}, got)
}

func seedStudents(t *testing.T, st *store.Store, emails ...string) {
	t.Helper()
	for _, e := range emails {
		require.NoError(t, st.UpsertStudent(context.Background(), model.Student{Email: e}))
	}
}

func TestInboxCountsUnreadAndPresence(t *testing.T) {
	_, st := newService(t)
	svc := NewService(st, model.Config{PresenceWindow: 2 * time.Hour})
	svc.SetClock(func() time.Time { return time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	seedStudents(t, st, "ann@example.com", "bob@example.com", "cat@example.com")
	ann := &model.User{Email: "ann@example.com", Role: model.UserRoleStudent}
	bob := &model.User{Email: "bob@example.com", Role: model.UserRoleStudent}

	_, err := svc.Send(ctx, ann, "", "first")
	require.NoError(t, err)
	_, err = svc.Send(ctx, ann, "", "second")
	require.NoError(t, err)
	_, err = svc.Send(ctx, admin, ann.Email, "reply")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, "", "latest")
	require.NoError(t, err)
	require.NoError(t, st.MergePresence(ctx, bob.Email, map[string]any{"online": true, "lastSeen": store.ServerTimestamp}))

	entries, err := svc.Inbox(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "bob@example.com", entries[0].Student.Email)
	assert.Equal(t, 1, entries[0].Unread)
	assert.True(t, entries[0].Online)

	assert.Equal(t, "ann@example.com", entries[1].Student.Email)
	assert.Equal(t, 2, entries[1].Unread, "admin replies do not count")
	assert.False(t, entries[1].Online)

	assert.Equal(t, "cat@example.com", entries[2].Student.Email)
	assert.Zero(t, entries[2].Unread)
	assert.True(t, entries[2].Latest.IsZero())
}

func nextEntries(t *testing.T, w *InboxWatch, match func([]InboxEntry) bool) []InboxEntry {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case entries, ok := <-w.Entries():
			require.True(t, ok, "inbox closed")
			if match(entries) {
				return entries
			}
		case <-timeout:
			t.Fatal("timed out waiting for inbox")
			return nil
		}
	}
}

func unreadOf(entries []InboxEntry, email string) int {
	for _, e := range entries {
		if e.Student.Email == email {
			return e.Unread
		}
	}
	return -1
}

func TestWatchInboxFollowsStudentsAndMessages(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seedStudents(t, st, "ann@example.com")

	w, err := svc.WatchInbox(ctx)
	require.NoError(t, err)
	defer w.Close()

	nextEntries(t, w, func(e []InboxEntry) bool { return len(e) == 1 })

	_, err = svc.Send(ctx, student, "", "help")
	require.NoError(t, err)
	nextEntries(t, w, func(e []InboxEntry) bool { return unreadOf(e, student.Email) == 1 })

	// A new student gets a thread subscription of their own.
	seedStudents(t, st, "bob@example.com")
	bob := &model.User{Email: "bob@example.com", Role: model.UserRoleStudent}
	_, err = svc.Send(ctx, bob, "", "me too")
	require.NoError(t, err)
	entries := nextEntries(t, w, func(e []InboxEntry) bool { return unreadOf(e, bob.Email) == 1 })
	assert.Equal(t, bob.Email, entries[0].Student.Email, "newest thread first")

	// Viewing a thread as admin clears its badge.
	tw, err := svc.WatchThread(ctx, student.Email, true)
	require.NoError(t, err)
	defer tw.Close()
	nextEntries(t, w, func(e []InboxEntry) bool { return unreadOf(e, student.Email) == 0 })
}

func TestInboxWatchClose(t *testing.T) {
	svc, st := newService(t)
	seedStudents(t, st, "ann@example.com")

	w, err := svc.WatchInbox(context.Background())
	require.NoError(t, err)
	nextEntries(t, w, func(e []InboxEntry) bool { return len(e) == 1 })
	w.Close()

	for range w.Entries() {
	}

	assert.Zero(t, st.WatcherCount(store.CollChats))
	assert.Zero(t, st.WatcherCount(store.CollStudents))
}
