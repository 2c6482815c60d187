package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/examportal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock pins the store clock and returns a function that advances it.
func fixedClock(s *Store, start time.Time) func(time.Duration) {
	now := start
	s.SetClock(func() time.Time { return now })
	return func(d time.Duration) { now = now.Add(d) }
}

func sampleTest(title string) model.Test {
	return model.Test{
		Title:        title,
		PositiveMark: 4,
		NegativeMark: 1,
		Duration:     30,
		Active:       true,
		Questions: []model.Question{
			{Text: "2+2?", Options: [4]string{"3", "4", "5", "6"}, Answer: 1, Explanation: "Arithmetic."},
			{Text: "Capital of France?", Options: [4]string{"Paris", "Rome", "Oslo", "Bern"}, Answer: 0},
		},
	}
}

func TestDocumentCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Get(ctx, "things", "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "things", "a", map[string]any{"name": "first", "n": 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Merge(ctx, "things", "a", map[string]any{"n": 2}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	d, err := s.Get(ctx, "things", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Data["name"] != "first" || d.Data["n"] != float64(2) {
		t.Errorf("after merge data = %v, want name=first n=2", d.Data)
	}

	if err := s.Update(ctx, "things", "nope", map[string]any{"n": 3}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Update missing: err = %v, want ErrNotFound", err)
	}
	if err := s.Merge(ctx, "things", "b", map[string]any{"n": 3}); err != nil {
		t.Fatalf("Merge upsert: %v", err)
	}
	if n, _ := s.Count(ctx, "things"); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if err := s.Delete(ctx, "things", "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "things", "a"); err != nil {
		t.Errorf("Delete twice should be a no-op, got %v", err)
	}
	if _, err := s.Get(ctx, "things", "a"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get deleted: err = %v, want ErrNotFound", err)
	}
}

func TestSetRejectsNonObject(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set(context.Background(), "things", "x", []int{1, 2}); err == nil {
		t.Fatal("expected error storing a non-object document")
	}
}

func TestQueryFilterOrderLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	docs := map[string]map[string]any{
		"a": {"kind": "x", "rank": 3, "tags": []string{"red"}},
		"b": {"kind": "x", "rank": 1, "tags": []string{"red", "blue"}},
		"c": {"kind": "y", "rank": 2, "tags": []string{"blue"}},
		"d": {"kind": "x"},
	}
	for id, data := range docs {
		if err := s.Set(ctx, "items", id, data); err != nil {
			t.Fatalf("Set %s: %v", id, err)
		}
	}

	got, err := s.Query(ctx, Collection("items").Where("kind", OpEqual, "x").Order("rank", Asc))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	// d lacks the order field and is dropped.
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("ordered ids = %v, want [b a]", ids(got))
	}

	got, err = s.Query(ctx, Collection("items").Where("tags", OpArrayContains, "blue").Order("rank", Desc).Take(1))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("array-contains ids = %v, want [c]", ids(got))
	}

	got, err = s.Query(ctx, Collection("items").Doc("d"))
	if err != nil {
		t.Fatalf("Query doc: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d" {
		t.Errorf("doc query ids = %v, want [d]", ids(got))
	}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestWatchDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub, err := s.Watch(ctx, Collection("items").Where("kind", OpEqual, "x"))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	next := func() Snapshot {
		t.Helper()
		select {
		case snap := <-sub.Snapshots():
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
		return Snapshot{}
	}

	if snap := next(); len(snap.Docs) != 0 {
		t.Fatalf("initial snapshot has %d docs, want 0", len(snap.Docs))
	}
	if err := s.Set(ctx, "items", "a", map[string]any{"kind": "x"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if snap := next(); len(snap.Docs) != 1 {
		t.Fatalf("snapshot after write has %d docs, want 1", len(snap.Docs))
	}
	if got := s.WatcherCount("items"); got != 1 {
		t.Errorf("WatcherCount = %d, want 1", got)
	}

	sub.Close()
	if _, ok := <-sub.Snapshots(); ok {
		t.Error("snapshot channel should be closed after Close")
	}
	if got := s.WatcherCount("items"); got != 0 {
		t.Errorf("WatcherCount after Close = %d, want 0", got)
	}
}

func TestWatchCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Watch(ctx, Collection("items")); err == nil {
		t.Fatal("expected error watching with a cancelled context")
	}
}

func TestTestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	advance := fixedClock(s, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	oldID, err := s.CreateTest(ctx, sampleTest("Old"))
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	advance(time.Hour)
	newID, err := s.CreateTest(ctx, sampleTest("New"))
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}

	got, err := s.GetTest(ctx, oldID)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if got.ID != oldID || got.Title != "Old" || len(got.Questions) != 2 {
		t.Fatalf("GetTest = %+v", got)
	}
	if got.Questions[0].Answer != 1 || got.Questions[0].Options[1] != "4" {
		t.Errorf("question 1 = %+v", got.Questions[0])
	}

	list, err := s.ListTests(ctx)
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(list) != 2 || list[0].ID != newID {
		t.Fatalf("ListTests should be newest first, got %d tests", len(list))
	}

	if err := s.SetTestActive(ctx, newID, false); err != nil {
		t.Fatalf("SetTestActive: %v", err)
	}
	active, err := s.ListActiveTests(ctx)
	if err != nil {
		t.Fatalf("ListActiveTests: %v", err)
	}
	if len(active) != 1 || active[0].ID != oldID {
		t.Errorf("ListActiveTests = %d tests, want only the old one", len(active))
	}
	if err := s.SetTestActive(ctx, "missing", true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("SetTestActive missing: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTestRemovesResults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keep, _ := s.CreateTest(ctx, sampleTest("Keep"))
	drop, _ := s.CreateTest(ctx, sampleTest("Drop"))
	for _, id := range []string{keep, drop, drop} {
		if _, err := s.AddResult(ctx, model.Result{StudentEmail: "ann@example.com", TestID: id}); err != nil {
			t.Fatalf("AddResult: %v", err)
		}
	}

	if err := s.DeleteTest(ctx, drop); err != nil {
		t.Fatalf("DeleteTest: %v", err)
	}
	if _, err := s.GetTest(ctx, drop); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetTest deleted: err = %v, want ErrNotFound", err)
	}
	results, err := s.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].TestID != keep {
		t.Errorf("remaining results = %+v, want one for %s", results, keep)
	}
}

func TestLegacyTestDecoding(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Set(ctx, CollTests, "legacy", map[string]any{
		"positiveMark": "2",
		"negativeMark": -1,
		"questions": []any{
			map[string]any{"question": " Q1 ", "options": []any{"a", "b", "c", "d"}, "answer": "c"},
			map[string]any{"question": "Q2", "options": []any{"a", "b", "c", "d"}, "answer": "3"},
		},
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.GetTest(ctx, "legacy")
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if got.Title != "Exam" || got.PositiveMark != 2 || got.NegativeMark != 0 || got.Duration != defaultDuration {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Questions[0].Text != "Q1" || got.Questions[0].Answer != 2 || got.Questions[1].Answer != 3 {
		t.Errorf("questions = %+v", got.Questions)
	}

	err = s.Set(ctx, CollTests, "broken", map[string]any{
		"title":     "Broken",
		"questions": []any{map[string]any{"question": "Q", "answer": "E"}},
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.GetTest(ctx, "broken"); err == nil {
		t.Error("expected error decoding a test with an invalid answer")
	}
	list, err := s.ListTests(ctx)
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListTests should skip malformed tests, got %d", len(list))
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{float64(0), 0, true},
		{float64(3), 3, true},
		{float64(4), 0, false},
		{1.5, 0, false},
		{"a", 0, true},
		{" D ", 3, true},
		{"2", 2, true},
		{"E", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAnswer(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAnswer(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	add := func(email, test string, ts int64, answers []*int) string {
		t.Helper()
		id, err := s.AddResult(ctx, model.Result{
			StudentEmail: email,
			TestID:       test,
			Timestamp:    ts,
			Answers:      answers,
		})
		if err != nil {
			t.Fatalf("AddResult: %v", err)
		}
		return id
	}
	first := add("ann@example.com", "t1", 1000, []*int{model.Answer(1), nil})
	latest := add("ann@example.com", "t1", 3000, nil)
	add("ann@example.com", "t2", 2000, nil)
	add("bob@example.com", "t1", 4000, nil)

	got, err := s.GetResult(ctx, first)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.StudentName != "ann@example.com" {
		t.Errorf("missing name should fall back to email, got %q", got.StudentName)
	}
	if len(got.Answers) != 2 || got.Answers[0] == nil || *got.Answers[0] != 1 || got.Answers[1] != nil {
		t.Errorf("answers did not round-trip: %v", got.Answers)
	}

	mine, err := s.ResultsForStudent(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("ResultsForStudent: %v", err)
	}
	if len(mine) != 3 || mine[0].ID != latest {
		t.Errorf("ResultsForStudent = %d results, want 3 newest first", len(mine))
	}

	forTest, err := s.ResultsForStudentTest(ctx, "ann@example.com", "t1")
	if err != nil {
		t.Fatalf("ResultsForStudentTest: %v", err)
	}
	if len(forTest) != 2 {
		t.Errorf("ResultsForStudentTest = %d results, want 2", len(forTest))
	}

	if err := s.DeleteResult(ctx, first); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if _, err := s.GetResult(ctx, first); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetResult deleted: err = %v, want ErrNotFound", err)
	}
}

func TestLegacyResultTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	submitted := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := s.Set(ctx, CollResults, "r1", map[string]any{
		"studentEmail": "ann@example.com",
		"score":        "7.5",
		"answers":      []any{"B", nil, 2},
		"submittedAt":  submitted.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	r, err := s.GetResult(ctx, "r1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if r.Timestamp != submitted.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", r.Timestamp, submitted.UnixMilli())
	}
	if r.Score != 7.5 {
		t.Errorf("Score = %v, want 7.5", r.Score)
	}
	if *r.Answers[0] != 1 || r.Answers[1] != nil || *r.Answers[2] != 2 {
		t.Errorf("answers = %v", r.Answers)
	}
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	advance := fixedClock(s, start)

	send := func(from, to, student, text string) string {
		t.Helper()
		id, err := s.AddMessage(ctx, model.ChatMessage{
			From:         from,
			To:           to,
			Participants: []string{student, model.AdminID},
			Text:         text,
		})
		if err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		advance(time.Minute)
		return id
	}
	first := send("ann@example.com", model.AdminID, "ann@example.com", "hello")
	send(model.AdminID, "ann@example.com", "ann@example.com", "hi ann")
	send("bob@example.com", model.AdminID, "bob@example.com", "other thread")

	msgs, err := s.Messages(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hello" || msgs[1].Text != "hi ann" {
		t.Fatalf("Messages = %+v", msgs)
	}
	if !msgs[0].Timestamp.Equal(start) {
		t.Errorf("server timestamp = %v, want %v", msgs[0].Timestamp, start)
	}

	latest, err := s.LatestMessageTime(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("LatestMessageTime: %v", err)
	}
	if !latest.Equal(start.Add(time.Minute)) {
		t.Errorf("LatestMessageTime = %v, want %v", latest, start.Add(time.Minute))
	}
	none, err := s.LatestMessageTime(ctx, "nobody@example.com")
	if err != nil || !none.IsZero() {
		t.Errorf("LatestMessageTime empty thread = %v, %v", none, err)
	}

	if err := s.MarkSeen(ctx, first); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.DeleteMessage(ctx, msgs[1].ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	msgs, _ = s.Messages(ctx, "ann@example.com")
	if len(msgs) != 1 || !msgs[0].SeenByAdmin {
		t.Errorf("after MarkSeen and delete: %+v", msgs)
	}
}

func TestPresence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.GetPresence(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if p.Online || p.Identity != "ann@example.com" {
		t.Errorf("missing presence should read offline, got %+v", p)
	}

	seen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedClock(s, seen)
	if err := s.MergePresence(ctx, "ann@example.com", map[string]any{"online": true, "lastSeen": ServerTimestamp}); err != nil {
		t.Fatalf("MergePresence: %v", err)
	}
	if err := s.MergePresence(ctx, "ann@example.com", map[string]any{"typing": true}); err != nil {
		t.Fatalf("MergePresence: %v", err)
	}
	p, err = s.GetPresence(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if !p.Online || !p.Typing || !p.LastSeen.Equal(seen) {
		t.Errorf("presence = %+v", p)
	}

	docs, _ := s.Query(ctx, PresenceQuery("ann@example.com"))
	if got := DecodePresence("ann@example.com", docs); !got.Typing {
		t.Errorf("DecodePresence = %+v", got)
	}
	if got := DecodePresence("bob@example.com", docs); got.Online {
		t.Errorf("DecodePresence of absent identity = %+v", got)
	}
}

func TestStudents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, st := range []model.Student{
		{Email: "zed@example.com", Name: "Zed"},
		{Email: "ann@example.com", Name: "ann"},
		{Email: "bob@example.com"},
	} {
		if err := s.UpsertStudent(ctx, st); err != nil {
			t.Fatalf("UpsertStudent: %v", err)
		}
	}
	list, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	want := []string{"ann@example.com", "bob@example.com", "zed@example.com"}
	if len(list) != len(want) {
		t.Fatalf("ListStudents = %d, want %d", len(list), len(want))
	}
	for i, st := range list {
		if st.Email != want[i] {
			t.Errorf("student %d = %s, want %s", i, st.Email, want[i])
		}
	}

	got, err := s.GetStudent(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got.DisplayName() != "bob@example.com" || got.CreatedAt.IsZero() {
		t.Errorf("GetStudent = %+v", got)
	}
	if _, err := s.GetStudent(ctx, "nobody@example.com"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetStudent missing: err = %v, want ErrNotFound", err)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	advance := fixedClock(s, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	token, err := s.CreateAuthSession(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	sess, err := s.GetAuthSession(ctx, token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession = %v, %v", sess, err)
	}
	if sess.Email != "ann@example.com" || sess.ID != token {
		t.Errorf("session = %+v", sess)
	}

	stale, _ := s.CreateAuthSession(ctx, "bob@example.com")
	advance(authSessionTTL + time.Minute)
	fresh, _ := s.CreateAuthSession(ctx, "bob@example.com")

	if err := s.CleanupExpiredSessions(ctx); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n, _ := s.Count(ctx, CollAuthSessions); n != 1 {
		t.Errorf("sessions after cleanup = %d, want 1", n)
	}
	if sess, _ := s.GetAuthSession(ctx, stale); sess != nil {
		t.Error("expired session should not resolve")
	}
	if sess, _ := s.GetAuthSession(ctx, fresh); sess == nil {
		t.Error("fresh session should resolve")
	}

	if err := s.DeleteAuthSession(ctx, fresh); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	if sess, _ := s.GetAuthSession(ctx, fresh); sess != nil {
		t.Error("deleted session should not resolve")
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, err := s.GetUserByEmail(ctx, "ann@example.com")
	if err != nil || u != nil {
		t.Fatalf("GetUserByEmail missing = %v, %v; want nil, nil", u, err)
	}
	if err := s.CreateUser(ctx, model.User{Email: "Ann@Example.com", Role: model.UserRoleStudent, Active: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err = s.GetUserByEmail(ctx, "ANN@example.com")
	if err != nil || u == nil {
		t.Fatalf("GetUserByEmail = %v, %v", u, err)
	}
	if err := s.SetUserActive(ctx, "ann@example.com", false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	u, _ = s.GetUserByEmail(ctx, "ann@example.com")
	if u.Active {
		t.Error("user should be inactive")
	}
	if n, _ := s.UserCount(ctx); n != 1 {
		t.Errorf("UserCount = %d, want 1", n)
	}
}

func TestImportedFileHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash(ctx, "questions.csv")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Fatalf("expected empty hash, got %q", hash)
	}
	if err := s.SetImportedFileHash(ctx, "questions.csv", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash(ctx, "questions.csv", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash overwrite: %v", err)
	}
	hash, _ = s.GetImportedFileHash(ctx, "questions.csv")
	if hash != "def456" {
		t.Errorf("hash = %q, want def456", hash)
	}
}

func TestExportResults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tid, _ := s.CreateTest(ctx, sampleTest("Quiz"))
	gone, _ := s.CreateTest(ctx, sampleTest("Gone"))
	results := []model.Result{
		{StudentEmail: "ann@example.com", StudentName: "Ann", TestID: tid, Timestamp: 2000, Answers: []*int{model.Answer(1), model.Answer(3)}},
		{StudentEmail: "ann@example.com", StudentName: "Ann", TestID: tid, Timestamp: 1000, Answers: []*int{nil, nil}},
		{StudentEmail: "bob@example.com", StudentName: "Bob", TestID: gone, Timestamp: 3000},
	}
	for _, r := range results {
		if _, err := s.AddResult(ctx, r); err != nil {
			t.Fatalf("AddResult: %v", err)
		}
	}
	if err := s.Delete(ctx, CollTests, gone); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	export, err := s.ExportResults(ctx)
	if err != nil {
		t.Fatalf("ExportResults: %v", err)
	}
	if export.NumTests != 1 {
		t.Errorf("NumTests = %d, want 1", export.NumTests)
	}
	if len(export.Students) != 2 || export.Students[0].Email != "ann@example.com" {
		t.Fatalf("students = %+v", export.Students)
	}

	ann := export.Students[0]
	if len(ann.Attempts) != 2 || ann.Attempts[0].AttemptNumber != 1 {
		t.Fatalf("ann attempts = %+v", ann.Attempts)
	}
	earliest := ann.Attempts[0]
	if earliest.Questions[0].Outcome != "unattempted" {
		t.Errorf("first attempt outcome = %q, want unattempted", earliest.Questions[0].Outcome)
	}
	second := ann.Attempts[1]
	if second.Questions[0].Outcome != "correct" || second.Questions[1].Outcome != "incorrect" {
		t.Errorf("second attempt outcomes = %+v", second.Questions)
	}

	bob := export.Students[1]
	if len(bob.Attempts) != 1 || bob.Attempts[0].Questions != nil {
		t.Errorf("deleted test should export without questions: %+v", bob.Attempts)
	}
}
