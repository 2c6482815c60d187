// Package exam implements the timed multiple-choice exam session: per-question
// answer and review tracking, the countdown, and scoring on submission.
package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/solution"
)

// QuestionStatus is the navigator state of one question.
type QuestionStatus string

const (
	NotVisited          QuestionStatus = "not-visited"
	VisitedNotAttempted QuestionStatus = "visited-not-attempted"
	Attempted           QuestionStatus = "attempted"
	MarkedForReview     QuestionStatus = "marked-for-review"
)

// Phase is the lifecycle state of a whole session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseInProgress Phase = "in-progress"
	PhaseSubmitted  Phase = "submitted"
)

var (
	// ErrNotConfirmed is returned by Submit when the student did not confirm.
	ErrNotConfirmed = errors.New("submission not confirmed")
	// ErrInputClosed is returned for answer edits after submission or time-out.
	ErrInputClosed = errors.New("exam no longer accepts answers")
	// ErrNotStarted is returned for operations on a session still loading.
	ErrNotStarted = errors.New("exam not started")
)

// ResultWriter persists a submitted result.
type ResultWriter interface {
	AddResult(ctx context.Context, r model.Result) (string, error)
}

// Session is one student's attempt at one test. It is safe for concurrent use.
type Session struct {
	ID      string
	Student model.Student

	mu        sync.Mutex
	test      model.Test
	answers   []*int
	status    []QuestionStatus
	selection *int
	current   int
	phase     Phase
	startedAt time.Time
	deadline  time.Time
	remaining int
	expired   bool
	result    *model.Result

	writer ResultWriter
	now    func() time.Time
}

// NewSession prepares a session in the loading phase. The test's questions
// are copied so later edits to t do not affect the attempt.
func NewSession(id string, t *model.Test, student model.Student, w ResultWriter, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	cp := *t
	cp.Questions = append([]model.Question(nil), t.Questions...)
	return &Session{
		ID:      id,
		Student: student,
		test:    cp,
		phase:   PhaseLoading,
		writer:  w,
		now:     now,
	}
}

// Start resets every question to not-visited with no answer, arms the
// deadline and shows the first question.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.test.Questions)
	s.answers = make([]*int, n)
	s.status = make([]QuestionStatus, n)
	for i := range s.status {
		s.status[i] = NotVisited
	}
	s.startedAt = s.now()
	s.deadline = s.startedAt.Add(time.Duration(s.test.Duration) * time.Minute)
	s.remaining = s.test.Duration * 60
	s.phase = PhaseInProgress
	s.current = 0
	if n > 0 {
		s.visit(0)
	}
}

// SelectAnswer records option for question index. The question becomes
// attempted unless it is marked for review.
func (s *Session) SelectAnswer(index, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInput(index); err != nil {
		return err
	}
	if option < 0 || option >= model.NumOptions {
		return &model.ValidationError{Field: "option", Reason: fmt.Sprintf("must be between 0 and %d", model.NumOptions-1)}
	}
	s.answers[index] = model.Answer(option)
	if index == s.current {
		s.selection = model.Answer(option)
	}
	if s.status[index] != MarkedForReview {
		s.status[index] = Attempted
	}
	return nil
}

// ClearAnswer removes the answer of question index; it reverts to
// visited-not-attempted even if it was marked for review.
func (s *Session) ClearAnswer(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInput(index); err != nil {
		return err
	}
	s.answers[index] = nil
	if index == s.current {
		s.selection = nil
	}
	s.status[index] = VisitedNotAttempted
	return nil
}

// MarkForReview flags question index without touching its answer.
func (s *Session) MarkForReview(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInput(index); err != nil {
		return err
	}
	s.status[index] = MarkedForReview
	return nil
}

// Navigate saves the current selection and moves to question to.
func (s *Session) Navigate(to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInput(to); err != nil {
		return err
	}
	s.saveCurrent()
	s.current = to
	s.visit(to)
	return nil
}

// Next moves forward one question; it stays put on the last one.
func (s *Session) Next() error {
	s.mu.Lock()
	to := s.current
	if to < len(s.status)-1 {
		to++
	}
	s.mu.Unlock()
	return s.Navigate(to)
}

// Prev moves back one question; it stays put on the first one.
func (s *Session) Prev() error {
	s.mu.Lock()
	to := s.current
	if to > 0 {
		to--
	}
	s.mu.Unlock()
	return s.Navigate(to)
}

// Tick advances the countdown by one second. When the countdown reaches zero
// the session stops accepting answers and submits itself; Tick reports
// whether this call performed that automatic submission. A failed automatic
// submission is returned and not retried; the student may submit manually.
func (s *Session) Tick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress || s.expired {
		return false, nil
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false, nil
	}
	s.expired = true
	if _, err := s.submitLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Submit scores the attempt and writes one Result. It requires confirmed and
// is idempotent once it succeeds. On failure the session stays in progress.
func (s *Session) Submit(ctx context.Context, confirmed bool) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSubmitted {
		r := *s.result
		return &r, nil
	}
	if s.phase != PhaseInProgress {
		return nil, ErrNotStarted
	}
	if !confirmed {
		return nil, ErrNotConfirmed
	}
	return s.submitLocked(ctx)
}

func (s *Session) submitLocked(ctx context.Context) (*model.Result, error) {
	s.saveCurrent()

	outcomes := solution.Classify(s.answers, s.test.AnswerKey())
	tally := solution.Count(outcomes)
	end := s.now()

	r := model.Result{
		StudentEmail: s.Student.Email,
		StudentName:  s.Student.DisplayName(),
		TestID:       s.test.ID,
		TestTitle:    s.test.Title,
		Score:        solution.Score(tally, s.test.PositiveMark, s.test.NegativeMark),
		Correct:      tally.Correct,
		Incorrect:    tally.Incorrect,
		NotAttempted: tally.NotAttempted,
		Answers:      append([]*int(nil), s.answers...),
		SubmittedAt:  end.UTC(),
		Timestamp:    end.UnixMilli(),
		TimeTaken:    FormatClock(int(end.Sub(s.startedAt) / time.Second)),
	}
	id, err := s.writer.AddResult(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("submit exam: %w", err)
	}
	r.ID = id
	s.result = &r
	s.phase = PhaseSubmitted
	out := r
	return &out, nil
}

// checkInput must be called with s.mu held.
func (s *Session) checkInput(index int) error {
	switch {
	case s.phase == PhaseLoading:
		return ErrNotStarted
	case s.phase == PhaseSubmitted || s.expired:
		return ErrInputClosed
	case index < 0 || index >= len(s.status):
		return &model.ValidationError{Field: "question", Reason: fmt.Sprintf("index %d out of range", index)}
	}
	return nil
}

// saveCurrent persists the in-memory selection of the current question.
func (s *Session) saveCurrent() {
	if len(s.answers) == 0 {
		return
	}
	s.answers[s.current] = s.selection
	if s.selection != nil && s.status[s.current] != MarkedForReview {
		s.status[s.current] = Attempted
	}
}

// visit loads the selection of question i and promotes it out of not-visited.
func (s *Session) visit(i int) {
	s.selection = s.answers[i]
	if s.status[i] == NotVisited {
		if s.answers[i] == nil {
			s.status[i] = VisitedNotAttempted
		} else {
			s.status[i] = Attempted
		}
	}
}

// Phase returns the lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Expired reports whether the countdown reached zero.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Remaining returns the countdown in whole seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Deadline returns the absolute time the countdown ends.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// TestID returns the id of the test being taken.
func (s *Session) TestID() string {
	return s.test.ID
}

// Result returns the submitted result, or nil while in progress.
func (s *Session) Result() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
