package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examportal/internal/model"
)

// TestSource loads tests by id.
type TestSource interface {
	GetTest(ctx context.Context, id string) (*model.Test, error)
}

// ActiveTests hides inactive tests of the wrapped source.
type ActiveTests struct {
	TestSource
}

// GetTest returns model.ErrNotFound for tests that exist but are inactive.
func (a ActiveTests) GetTest(ctx context.Context, id string) (*model.Test, error) {
	t, err := a.TestSource.GetTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, fmt.Errorf("test %s is inactive: %w", id, model.ErrNotFound)
	}
	return t, nil
}

const (
	defaultDetachGrace = 15 * time.Second
	defaultRetain      = 5 * time.Minute
)

type entry struct {
	sess     *Session
	cancel   context.CancelFunc
	attached int
	orphan   *time.Timer
}

// Manager owns the in-memory sessions of all students and drives their
// countdowns. Sessions live only in memory; a restart discards them.
type Manager struct {
	tests   TestSource
	results ResultWriter
	now     func() time.Time

	// DetachGrace is how long an in-progress session survives without any
	// attached live connection.
	DetachGrace time.Duration
	// Retain is how long a submitted session stays readable.
	Retain time.Duration

	newTicker func() (<-chan time.Time, func())

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a Manager that loads tests from tests and writes
// results to results.
func NewManager(tests TestSource, results ResultWriter) *Manager {
	return &Manager{
		tests:       tests,
		results:     results,
		now:         time.Now,
		DetachGrace: defaultDetachGrace,
		Retain:      defaultRetain,
		newTicker: func() (<-chan time.Time, func()) {
			t := time.NewTicker(time.Second)
			return t.C, t.Stop
		},
		sessions: make(map[string]*entry),
	}
}

// SetClock replaces the clock and the countdown tick source. Passing a nil
// tick source leaves countdowns to be driven by calling Session.Tick.
func (m *Manager) SetClock(now func() time.Time, tick func() (<-chan time.Time, func())) {
	m.now = now
	m.newTicker = tick
}

// Start loads testID and begins a new session for student. Any unfinished
// session the student holds for the same test is discarded first.
func (m *Manager) Start(ctx context.Context, testID string, student model.Student) (*Session, error) {
	t, err := m.tests.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("test %s: %w", testID, model.ErrNotFound)
		}
		return nil, err
	}

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.sess.Student.Email == student.Email && e.sess.TestID() == testID && e.sess.Phase() != PhaseSubmitted {
			m.dropLocked(id, e)
		}
	}
	m.mu.Unlock()

	sess := NewSession(uuid.NewString(), t, student, m.results, m.now)
	sess.Start()

	runCtx, cancel := context.WithCancel(context.Background())
	e := &entry{sess: sess, cancel: cancel}
	m.mu.Lock()
	m.sessions[sess.ID] = e
	m.mu.Unlock()

	if m.newTicker != nil {
		go m.run(runCtx, sess)
	}
	slog.Info("exam started", "session", sess.ID, "test", testID, "student", student.Email, "questions", len(t.Questions))
	return sess, nil
}

// run drives the countdown until the session expires or is discarded.
func (m *Manager) run(ctx context.Context, sess *Session) {
	ticks, stop := m.newTicker()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
		fired, err := sess.Tick(ctx)
		if !fired {
			continue
		}
		if err != nil {
			slog.Error("automatic submission failed", "session", sess.ID, "error", err)
		} else {
			slog.Info("exam auto-submitted", "session", sess.ID, "student", sess.Student.Email)
		}
		m.retire(sess.ID)
		return
	}
}

// Get returns the session id owned by email, or model.ErrNotFound.
func (m *Manager) Get(id, email string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.sess.Student.Email != email {
		return nil, fmt.Errorf("exam session %s: %w", id, model.ErrNotFound)
	}
	return e.sess, nil
}

// Attach records a live connection to the session.
func (m *Manager) Attach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return
	}
	e.attached++
	if e.orphan != nil {
		e.orphan.Stop()
		e.orphan = nil
	}
}

// Detach records that a live connection closed. When the last one goes and
// does not come back within DetachGrace, an unsubmitted session is discarded.
func (m *Manager) Detach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return
	}
	if e.attached > 0 {
		e.attached--
	}
	if e.attached > 0 || e.sess.Phase() == PhaseSubmitted {
		return
	}
	if e.orphan != nil {
		e.orphan.Stop()
	}
	e.orphan = time.AfterFunc(m.DetachGrace, func() { m.Discard(id) })
}

// Discard drops an unsubmitted session without writing a result.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.attached > 0 || e.sess.Phase() == PhaseSubmitted {
		return
	}
	m.dropLocked(id, e)
	slog.Info("exam discarded", "session", id, "student", e.sess.Student.Email)
}

// Finish forgets a session immediately, whatever its phase.
func (m *Manager) Finish(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		m.dropLocked(id, e)
	}
}

// retire stops the countdown of a submitted session and forgets it after Retain.
func (m *Manager) retire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return
	}
	e.cancel()
	if e.orphan != nil {
		e.orphan.Stop()
	}
	e.orphan = time.AfterFunc(m.Retain, func() { m.Finish(id) })
}

// Submitted stops the countdown after a manual submission.
func (m *Manager) Submitted(id string) {
	m.retire(id)
}

// Active returns the number of sessions held in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) dropLocked(id string, e *entry) {
	e.cancel()
	if e.orphan != nil {
		e.orphan.Stop()
	}
	delete(m.sessions, id)
}
