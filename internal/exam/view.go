package exam

import (
	"github.com/pavelanni/examportal/internal/model"
)

// NavItem is one cell of the question navigator.
type NavItem struct {
	Number int
	Status QuestionStatus
	Active bool
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	SessionID    string
	TestTitle    string
	Instructions string
	Phase        Phase
	Expired      bool
	Remaining    int
	Clock        string

	Index    int
	Total    int
	Question model.Question
	Selected *int
	Status   QuestionStatus
	CanPrev  bool
	CanNext  bool

	Navigator []NavItem
	Legend    map[QuestionStatus]int
	Result    *model.Result
}

// Navigator returns the display state of every question.
func (s *Session) Navigator() []NavItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigator()
}

func (s *Session) navigator() []NavItem {
	items := make([]NavItem, len(s.status))
	for i, st := range s.status {
		items[i] = NavItem{Number: i + 1, Status: st, Active: i == s.current}
	}
	return items
}

// Snapshot captures everything the exam page shows.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:    s.ID,
		TestTitle:    s.test.Title,
		Instructions: s.test.Instructions,
		Phase:        s.phase,
		Expired:      s.expired,
		Remaining:    s.remaining,
		Clock:        FormatClock(s.remaining),
		Index:        s.current,
		Total:        len(s.test.Questions),
		Navigator:    s.navigator(),
		Legend:       make(map[QuestionStatus]int),
	}
	for _, st := range s.status {
		v.Legend[st]++
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	if v.Total > 0 {
		v.Question = s.test.Questions[s.current]
		v.Status = s.status[s.current]
		if s.selection != nil {
			v.Selected = model.Answer(*s.selection)
		}
		v.CanPrev = s.current > 0
		v.CanNext = s.current < v.Total-1
	}
	return v
}
