package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/examportal/internal/model"
)

// Older documents carry loosely typed fields: answers as letters or numeric
// strings, marks as strings, missing names. Everything read from the store
// passes through the decoders below so callers only ever see model types.

const (
	defaultDuration     = 10
	defaultPositiveMark = 1
)

func decodeTest(d Document) (model.Test, error) {
	t := model.Test{
		ID:           d.ID,
		Title:        str(d.Data["title"]),
		PositiveMark: num(d.Data["positiveMark"]),
		NegativeMark: num(d.Data["negativeMark"]),
		Duration:     int(num(d.Data["duration"])),
		Instructions: str(d.Data["instructions"]),
		Active:       boolean(d.Data["active"]),
		CreatedAt:    timestamp(d.Data["createdAt"]),
	}
	if t.Title == "" {
		t.Title = "Exam"
	}
	if t.PositiveMark <= 0 {
		t.PositiveMark = defaultPositiveMark
	}
	if t.NegativeMark < 0 {
		t.NegativeMark = 0
	}
	if t.Duration <= 0 {
		t.Duration = defaultDuration
	}

	raw, _ := d.Data["questions"].([]any)
	for i, rq := range raw {
		m, ok := rq.(map[string]any)
		if !ok {
			return t, fmt.Errorf("test %s: question %d is not an object", d.ID, i+1)
		}
		q := model.Question{
			Text:        strings.TrimSpace(str(m["question"])),
			Explanation: strings.TrimSpace(str(m["explanation"])),
		}
		opts, _ := m["options"].([]any)
		for j := 0; j < model.NumOptions && j < len(opts); j++ {
			q.Options[j] = strings.TrimSpace(str(opts[j]))
		}
		ans, ok := ParseAnswer(m["answer"])
		if !ok {
			return t, fmt.Errorf("test %s: question %d has invalid answer %v", d.ID, i+1, m["answer"])
		}
		q.Answer = ans
		t.Questions = append(t.Questions, q)
	}
	return t, nil
}

// ParseAnswer accepts an option index (0-3) or a letter A-D in any case.
func ParseAnswer(v any) (int, bool) {
	switch a := v.(type) {
	case float64:
		i := int(a)
		if float64(i) != a || i < 0 || i >= model.NumOptions {
			return 0, false
		}
		return i, true
	case int:
		return a, a >= 0 && a < model.NumOptions
	case string:
		s := strings.ToUpper(strings.TrimSpace(a))
		for i, l := range model.OptionLabels {
			if s == l {
				return i, true
			}
		}
		if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < model.NumOptions {
			return i, true
		}
	}
	return 0, false
}

func decodeResult(d Document) model.Result {
	r := model.Result{
		ID:           d.ID,
		StudentEmail: str(d.Data["studentEmail"]),
		StudentName:  str(d.Data["studentName"]),
		TestID:       str(d.Data["testId"]),
		TestTitle:    str(d.Data["testTitle"]),
		Score:        num(d.Data["score"]),
		Correct:      int(num(d.Data["correct"])),
		Incorrect:    int(num(d.Data["incorrect"])),
		NotAttempted: int(num(d.Data["notAttempted"])),
		SubmittedAt:  timestamp(d.Data["submittedAt"]),
		Timestamp:    int64(num(d.Data["timestamp"])),
		TimeTaken:    str(d.Data["timeTaken"]),
	}
	if r.StudentName == "" {
		r.StudentName = r.StudentEmail
	}
	if r.Timestamp == 0 && !r.SubmittedAt.IsZero() {
		r.Timestamp = r.SubmittedAt.UnixMilli()
	}
	raw, _ := d.Data["answers"].([]any)
	r.Answers = make([]*int, len(raw))
	for i, a := range raw {
		if a == nil {
			continue
		}
		if idx, ok := ParseAnswer(a); ok {
			r.Answers[i] = model.Answer(idx)
		}
	}
	return r
}

func decodeMessage(d Document) model.ChatMessage {
	m := model.ChatMessage{
		ID:          d.ID,
		From:        str(d.Data["from"]),
		To:          str(d.Data["to"]),
		Text:        str(d.Data["text"]),
		Timestamp:   timestamp(d.Data["timestamp"]),
		SeenByAdmin: boolean(d.Data["seenByAdmin"]),
	}
	parts, _ := d.Data["participants"].([]any)
	for _, p := range parts {
		m.Participants = append(m.Participants, str(p))
	}
	if len(m.Participants) == 0 {
		m.Participants = []string{m.From, m.To}
	}
	return m
}

func decodePresence(d Document) model.Presence {
	return model.Presence{
		Identity: d.ID,
		Online:   boolean(d.Data["online"]),
		Typing:   boolean(d.Data["typing"]),
		LastSeen: timestamp(d.Data["lastSeen"]),
	}
}

func decodeStudent(d Document) model.Student {
	s := model.Student{
		Email:     str(d.Data["email"]),
		Name:      str(d.Data["name"]),
		CreatedAt: timestamp(d.Data["createdAt"]),
	}
	if s.Email == "" {
		s.Email = d.ID
	}
	return s
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func timestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	case float64:
		return time.UnixMilli(int64(t))
	}
	return time.Time{}
}
