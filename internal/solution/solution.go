// Package solution replays a stored result against a test's answer key.
package solution

import (
	"fmt"

	"github.com/pavelanni/examportal/internal/model"
)

// Outcome classifies one answered question.
type Outcome string

const (
	Correct     Outcome = "correct"
	Incorrect   Outcome = "incorrect"
	Unattempted Outcome = "unattempted"
)

// Classify pairs each answer with the key. Missing trailing answers are
// unattempted; the result always has len(key) entries.
func Classify(answers []*int, key []int) []Outcome {
	out := make([]Outcome, len(key))
	for i, k := range key {
		switch {
		case i >= len(answers) || answers[i] == nil:
			out[i] = Unattempted
		case *answers[i] == k:
			out[i] = Correct
		default:
			out[i] = Incorrect
		}
	}
	return out
}

// Tally counts outcomes.
type Tally struct {
	Correct      int
	Incorrect    int
	NotAttempted int
}

// Count tallies a classification.
func Count(outcomes []Outcome) Tally {
	var t Tally
	for _, o := range outcomes {
		switch o {
		case Correct:
			t.Correct++
		case Incorrect:
			t.Incorrect++
		default:
			t.NotAttempted++
		}
	}
	return t
}

// Score applies the marking scheme, floored at zero.
func Score(t Tally, positive, negative float64) float64 {
	s := float64(t.Correct)*positive - float64(t.Incorrect)*negative
	if s < 0 {
		return 0
	}
	return s
}

// Option is one rendered option of a reviewed question.
type Option struct {
	Label      string
	Text       string
	YourAnswer bool
	IsCorrect  bool
}

// Item is one reviewed question.
type Item struct {
	Number      int
	Question    string
	Options     []Option
	Outcome     Outcome
	Explanation string
}

// Review is the full solution view of one result.
type Review struct {
	Test   *model.Test
	Result model.Result
	Items  []Item
	Tally  Tally
}

// Latest picks the newest result by timestamp. Results with equal timestamps
// keep the earliest position in the slice.
func Latest(results []model.Result) (model.Result, bool) {
	if len(results) == 0 {
		return model.Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Timestamp > best.Timestamp {
			best = r
		}
	}
	return best, true
}

// Build selects the caller's latest result for the test among results and
// replays it. It returns model.ErrNotFound when the caller has no result.
func Build(t *model.Test, results []model.Result, email string) (*Review, error) {
	var mine []model.Result
	for _, r := range results {
		if r.StudentEmail == email && r.TestID == t.ID {
			mine = append(mine, r)
		}
	}
	latest, ok := Latest(mine)
	if !ok {
		return nil, fmt.Errorf("result for test %s: %w", t.ID, model.ErrNotFound)
	}

	outcomes := Classify(latest.Answers, t.AnswerKey())
	rv := &Review{Test: t, Result: latest, Tally: Count(outcomes)}
	for i, q := range t.Questions {
		var picked *int
		if i < len(latest.Answers) {
			picked = latest.Answers[i]
		}
		item := Item{
			Number:      i + 1,
			Question:    q.Text,
			Outcome:     outcomes[i],
			Explanation: q.Explanation,
		}
		for j, text := range q.Options {
			item.Options = append(item.Options, Option{
				Label:      model.OptionLabels[j],
				Text:       text,
				YourAnswer: picked != nil && *picked == j,
				IsCorrect:  q.Answer == j,
			})
		}
		rv.Items = append(rv.Items, item)
	}
	return rv, nil
}
