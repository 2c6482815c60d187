package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/solution"
)

// ExportResults builds export-ready results grouped by student. Attempts are
// numbered per student in submission order.
func (s *Store) ExportResults(ctx context.Context) (model.ResultsExport, error) {
	out := model.ResultsExport{ExportedAt: s.now()}

	results, err := s.ListResults(ctx)
	if err != nil {
		return out, fmt.Errorf("list results: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp < results[j].Timestamp
	})

	tests := make(map[string]*model.Test)
	byStudent := make(map[string]*model.StudentExport)
	var order []string

	for _, r := range results {
		t, seen := tests[r.TestID]
		if !seen {
			t, err = s.GetTest(ctx, r.TestID)
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				return out, fmt.Errorf("get test %s: %w", r.TestID, err)
			}
			tests[r.TestID] = t
		}

		se := byStudent[r.StudentEmail]
		if se == nil {
			se = &model.StudentExport{Email: r.StudentEmail, Name: r.StudentName}
			byStudent[r.StudentEmail] = se
			order = append(order, r.StudentEmail)
		}

		attempt := model.AttemptExport{
			AttemptNumber: len(se.Attempts) + 1,
			TestID:        r.TestID,
			TestTitle:     r.TestTitle,
			Score:         r.Score,
			Correct:       r.Correct,
			Incorrect:     r.Incorrect,
			NotAttempted:  r.NotAttempted,
			SubmittedAt:   r.SubmittedAt,
			TimeTaken:     r.TimeTaken,
		}
		// Tests deleted since submission export without per-question detail.
		if t != nil {
			outcomes := solution.Classify(r.Answers, t.AnswerKey())
			for i, q := range t.Questions {
				attempt.Questions = append(attempt.Questions, model.QuestionGrade{
					Text:    q.Text,
					Answer:  answerAt(r.Answers, i),
					Correct: q.Answer,
					Outcome: string(outcomes[i]),
				})
			}
		}
		se.Attempts = append(se.Attempts, attempt)
	}

	for _, email := range order {
		out.Students = append(out.Students, *byStudent[email])
	}
	for _, t := range tests {
		if t != nil {
			out.NumTests++
		}
	}
	return out, nil
}

func answerAt(answers []*int, i int) *int {
	if i < len(answers) {
		return answers[i]
	}
	return nil
}
