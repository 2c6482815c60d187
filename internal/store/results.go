package store

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pavelanni/examportal/internal/model"
)

// AddResult appends a submitted result and returns its id.
func (s *Store) AddResult(ctx context.Context, r model.Result) (string, error) {
	id, err := s.Add(ctx, CollResults, r)
	if err != nil {
		slog.Error("failed to store result", "student", r.StudentEmail, "test", r.TestID, "error", err)
		return "", err
	}
	slog.Info("stored result", "id", id, "student", r.StudentEmail, "test", r.TestID, "score", r.Score)
	return id, nil
}

// GetResult returns a result by id, or model.ErrNotFound.
func (s *Store) GetResult(ctx context.Context, id string) (*model.Result, error) {
	d, err := s.Get(ctx, CollResults, id)
	if err != nil {
		return nil, err
	}
	r := decodeResult(*d)
	return &r, nil
}

// ListResults returns all results, newest first.
func (s *Store) ListResults(ctx context.Context) ([]model.Result, error) {
	return s.queryResults(ctx, Collection(CollResults))
}

// ResultsForStudent returns one student's results, newest first.
func (s *Store) ResultsForStudent(ctx context.Context, email string) ([]model.Result, error) {
	return s.queryResults(ctx, Collection(CollResults).Where("studentEmail", OpEqual, email))
}

// ResultsForStudentTest returns one student's results for one test, newest first.
func (s *Store) ResultsForStudentTest(ctx context.Context, email, testID string) ([]model.Result, error) {
	return s.queryResults(ctx, Collection(CollResults).
		Where("studentEmail", OpEqual, email).
		Where("testId", OpEqual, testID))
}

func (s *Store) queryResults(ctx context.Context, q Query) ([]model.Result, error) {
	docs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	results := make([]model.Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, decodeResult(d))
	}
	// Sorted after decoding so legacy results ordered by submittedAt still appear.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})
	return results, nil
}

// DeleteResult removes a result.
func (s *Store) DeleteResult(ctx context.Context, id string) error {
	return s.Delete(ctx, CollResults, id)
}
