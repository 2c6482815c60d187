package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examportal/internal/model"
)

// CreateTest stores a new test and returns its id.
func (s *Store) CreateTest(ctx context.Context, t model.Test) (string, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	id, err := s.Add(ctx, CollTests, t)
	if err != nil {
		slog.Error("failed to create test", "title", t.Title, "error", err)
		return "", err
	}
	slog.Info("created test", "id", id, "title", t.Title, "questions", len(t.Questions))
	return id, nil
}

// GetTest returns a test by id, or model.ErrNotFound.
func (s *Store) GetTest(ctx context.Context, id string) (*model.Test, error) {
	d, err := s.Get(ctx, CollTests, id)
	if err != nil {
		return nil, err
	}
	t, err := decodeTest(*d)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTests returns every test, newest first.
func (s *Store) ListTests(ctx context.Context) ([]model.Test, error) {
	return s.queryTests(ctx, Collection(CollTests))
}

// ListActiveTests returns the tests students may start, newest first.
func (s *Store) ListActiveTests(ctx context.Context) ([]model.Test, error) {
	return s.queryTests(ctx, Collection(CollTests).Where("active", OpEqual, true))
}

func (s *Store) queryTests(ctx context.Context, q Query) ([]model.Test, error) {
	docs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	tests := make([]model.Test, 0, len(docs))
	for _, d := range docs {
		t, err := decodeTest(d)
		if err != nil {
			slog.Warn("skipping malformed test", "id", d.ID, "error", err)
			continue
		}
		tests = append(tests, t)
	}
	sort.SliceStable(tests, func(i, j int) bool {
		return tests[i].CreatedAt.After(tests[j].CreatedAt)
	})
	return tests, nil
}

// SetTestActive sets the activation flag of a test.
func (s *Store) SetTestActive(ctx context.Context, id string, active bool) error {
	return s.Update(ctx, CollTests, id, map[string]any{"active": active})
}

// DeleteTest removes a test and then, best effort, every result recorded for
// it. Result deletions that already succeeded stay applied if a later one fails.
func (s *Store) DeleteTest(ctx context.Context, id string) error {
	if err := s.Delete(ctx, CollTests, id); err != nil {
		return err
	}
	docs, err := s.Query(ctx, Collection(CollResults).Where("testId", OpEqual, id))
	if err != nil {
		return fmt.Errorf("list results of test %s: %w", id, err)
	}
	var g errgroup.Group
	g.SetLimit(8)
	for _, d := range docs {
		g.Go(func() error {
			return s.Delete(ctx, CollResults, d.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("delete results of test %s: %w", id, err)
	}
	slog.Info("deleted test", "id", id, "results", len(docs))
	return nil
}
