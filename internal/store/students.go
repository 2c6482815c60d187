package store

import (
	"context"
	"sort"
	"strings"

	"github.com/pavelanni/examportal/internal/model"
)

// UpsertStudent creates or refreshes a student profile keyed by email.
// A zero CreatedAt is stamped with the store clock.
func (s *Store) UpsertStudent(ctx context.Context, st model.Student) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = s.now()
	}
	fields := map[string]any{"email": st.Email, "name": st.Name, "createdAt": st.CreatedAt}
	return s.Merge(ctx, CollStudents, st.Email, fields)
}

// GetStudent returns a student profile, or model.ErrNotFound.
func (s *Store) GetStudent(ctx context.Context, email string) (*model.Student, error) {
	d, err := s.Get(ctx, CollStudents, email)
	if err != nil {
		return nil, err
	}
	st := decodeStudent(*d)
	return &st, nil
}

// ListStudents returns all students ordered by display name.
func (s *Store) ListStudents(ctx context.Context) ([]model.Student, error) {
	docs, err := s.Query(ctx, Collection(CollStudents))
	if err != nil {
		return nil, err
	}
	return DecodeStudents(docs), nil
}

// DecodeStudents converts student documents, skipping ones without an email,
// ordered by display name.
func DecodeStudents(docs []Document) []model.Student {
	students := make([]model.Student, 0, len(docs))
	for _, d := range docs {
		st := decodeStudent(d)
		if st.Email == "" {
			continue
		}
		students = append(students, st)
	}
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].DisplayName()) < strings.ToLower(students[j].DisplayName())
	})
	return students
}
