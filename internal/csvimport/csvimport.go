// Package csvimport turns an uploaded question sheet into a Test.
//
// The sheet has a header line followed by one question per row:
//
//	question, option A, option B, option C, option D, answer letter, explanation
//
// The explanation column is optional. Any invalid row rejects the whole
// sheet; row numbers in errors count the header as row 1.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pavelanni/examportal/internal/model"
)

const (
	colQuestion = iota
	colOptionA
	colAnswer      = colOptionA + model.NumOptions
	colExplanation = colAnswer + 1
	minColumns     = colAnswer + 1
)

const (
	defaultPositiveMark = 1
	defaultDuration     = 10
)

// Meta is the test metadata entered next to the upload.
type Meta struct {
	Title        string
	PositiveMark float64
	NegativeMark float64
	Duration     int
	Instructions string
}

// Build validates meta and the sheet in r and returns an active Test.
func Build(meta Meta, r io.Reader) (model.Test, error) {
	t := model.Test{
		Title:        strings.TrimSpace(meta.Title),
		PositiveMark: meta.PositiveMark,
		NegativeMark: meta.NegativeMark,
		Duration:     meta.Duration,
		Instructions: strings.TrimSpace(meta.Instructions),
		Active:       true,
	}
	switch {
	case t.Title == "":
		return t, &model.ValidationError{Field: "title", Reason: "is required"}
	case t.PositiveMark < 0:
		return t, &model.ValidationError{Field: "positiveMark", Reason: "must not be negative"}
	case t.NegativeMark < 0:
		return t, &model.ValidationError{Field: "negativeMark", Reason: "must not be negative"}
	case t.Duration < 0:
		return t, &model.ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if t.PositiveMark == 0 {
		t.PositiveMark = defaultPositiveMark
	}
	if t.Duration == 0 {
		t.Duration = defaultDuration
	}

	qs, err := Parse(r)
	if err != nil {
		return t, err
	}
	t.Questions = qs
	return t, nil
}

// Parse reads every question row after the header.
func Parse(r io.Reader) ([]model.Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var qs []model.Question
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &model.ValidationError{Row: row, Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if row == 1 {
			continue
		}
		q, verr := parseRow(rec)
		if verr != nil {
			verr.Row = row
			return nil, verr
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		return nil, &model.ValidationError{Reason: "the file contains no questions"}
	}
	return qs, nil
}

func parseRow(rec []string) (model.Question, *model.ValidationError) {
	var q model.Question
	if len(rec) < minColumns {
		return q, &model.ValidationError{Reason: fmt.Sprintf("expected at least %d columns, got %d", minColumns, len(rec))}
	}
	q.Text = strings.TrimSpace(rec[colQuestion])
	if q.Text == "" {
		return q, &model.ValidationError{Field: "question", Reason: "is empty"}
	}
	for i := range model.NumOptions {
		q.Options[i] = strings.TrimSpace(rec[colOptionA+i])
		if q.Options[i] == "" {
			return q, &model.ValidationError{Field: "option " + model.OptionLabels[i], Reason: "is empty"}
		}
	}
	ans, ok := parseLetter(rec[colAnswer])
	if !ok {
		return q, &model.ValidationError{Field: "answer", Reason: fmt.Sprintf("must be one of A, B, C, D, got %q", strings.TrimSpace(rec[colAnswer]))}
	}
	q.Answer = ans
	if len(rec) > colExplanation {
		q.Explanation = strings.TrimSpace(rec[colExplanation])
	}
	return q, nil
}

// parseLetter accepts A-D in any case. Numeric indexes are rejected.
func parseLetter(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, l := range model.OptionLabels {
		if s == l {
			return i, true
		}
	}
	return 0, false
}
