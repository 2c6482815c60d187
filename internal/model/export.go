package model

import "time"

// ResultsExport is the top-level JSON structure for result export.
type ResultsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	NumTests   int             `json:"num_tests"`
	Students   []StudentExport `json:"students"`
}

// StudentExport holds one student's attempts for export.
type StudentExport struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Attempts []AttemptExport `json:"attempts"`
}

// AttemptExport holds one submitted result with per-question outcomes.
type AttemptExport struct {
	AttemptNumber int             `json:"attempt_number"`
	TestID        string          `json:"test_id"`
	TestTitle     string          `json:"test_title"`
	Score         float64         `json:"score"`
	Correct       int             `json:"correct"`
	Incorrect     int             `json:"incorrect"`
	NotAttempted  int             `json:"not_attempted"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	TimeTaken     string          `json:"time_taken"`
	Questions     []QuestionGrade `json:"questions,omitempty"`
}

// QuestionGrade is the outcome of one question for export.
type QuestionGrade struct {
	Text    string `json:"text"`
	Answer  *int   `json:"answer"`
	Correct int    `json:"correct"`
	Outcome string `json:"outcome"`
}
