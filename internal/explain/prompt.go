package explain

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/examportal/internal/model"
)

//go:embed prompts/explain.txt
var promptFS embed.FS

var questionTagRegex = regexp.MustCompile(`(?i)</?\s*question\b[^>]*>`)

const maxQuestionRunes = 4000

var (
	loadOnce sync.Once
	loadErr  error
	tmpl     *template.Template
)

type promptOption struct {
	Label   string
	Text    string
	Correct bool
}

type promptData struct {
	Question    string
	Options     []promptOption
	Distractors bool
	MaxWords    int
	Language    string
}

func loadTemplate() (*template.Template, error) {
	loadOnce.Do(func() {
		content, err := promptFS.ReadFile("prompts/explain.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt: %w", err)
			return
		}
		tmpl, loadErr = template.New("explain").Parse(string(content))
	})
	return tmpl, loadErr
}

// BuildPrompt renders the drafting prompt for q.
func BuildPrompt(q model.Question, language string, maxWords int) (string, error) {
	t, err := loadTemplate()
	if err != nil {
		return "", err
	}
	if language == "" {
		language = "English"
	}
	data := promptData{
		Question:    sanitize(q.Text),
		Distractors: maxWords >= 60,
		MaxWords:    maxWords,
		Language:    language,
	}
	for i, text := range q.Options {
		data.Options = append(data.Options, promptOption{
			Label:   model.OptionLabels[i],
			Text:    sanitize(text),
			Correct: i == q.Answer,
		})
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitize strips tags that could close the question block and bounds length.
func sanitize(s string) string {
	s = questionTagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxQuestionRunes {
		s = string([]rune(s)[:maxQuestionRunes])
	}
	return s
}
