package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examportal/internal/model"
)

const header = "question,a,b,c,d,answer,explanation\n"

func TestParse(t *testing.T) {
	sheet := header +
		"What is 2+2?,3,4,5,6,B,Basic addition\n" +
		"\"Capital of France, the city?\",Paris,Rome,Oslo,Bern,a\n"

	qs, err := Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, "What is 2+2?", qs[0].Text)
	assert.Equal(t, 1, qs[0].Answer)
	assert.Equal(t, "Basic addition", qs[0].Explanation)
	assert.Equal(t, [4]string{"3", "4", "5", "6"}, qs[0].Options)

	assert.Equal(t, "Capital of France, the city?", qs[1].Text)
	assert.Equal(t, 0, qs[1].Answer)
	assert.Empty(t, qs[1].Explanation)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
		row   int
		field string
	}{
		{name: "invalid letter", sheet: header + "Q?,A,B,C,D,E,explain\n", row: 2, field: "answer"},
		{name: "numeric answer", sheet: header + "Q1,a,b,c,d,A\nQ2,a,b,c,d,1\n", row: 3, field: "answer"},
		{name: "missing answer", sheet: header + "Q1,a,b,c,d,\n", row: 2, field: "answer"},
		{name: "short row", sheet: header + "Q1,a,b,c,d,A\nQ2,a,b\n", row: 3},
		{name: "empty question", sheet: header + " ,a,b,c,d,A\n", row: 2, field: "question"},
		{name: "empty option", sheet: header + "Q1,a,,c,d,A\n", row: 2, field: "option B"},
		{name: "broken quote", sheet: header + "\"Q1,a,b,c,d,A\n", row: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := Parse(strings.NewReader(tt.sheet))
			assert.Nil(t, qs)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.row, verr.Row)
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, sheet := range []string{"", header} {
		_, err := Parse(strings.NewReader(sheet))
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Zero(t, verr.Row)
	}
}

func TestBuild(t *testing.T) {
	sheet := header + "Q1,a,b,c,d,C\n"

	test, err := Build(Meta{Title: "  Quiz  ", NegativeMark: 0.25}, strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, "Quiz", test.Title)
	assert.Equal(t, 1.0, test.PositiveMark)
	assert.Equal(t, 0.25, test.NegativeMark)
	assert.Equal(t, 10, test.Duration)
	assert.True(t, test.Active)
	require.Len(t, test.Questions, 1)
	assert.Equal(t, 2, test.Questions[0].Answer)
}

func TestBuildRejectsMeta(t *testing.T) {
	sheet := header + "Q1,a,b,c,d,C\n"
	tests := []struct {
		meta  Meta
		field string
	}{
		{meta: Meta{}, field: "title"},
		{meta: Meta{Title: "x", PositiveMark: -1}, field: "positiveMark"},
		{meta: Meta{Title: "x", NegativeMark: -1}, field: "negativeMark"},
		{meta: Meta{Title: "x", Duration: -5}, field: "duration"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := Build(tt.meta, strings.NewReader(sheet))
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
