package views

import (
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/solution"
)

// SolutionPage replays the caller's latest attempt against the answer key.
func SolutionPage(rv *solution.Review) templ.Component {
	return Layout(rv.Test.Title, component(func(p *page) {
		p.raw(`<div class="card"><h2>`)
		p.text(rv.Test.Title)
		p.raw(`</h2><p>`)
		p.text(appI18n.Td(p.ctx, "YourScore", map[string]any{"Score": formatScore(rv.Result.Score)}))
		p.raw(` · <span class="correct">`)
		p.text(appI18n.Td(p.ctx, "CorrectCount", map[string]any{"Count": rv.Tally.Correct}))
		p.raw(`</span> · <span class="incorrect">`)
		p.text(appI18n.Td(p.ctx, "IncorrectCount", map[string]any{"Count": rv.Tally.Incorrect}))
		p.raw(`</span> · <span class="unattempted">`)
		p.text(appI18n.Td(p.ctx, "UnattemptedCount", map[string]any{"Count": rv.Tally.NotAttempted}))
		p.raw(`</span></p><p><small>`)
		p.text(appI18n.Td(p.ctx, "SubmittedAt", map[string]any{"Time": formatTime(rv.Result.SubmittedAt)}))
		p.raw(`</small></p></div>`)

		for _, item := range rv.Items {
			p.raw(`<div class="card"><h3>`, strconv.Itoa(item.Number), `. `)
			p.text(item.Question)
			p.raw(` <small class="`, string(item.Outcome), `">`)
			p.t(outcomeLabels[item.Outcome])
			p.raw(`</small></h3><ul style="list-style:none;padding:0">`)
			for _, opt := range item.Options {
				class := ""
				switch {
				case opt.IsCorrect:
					class = "opt-correct"
				case opt.YourAnswer:
					class = "opt-wrong"
				}
				p.raw(`<li class="`, class, `" style="padding:.25rem .5rem"><strong>`, opt.Label, `.</strong> `)
				p.text(opt.Text)
				if opt.YourAnswer {
					p.raw(` <em>(`)
					p.t("YourAnswer")
					p.raw(`)</em>`)
				}
				if opt.IsCorrect {
					p.raw(` <em>(`)
					p.t("CorrectAnswer")
					p.raw(`)</em>`)
				}
				p.raw(`</li>`)
			}
			p.raw(`</ul><p><strong>`)
			p.t("Explanation")
			p.raw(`:</strong> `)
			if item.Explanation == "" {
				p.t("NoExplanation")
			} else {
				p.text(item.Explanation)
			}
			p.raw(`</p></div>`)
		}
		p.raw(`<a class="btn secondary" href="`, p.url("/student"), `">`)
		p.t("BackToDashboard")
		p.raw(`</a>`)
	}))
}
