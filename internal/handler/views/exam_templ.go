package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/examportal/internal/exam"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

// ExamPage renders the current question, the navigator and the countdown.
func ExamPage(v exam.View, errMsg string) templ.Component {
	return Layout(v.TestTitle, component(func(p *page) {
		action := p.url("/exam/" + v.SessionID)
		p.render(Flash(errMsg, true))
		p.raw(`<div class="card" style="display:flex;justify-content:space-between;align-items:center"><h2 style="margin:0">`)
		p.text(v.TestTitle)
		p.raw(`</h2><div><span>`)
		p.t("TimeLeft")
		p.raw(`</span> <span id="timer" class="timer">`)
		p.text(v.Clock)
		p.raw(`</span></div></div>`)
		if v.Expired {
			p.render(Flash(appI18n.T(p.ctx, "TimeUp"), true))
		}

		p.raw(`<div style="display:flex;gap:1rem;align-items:flex-start"><div class="card" style="flex:1"><h3>`)
		p.text(appI18n.Td(p.ctx, "QuestionNofM", map[string]any{"N": v.Index + 1, "M": v.Total}))
		p.raw(`</h3><p style="white-space:pre-wrap">`)
		p.text(v.Question.Text)
		p.raw(`</p><form method="post" action="`, action, `">`)
		p.csrf()
		p.raw(`<input type="hidden" name="action" value="select"><input type="hidden" name="index" value="`, strconv.Itoa(v.Index), `">`)
		for i, opt := range v.Question.Options {
			checked := ""
			if v.Selected != nil && *v.Selected == i {
				checked = " checked"
			}
			p.raw(`<p><label><input type="radio" name="option" onchange="this.form.submit()" value="`, strconv.Itoa(i), `"`, checked, `> <strong>`,
				model.OptionLabels[i], `.</strong> `)
			p.text(opt)
			p.raw(`</label></p>`)
		}
		p.raw(`<noscript><button type="submit">`)
		p.t("SaveAnswer")
		p.raw(`</button></noscript></form><div>`)
		examButton(p, action, v.Index, "prev", appI18n.T(p.ctx, "Previous"), "secondary", !v.CanPrev)
		examButton(p, action, v.Index, "clear", appI18n.T(p.ctx, "ClearResponse"), "secondary", false)
		examButton(p, action, v.Index, "mark", appI18n.T(p.ctx, "MarkForReview"), "secondary", false)
		examButton(p, action, v.Index, "next", appI18n.T(p.ctx, "SaveAndNext"), "", !v.CanNext)
		p.raw(`</div></div>`)

		p.raw(`<div class="card" style="width:260px"><div class="nav-grid">`)
		for _, item := range v.Navigator {
			class := string(item.Status)
			if item.Active {
				class += " active"
			}
			p.raw(`<form method="post" class="inline" action="`, action, `">`)
			p.csrf()
			p.raw(`<input type="hidden" name="action" value="goto"><input type="hidden" name="index" value="`, strconv.Itoa(item.Number-1),
				`"><button type="submit" class="`, class, `" title="`)
			p.t(statusLabels[item.Status])
			p.raw(`">`, strconv.Itoa(item.Number), `</button></form>`)
		}
		p.raw(`</div><ul style="padding-left:1rem">`)
		for _, st := range legendOrder {
			p.raw(`<li><span class="dot `, string(st), `"></span> `)
			p.t(statusLabels[st])
			p.raw(`: `, strconv.Itoa(v.Legend[st]), `</li>`)
		}
		p.raw(`</ul><form method="post" action="`, action, `" onsubmit="`, templ.EscapeString(confirmJS(appI18n.T(p.ctx, "ConfirmSubmit"))), `">`)
		p.csrf()
		p.raw(`<input type="hidden" name="action" value="submit"><input type="hidden" name="confirmed" value="yes"><button type="submit" class="danger">`)
		p.t("SubmitExam")
		p.raw(`</button></form></div></div>`)
		p.raw(`<script>`, examScript(URL(p.ctx, "/exam/"+v.SessionID)), `</script>`)
	}))
}

func examButton(p *page, action string, index int, name, label, class string, disabled bool) {
	p.raw(`<form method="post" class="inline" action="`, action, `">`)
	p.csrf()
	p.raw(`<input type="hidden" name="action" value="`, name, `"><input type="hidden" name="index" value="`, strconv.Itoa(index), `"><button type="submit" class="`, class, `"`)
	if disabled {
		p.raw(` disabled`)
	}
	p.raw(`>`)
	p.text(label)
	p.raw(`</button></form> `)
}

// ResultPage shows the outcome right after submission.
func ResultPage(r model.Result, auto bool) templ.Component {
	return Layout(r.TestTitle, component(func(p *page) {
		p.raw(`<div class="card"><h2>`)
		p.t("ExamSubmitted")
		p.raw(`</h2>`)
		if auto {
			p.render(Flash(appI18n.T(p.ctx, "AutoSubmitted"), false))
		}
		p.raw(`<p class="timer">`)
		p.text(appI18n.Td(p.ctx, "YourScore", map[string]any{"Score": formatScore(r.Score)}))
		p.raw(`</p><ul><li class="correct">`)
		p.text(appI18n.Td(p.ctx, "CorrectCount", map[string]any{"Count": r.Correct}))
		p.raw(`</li><li class="incorrect">`)
		p.text(appI18n.Td(p.ctx, "IncorrectCount", map[string]any{"Count": r.Incorrect}))
		p.raw(`</li><li class="unattempted">`)
		p.text(appI18n.Td(p.ctx, "UnattemptedCount", map[string]any{"Count": r.NotAttempted}))
		p.raw(`</li><li>`)
		p.text(appI18n.Td(p.ctx, "TimeTakenValue", map[string]any{"Time": r.TimeTaken}))
		p.raw(`</li></ul><a class="btn" href="`, p.url("/solution?testId="+r.TestID), `">`)
		p.t("ViewSolution")
		p.raw(`</a> <a class="btn secondary" href="`, p.url("/student"), `">`)
		p.t("BackToDashboard")
		p.raw(`</a></div>`)
	}))
}
