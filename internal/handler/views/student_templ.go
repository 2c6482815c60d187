package views

import (
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

// LoginPage renders the sign-in form. errMsg is shown above the form.
func LoginPage(email, errMsg string) templ.Component {
	return titled("LoginTitle", component(func(p *page) {
		p.raw(`<div class="card" style="max-width:420px;margin:auto"><h2>`)
		p.t("LoginTitle")
		p.raw(`</h2>`)
		p.render(Flash(errMsg, true))
		p.raw(`<form method="post" action="`, p.url("/login"), `">`)
		p.csrf()
		p.raw(`<p><label>`)
		p.t("Email")
		p.raw(`<br><input type="email" name="email" required autofocus value="`, templ.EscapeString(email), `"></label></p><p><label>`)
		p.t("Password")
		p.raw(`<br><input type="password" name="password" required minlength="6"></label></p><p><button type="submit">`)
		p.t("SignIn")
		p.raw(`</button></p><p><small>`)
		p.t("LoginHint")
		p.raw(`</small></p></form></div>`)
	}))
}

// StudentDashboard lists active tests and the student's own results.
func StudentDashboard(d DashboardData) templ.Component {
	return titled("DashboardTitle", component(func(p *page) {
		p.render(Flash(d.Flash, d.IsError))
		p.raw(`<div class="card"><h2>`)
		p.t("AvailableTests")
		p.raw(`</h2>`)
		if len(d.Tests) == 0 {
			p.raw(`<p>`)
			p.t("NoActiveTests")
			p.raw(`</p>`)
		} else {
			p.raw(`<table><tr><th>`)
			p.t("Title")
			p.raw(`</th><th>`)
			p.t("Questions")
			p.raw(`</th><th>`)
			p.t("Duration")
			p.raw(`</th><th></th></tr>`)
			for _, t := range d.Tests {
				p.raw(`<tr><td>`)
				p.text(t.Title)
				p.raw(`</td><td>`, strconv.Itoa(len(t.Questions)), `</td><td>`)
				p.text(appI18n.Td(p.ctx, "Minutes", map[string]any{"Count": t.Duration}))
				p.raw(`</td><td><a class="btn" href="`, p.url("/student/tests/"+t.ID), `">`)
				p.t("Open")
				p.raw(`</a></td></tr>`)
			}
			p.raw(`</table>`)
		}
		p.raw(`</div><div class="card"><h2>`)
		p.t("MyResults")
		p.raw(`</h2>`)
		if len(d.Results) == 0 {
			p.raw(`<p>`)
			p.t("NoResults")
			p.raw(`</p></div>`)
			return
		}
		p.raw(`<table><tr><th>`)
		p.t("Test")
		p.raw(`</th><th>`)
		p.t("Score")
		p.raw(`</th><th>`)
		p.t("CorrectShort")
		p.raw(`</th><th>`)
		p.t("IncorrectShort")
		p.raw(`</th><th>`)
		p.t("UnattemptedShort")
		p.raw(`</th><th>`)
		p.t("TimeTaken")
		p.raw(`</th><th>`)
		p.t("Submitted")
		p.raw(`</th><th></th></tr>`)
		for _, r := range d.Results {
			p.raw(`<tr><td>`)
			p.text(r.TestTitle)
			p.raw(`</td><td>`)
			p.text(formatScore(r.Score))
			p.raw(`</td><td class="correct">`, strconv.Itoa(r.Correct), `</td><td class="incorrect">`, strconv.Itoa(r.Incorrect),
				`</td><td class="unattempted">`, strconv.Itoa(r.NotAttempted), `</td><td>`)
			p.text(r.TimeTaken)
			p.raw(`</td><td>`)
			p.text(formatTime(r.SubmittedAt))
			p.raw(`</td><td><a class="btn secondary" href="`, p.url("/solution?testId="+r.TestID), `">`)
			p.t("ViewSolution")
			p.raw(`</a> `)
			p.postButton("/student/results/"+r.ID+"/delete", appI18n.T(p.ctx, "Delete"), "danger", appI18n.T(p.ctx, "ConfirmDeleteResult"))
			p.raw(`</td></tr>`)
		}
		p.raw(`</table></div>`)
	}))
}

// InstructionsPage shows a test's rules before it starts.
func InstructionsPage(t *model.Test, attempts int) templ.Component {
	return Layout(t.Title, component(func(p *page) {
		p.raw(`<div class="card"><h2>`)
		p.text(t.Title)
		p.raw(`</h2><ul><li>`)
		p.text(appI18n.Tp(p.ctx, "QuestionCount", len(t.Questions)))
		p.raw(`</li><li>`)
		p.text(appI18n.Td(p.ctx, "Minutes", map[string]any{"Count": t.Duration}))
		p.raw(`</li><li>`)
		p.text(appI18n.Td(p.ctx, "MarkingScheme", map[string]any{
			"Positive": formatScore(t.PositiveMark),
			"Negative": formatScore(t.NegativeMark),
		}))
		p.raw(`</li>`)
		if attempts > 0 {
			p.raw(`<li>`)
			p.text(appI18n.Tp(p.ctx, "PreviousAttempts", attempts))
			p.raw(`</li>`)
		}
		p.raw(`</ul>`)
		if t.Instructions != "" {
			p.raw(`<h3>`)
			p.t("Instructions")
			p.raw(`</h3><p style="white-space:pre-wrap">`)
			p.text(t.Instructions)
			p.raw(`</p>`)
		}
		p.raw(`<p><small>`)
		p.t("LegendHelp")
		p.raw(`</small></p><a class="btn" href="`, p.url("/exam?testId="+t.ID), `">`)
		p.t("StartExam")
		p.raw(`</a> <a class="btn secondary" href="`, p.url("/student"), `">`)
		p.t("Back")
		p.raw(`</a></div>`)
	}))
}
