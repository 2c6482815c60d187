package views

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

// AdminPage renders the admin console.
func AdminPage(d AdminData) templ.Component {
	return titled("ConsoleTitle", component(func(p *page) {
		p.render(Flash(d.Flash, d.IsError))
		adminUpload(p, d)
		adminTests(p, d.Tests)
		adminResults(p, d.Groups)
		adminStudents(p, d.Students)
	}))
}

func adminUpload(p *page, d AdminData) {
	f := d.Form
	if f.PositiveMark == 0 {
		f.PositiveMark = 1
	}
	if f.Duration == 0 {
		f.Duration = 10
	}
	p.raw(`<div class="card"><h2>`)
	p.t("CreateTest")
	p.raw(`</h2><form method="post" enctype="multipart/form-data" action="`, p.url("/admin/tests"), `">`)
	p.csrf()
	p.raw(`<p><label>`)
	p.t("Title")
	p.raw(`<br><input name="title" required value="`, templ.EscapeString(f.Title), `"></label></p><p><label>`)
	p.t("PositiveMark")
	p.raw(` <input type="number" step="0.25" min="0" name="positive_mark" value="`, formatScore(f.PositiveMark), `"></label> <label>`)
	p.t("NegativeMark")
	p.raw(` <input type="number" step="0.25" min="0" name="negative_mark" value="`, formatScore(f.NegativeMark), `"></label> <label>`)
	p.t("DurationMinutes")
	p.raw(` <input type="number" min="1" name="duration" value="`, strconv.Itoa(f.Duration), `"></label></p><p><label>`)
	p.t("Instructions")
	p.raw(`<br><textarea name="instructions" rows="3" cols="60">`)
	p.text(f.Instructions)
	p.raw(`</textarea></label></p><p><label>`)
	p.t("CSVFile")
	p.raw(` <input type="file" name="questions_file" accept=".csv,text/csv" required></label></p><p><small>`)
	p.t("CSVFormatHelp")
	p.raw(`</small></p>`)
	if d.CanDraft {
		p.raw(`<p><label><input type="checkbox" name="draft" value="yes"> `)
		p.t("DraftExplanations")
		p.raw(`</label></p>`)
	}
	p.raw(`<button type="submit">`)
	p.t("Upload")
	p.raw(`</button></form></div>`)
}

func adminTests(p *page, tests []model.Test) {
	p.raw(`<div class="card"><h2>`)
	p.t("Tests")
	p.raw(`</h2>`)
	if len(tests) == 0 {
		p.raw(`<p>`)
		p.t("NoTests")
		p.raw(`</p></div>`)
		return
	}
	p.raw(`<table><tr><th>`)
	p.t("Title")
	p.raw(`</th><th>`)
	p.t("Questions")
	p.raw(`</th><th>`)
	p.t("Duration")
	p.raw(`</th><th>`)
	p.t("Status")
	p.raw(`</th><th></th></tr>`)
	for _, t := range tests {
		p.raw(`<tr><td>`)
		p.text(t.Title)
		p.raw(`</td><td>`, strconv.Itoa(len(t.Questions)), `</td><td>`)
		p.text(appI18n.Td(p.ctx, "Minutes", map[string]any{"Count": t.Duration}))
		p.raw(`</td><td>`)
		toggle := "Activate"
		if t.Active {
			p.t("Active")
			toggle = "Deactivate"
		} else {
			p.t("Inactive")
		}
		p.raw(`</td><td>`)
		p.postButton("/admin/tests/"+t.ID+"/toggle", appI18n.T(p.ctx, toggle), "secondary", "")
		p.raw(` `)
		p.postButton("/admin/tests/"+t.ID+"/delete", appI18n.T(p.ctx, "Delete"), "danger", appI18n.T(p.ctx, "ConfirmDeleteTest"))
		p.raw(`</td></tr>`)
	}
	p.raw(`</table></div>`)
}

func adminResults(p *page, groups []ResultGroup) {
	p.raw(`<div class="card"><h2>`)
	p.t("Results")
	p.raw(` <a class="btn secondary" href="`, p.url("/admin/export"), `">`)
	p.t("ExportJSON")
	p.raw(`</a></h2>`)
	if len(groups) == 0 {
		p.raw(`<p>`)
		p.t("NoResults")
		p.raw(`</p></div>`)
		return
	}
	for _, g := range groups {
		p.raw(`<h3>`)
		p.text(g.Name)
		p.raw(` <small>`)
		p.text(g.Email)
		p.raw(`</small></h3><table><tr><th>#</th><th>`)
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
		for _, a := range g.Attempts {
			p.raw(`<tr><td>`, strconv.Itoa(a.N), `</td><td>`)
			p.text(a.TestTitle)
			p.raw(`</td><td>`)
			p.text(formatScore(a.Score))
			p.raw(`</td><td class="correct">`, strconv.Itoa(a.Correct), `</td><td class="incorrect">`, strconv.Itoa(a.Incorrect),
				`</td><td class="unattempted">`, strconv.Itoa(a.NotAttempted), `</td><td>`)
			p.text(a.TimeTaken)
			p.raw(`</td><td>`)
			p.text(formatTime(a.SubmittedAt))
			p.raw(`</td><td>`)
			p.postButton("/admin/results/"+a.ID+"/delete", appI18n.T(p.ctx, "Delete"), "danger", appI18n.T(p.ctx, "ConfirmDeleteResult"))
			p.raw(`</td></tr>`)
		}
		p.raw(`</table>`)
	}
	p.raw(`</div>`)
}

func adminStudents(p *page, students []model.Student) {
	p.raw(`<div class="card"><h2>`)
	p.text(appI18n.Tp(p.ctx, "StudentCount", len(students)))
	p.raw(`</h2><table><tr><th>`)
	p.t("Name")
	p.raw(`</th><th>`)
	p.t("Email")
	p.raw(`</th><th>`)
	p.t("Registered")
	p.raw(`</th><th></th></tr>`)
	for _, st := range students {
		p.raw(`<tr><td>`)
		p.text(st.DisplayName())
		p.raw(`</td><td>`)
		p.text(st.Email)
		p.raw(`</td><td>`)
		p.text(formatTime(st.CreatedAt))
		p.raw(`</td><td><a class="btn secondary" href="`, p.url("/admin/chat?student="+url.QueryEscape(st.Email)), `">`)
		p.t("NavChat")
		p.raw(`</a></td></tr>`)
	}
	p.raw(`</table></div>`)
}
