// Hand-written renderers for the components in the .templ files of this
// package. Running templ generate replaces the *_templ.go files.

package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

// page accumulates the first write error so markup reads top to bottom.
type page struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (p *page) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *page) textf(format string, args ...any) {
	p.text(fmt.Sprintf(format, args...))
}

func (p *page) t(id string) {
	p.text(appI18n.T(p.ctx, id))
}

func (p *page) render(c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(p.ctx, p.w)
}

// url prefixes an absolute app path with the mount point.
func (p *page) url(path string) string {
	return templ.EscapeString(URL(p.ctx, path))
}

func (p *page) csrf() {
	p.raw(`<input type="hidden" name="csrf_token" value="`, templ.EscapeString(model.CSRFTokenFromContext(p.ctx)), `">`)
}

// postButton renders a single-button form posting to path.
func (p *page) postButton(path, label, class, confirm string) {
	p.raw(`<form method="post" class="inline" action="`, p.url(path), `"`)
	if confirm != "" {
		p.raw(` onsubmit="`, templ.EscapeString(confirmJS(confirm)), `"`)
	}
	p.raw(`>`)
	p.csrf()
	p.raw(`<button type="submit" class="`, class, `">`)
	p.text(label)
	p.raw(`</button></form>`)
}

func component(fn func(p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{ctx: ctx, w: w}
		fn(p)
		return p.err
	})
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(p *page) {
		user := model.UserFromContext(p.ctx)
		p.raw(`<!DOCTYPE html><html lang="`, templ.EscapeString(appI18n.Lang(p.ctx)), `"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(` · `)
		p.t("AppTitle")
		p.raw(`</title><style>`, styles, `</style></head><body><header><a href="`, p.url("/"), `"><strong>`)
		p.t("AppTitle")
		p.raw(`</strong></a>`)
		if user != nil {
			if user.IsAdmin() {
				p.raw(`<a href="`, p.url("/admin"), `">`)
				p.t("NavConsole")
				p.raw(`</a><a href="`, p.url("/admin/chat"), `">`)
				p.t("NavChat")
				p.raw(`</a>`)
			} else {
				p.raw(`<a href="`, p.url("/student"), `">`)
				p.t("NavDashboard")
				p.raw(`</a><a href="`, p.url("/chat"), `">`)
				p.t("NavChat")
				p.raw(`</a>`)
			}
		}
		p.raw(`<span class="spacer"></span><a href="?lang=en">EN</a><a href="?lang=ru">RU</a>`)
		if user != nil {
			p.raw(`<span>`)
			p.text(user.Email)
			p.raw(`</span>`)
			p.postButton("/logout", appI18n.T(p.ctx, "Logout"), "secondary", "")
		}
		p.raw(`</header><main>`)
		p.render(body)
		p.raw(`</main></body></html>`)
	})
}

// Flash renders an informational or error banner; empty messages render nothing.
func Flash(msg string, isError bool) templ.Component {
	return component(func(p *page) {
		if msg == "" {
			return
		}
		class := "ok"
		if isError {
			class = "error"
		}
		p.raw(`<div class="flash `, class, `">`)
		p.text(msg)
		p.raw(`</div>`)
	})
}

// titled renders body in the layout under a translated title.
func titled(titleID string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(appI18n.T(ctx, titleID), body).Render(ctx, w)
	})
}

// ErrorPage shows a message with a link back home.
func ErrorPage(msg string) templ.Component {
	return titled("ErrorTitle", component(func(p *page) {
		p.raw(`<div class="card">`)
		p.render(Flash(msg, true))
		p.raw(`<a class="btn" href="`, p.url("/"), `">`)
		p.t("BackHome")
		p.raw(`</a></div>`)
	}))
}
