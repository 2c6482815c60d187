package views

import "github.com/a-h/templ"

// StudentChatPage renders the student's thread with the admin. Messages and
// presence arrive over the page's websocket.
func StudentChatPage() templ.Component {
	return titled("ChatTitle", component(func(p *page) {
		p.raw(`<div class="card"><h2>`)
		p.t("ChatWithAdmin")
		p.raw(` <span id="peer-dot" class="dot"></span> <small id="peer-status">`)
		p.t("Offline")
		p.raw(`</small></h2>`)
		chatThread(p)
		p.raw(`</div>`)
		p.raw(`<script>`, chatScript(p.ctx, URL(p.ctx, "/chat/ws"), ""), `</script>`)
	}))
}

// AdminChatPage renders the inbox and, when student is set, that student's thread.
func AdminChatPage(student string) templ.Component {
	return titled("ChatTitle", component(func(p *page) {
		p.raw(`<div class="chat"><aside class="card"><h3>`)
		p.t("Inbox")
		p.raw(`</h3><div id="inbox" class="inbox" data-selected="`, templ.EscapeString(student), `" data-href="`, p.url("/admin/chat?student="), `"></div></aside><div class="card" style="flex:1">`)
		if student == "" {
			p.raw(`<p>`)
			p.t("SelectStudent")
			p.raw(`</p>`)
		} else {
			p.raw(`<h2>`)
			p.text(student)
			p.raw(` <span id="peer-dot" class="dot"></span> <small id="peer-status">`)
			p.t("Offline")
			p.raw(`</small></h2>`)
			chatThread(p)
		}
		p.raw(`</div></div><script>`, inboxScript(p.ctx, URL(p.ctx, "/admin/chat/inbox/ws")), `</script>`)
		if student != "" {
			p.raw(`<script>`, chatScript(p.ctx, URL(p.ctx, "/admin/chat/ws"), student), `</script>`)
		}
	}))
}

func chatThread(p *page) {
	p.raw(`<div id="thread" class="thread"></div><p><small id="typing" style="visibility:hidden">`)
	p.t("Typing")
	p.raw(`</small></p><form id="send" style="display:flex;gap:.5rem"><input id="text" autocomplete="off" maxlength="2000" style="flex:1" placeholder="`)
	p.t("TypeMessage")
	p.raw(`"><button type="submit">`)
	p.t("Send")
	p.raw(`</button><button type="button" id="clear" class="danger">`)
	p.t("ClearChat")
	p.raw(`</button></form><p id="chat-error" class="incorrect"></p>`)
}

