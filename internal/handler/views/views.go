// Package views renders the HTML pages of the portal as templ components.
package views

//go:generate go run github.com/a-h/templ/cmd/templ generate

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pavelanni/examportal/internal/csvimport"
	"github.com/pavelanni/examportal/internal/exam"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/solution"
)

// DashboardData is what the student dashboard shows.
type DashboardData struct {
	Tests   []model.Test
	Results []model.Result
	Flash   string
	IsError bool
}

// Attempt is one numbered result of a student.
type Attempt struct {
	N int
	model.Result
}

// ResultGroup holds one student's attempts, oldest first.
type ResultGroup struct {
	Email    string
	Name     string
	Attempts []Attempt
}

// AdminData is everything the console shows.
type AdminData struct {
	Tests    []model.Test
	Groups   []ResultGroup
	Students []model.Student
	Form     csvimport.Meta
	CanDraft bool
	Flash    string
	IsError  bool
}

// URL prefixes path with the base path stored in ctx.
func URL(ctx context.Context, path string) string {
	return model.BasePathFromContext(ctx) + path
}

// confirmJS is an onsubmit handler that asks msg before the form is sent.
func confirmJS(msg string) string {
	return "return confirm(" + jsValue(msg) + ")"
}

// jsValue quotes s as a JavaScript string literal for use inside a script element.
func jsValue(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

var statusLabels = map[exam.QuestionStatus]string{
	exam.NotVisited:          "StatusNotVisited",
	exam.VisitedNotAttempted: "StatusNotAnswered",
	exam.Attempted:           "StatusAnswered",
	exam.MarkedForReview:     "StatusMarked",
}

var legendOrder = []exam.QuestionStatus{exam.Attempted, exam.VisitedNotAttempted, exam.NotVisited, exam.MarkedForReview}

var outcomeLabels = map[solution.Outcome]string{
	solution.Correct:     "OutcomeCorrect",
	solution.Incorrect:   "OutcomeIncorrect",
	solution.Unattempted: "OutcomeUnattempted",
}

func examScript(base string) string {
	return `(function(){
var proto = location.protocol === "https:" ? "wss://" : "ws://";
var ws = new WebSocket(proto + location.host + ` + jsValue(base+"/ws") + `);
var timer = document.getElementById("timer");
ws.onmessage = function(ev){
  var f = JSON.parse(ev.data);
  if (f.type === "tick") { timer.textContent = f.clock; }
  if (f.type === "submitted") { location.href = ` + jsValue(base) + `; }
  if (f.type === "error") { timer.textContent = f.message; }
};
})();`
}

const wsOpen = `function wsOpen(path){var proto = location.protocol === "https:" ? "wss://" : "ws://";return new WebSocket(proto + location.host + path);}`

func chatScript(ctx context.Context, path, student string) string {
	if student != "" {
		path += "?student=" + url.QueryEscape(student)
	}
	return `(function(){
` + wsOpen + `
var ws = wsOpen(` + jsValue(path) + `);
var thread = document.getElementById("thread");
var typing = document.getElementById("typing");
var errBox = document.getElementById("chat-error");
var onlineText = ` + jsValue(appI18n.T(ctx, "Online")) + `, offlineText = ` + jsValue(appI18n.T(ctx, "Offline")) + `;
ws.onmessage = function(ev){
  var f = JSON.parse(ev.data);
  if (f.type === "messages") {
    thread.textContent = "";
    (f.days || []).forEach(function(d){
      var sep = document.createElement("div"); sep.className = "day"; sep.textContent = d.label; thread.appendChild(sep);
      (d.messages || []).forEach(function(m){
        var el = document.createElement("div"); el.className = m.mine ? "msg mine" : "msg";
        el.textContent = m.text;
        var t = document.createElement("small"); t.textContent = m.time; el.appendChild(t);
        thread.appendChild(el);
      });
    });
    thread.scrollTop = thread.scrollHeight;
  }
  if (f.type === "presence") {
    document.getElementById("peer-dot").className = f.online ? "dot on" : "dot";
    document.getElementById("peer-status").textContent = f.online ? onlineText : offlineText;
    typing.style.visibility = f.typing ? "visible" : "hidden";
  }
  if (f.type === "error") { errBox.textContent = f.message; }
};
var input = document.getElementById("text");
input.addEventListener("input", function(){ ws.send(JSON.stringify({type: "typing"})); });
document.getElementById("send").addEventListener("submit", function(e){
  e.preventDefault();
  if (!input.value.trim()) { return; }
  errBox.textContent = "";
  ws.send(JSON.stringify({type: "send", text: input.value}));
  input.value = "";
});
document.getElementById("clear").addEventListener("click", function(){
  if (confirm(` + jsValue(appI18n.T(ctx, "ConfirmClearChat")) + `)) { ws.send(JSON.stringify({type: "clear"})); }
});
})();`
}

func inboxScript(ctx context.Context, path string) string {
	return `(function(){
` + wsOpen + `
var ws = wsOpen(` + jsValue(path) + `);
var box = document.getElementById("inbox");
var typingText = ` + jsValue(appI18n.T(ctx, "Typing")) + `;
ws.onmessage = function(ev){
  var f = JSON.parse(ev.data);
  if (f.type !== "inbox") { return; }
  box.textContent = "";
  (f.entries || []).forEach(function(e){
    var a = document.createElement("a");
    a.href = box.dataset.href + encodeURIComponent(e.email);
    if (e.email === box.dataset.selected) { a.className = "selected"; }
    var dot = document.createElement("span"); dot.className = e.online ? "dot on" : "dot"; a.appendChild(dot);
    var name = document.createElement("span"); name.style.flex = "1"; name.textContent = e.name; a.appendChild(name);
    if (e.typing) { var t = document.createElement("small"); t.textContent = typingText; a.appendChild(t); }
    if (e.unread > 0) { var b = document.createElement("span"); b.className = "badge"; b.textContent = e.unread; a.appendChild(b); }
    box.appendChild(a);
  });
};
})();`
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#222}
header{background:#1f3a5f;color:#fff;padding:.6rem 1.2rem;display:flex;gap:1rem;align-items:center}
header a{color:#fff;text-decoration:none}
header .spacer{flex:1}
main{max-width:1100px;margin:1.2rem auto;padding:0 1rem}
.card{background:#fff;border-radius:6px;padding:1rem 1.2rem;margin-bottom:1rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.inline{display:inline}
.flash{padding:.6rem 1rem;border-radius:4px;margin-bottom:1rem}
.flash.error{background:#fde8e8;color:#8a1c1c}
.flash.ok{background:#e7f6ea;color:#1c5e2a}
table{border-collapse:collapse;width:100%}
th,td{text-align:left;padding:.4rem .5rem;border-bottom:1px solid #eee}
button,.btn{background:#1f3a5f;color:#fff;border:0;border-radius:4px;padding:.35rem .8rem;cursor:pointer;text-decoration:none;display:inline-block}
button.secondary,.btn.secondary{background:#6b7785}
button.danger{background:#b42318}
.nav-grid{display:grid;grid-template-columns:repeat(5,2.4rem);gap:.4rem}
.nav-grid button{width:2.4rem;height:2.4rem;padding:0}
.not-visited{background:#c9ced6;color:#222}
.visited-not-attempted{background:#d64545}
.attempted{background:#2f8f4e}
.marked-for-review{background:#7a4fc4}
.nav-grid .active{outline:3px solid #f0b429}
.timer{font-size:1.4rem;font-weight:bold}
.correct{color:#1c7c3a}
.incorrect{color:#b42318}
.unattempted{color:#6b7785}
.opt-correct{background:#e7f6ea}
.opt-wrong{background:#fde8e8}
.chat{display:flex;gap:1rem}
.chat aside{width:280px}
.thread{height:420px;overflow-y:auto;background:#fafbfc;padding:.5rem;border:1px solid #eee}
.msg{max-width:70%;margin:.3rem 0;padding:.4rem .6rem;border-radius:6px;background:#e9edf3}
.msg.mine{margin-left:auto;background:#d7e8ff}
.msg small{display:block;color:#777;font-size:.75rem}
.day{text-align:center;color:#777;font-size:.8rem;margin:.6rem 0}
.badge{background:#b42318;color:#fff;border-radius:10px;padding:0 .45rem;font-size:.75rem}
.dot{display:inline-block;width:.6rem;height:.6rem;border-radius:50%;background:#c9ced6}
.dot.on{background:#2f8f4e}
.inbox a{display:flex;gap:.5rem;align-items:center;padding:.4rem;color:inherit;text-decoration:none;border-bottom:1px solid #eee}
.inbox a.selected{background:#eef3fa}
`

