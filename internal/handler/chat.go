package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/examportal/internal/chat"
	"github.com/pavelanni/examportal/internal/handler/views"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

func (h *Handler) handleStudentChat(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.StudentChatPage())
}

func (h *Handler) handleAdminChat(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.AdminChatPage(strings.TrimSpace(r.URL.Query().Get("student"))))
}

func (h *Handler) handleStudentChatSocket(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	h.serveThread(w, r, user, user.Email, model.AdminID, true)
}

func (h *Handler) handleAdminChatSocket(w http.ResponseWriter, r *http.Request) {
	student := strings.TrimSpace(r.URL.Query().Get("student"))
	if student == "" {
		http.Error(w, "student is required", http.StatusBadRequest)
		return
	}
	h.serveThread(w, r, model.UserFromContext(r.Context()), student, student, false)
}

// serveThread runs one chat socket: it pushes the thread of student and the
// presence of peer, and applies send, typing and clear frames from the client.
// The student side also reports its own presence for as long as it is open.
func (h *Handler) serveThread(w http.ResponseWriter, r *http.Request, user *model.User, student, peer string, heartbeat bool) {
	conn, err := upgrade(w, r)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	thread, err := h.chat.WatchThread(ctx, student, user.IsAdmin())
	if err != nil {
		conn.sendError(appI18n.T(ctx, "ErrTransient"))
		return
	}
	defer thread.Close()
	presence, err := h.chat.WatchPresence(ctx, peer)
	if err != nil {
		conn.sendError(appI18n.T(ctx, "ErrTransient"))
		return
	}
	defer presence.Close()

	if heartbeat {
		hb := h.chat.Heartbeat(user)
		go hb.Run(ctx)
	}
	typing := h.chat.Typing(user)
	defer typing.Stop()

	go conn.readLoop(ctx, cancel, func(f frame) {
		var err error
		switch f.Type {
		case "send":
			_, err = h.chat.Send(ctx, user, student, f.Text)
		case "typing":
			err = typing.Keystroke(ctx)
		case "clear":
			var n int
			n, err = h.chat.Clear(ctx, student)
			if err == nil {
				slog.Info("chat cleared from socket", "by", user.Email, "student", student, "messages", n)
			}
		}
		if err != nil {
			_, msg := describe(ctx, err)
			conn.sendError(msg)
		}
	})

	// Observed presence depends on the clock as well as on writes, so the
	// last status is re-evaluated periodically.
	recheck := time.NewTicker(h.chat.Config().StudentPing)
	defer recheck.Stop()
	var last *model.Presence

	for {
		select {
		case <-ctx.Done():
			return
		case msgs, ok := <-thread.Messages():
			if !ok {
				return
			}
			if err := conn.send(frame{Type: "messages", Days: dayFrames(ctx, msgs, user)}); err != nil {
				return
			}
		case p, ok := <-presence.Updates():
			if !ok {
				return
			}
			last = &p
			if err := h.sendPresence(conn, p, user.IsAdmin()); err != nil {
				return
			}
		case <-recheck.C:
			if last == nil {
				continue
			}
			if err := h.sendPresence(conn, *last, user.IsAdmin()); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendPresence(conn *wsConn, p model.Presence, observerIsAdmin bool) error {
	online := h.chat.Online(p, observerIsAdmin)
	return conn.send(frame{Type: "presence", Online: online, Typing: online && p.Typing})
}

func dayFrames(ctx context.Context, msgs []model.ChatMessage, viewer *model.User) []dayFrame {
	days := chat.GroupByDay(msgs, time.Now(), time.Local)
	out := make([]dayFrame, 0, len(days))
	for _, d := range days {
		df := dayFrame{Label: dayLabel(ctx, d), Messages: make([]messageFrame, 0, len(d.Messages))}
		for _, m := range d.Messages {
			df.Messages = append(df.Messages, messageFrame{
				Text: m.Text,
				Time: m.Timestamp.Local().Format("15:04"),
				Mine: m.From == viewer.ChatID(),
			})
		}
		out = append(out, df)
	}
	return out
}

func dayLabel(ctx context.Context, d chat.Day) string {
	switch {
	case d.Today:
		return appI18n.T(ctx, "Today")
	case d.Yesterday:
		return appI18n.T(ctx, "Yesterday")
	}
	return d.Date.Format("02.01.2006")
}

// handleInboxSocket pushes the admin inbox and keeps the admin's presence
// fresh while the chat console is open.
func (h *Handler) handleInboxSocket(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	conn, err := upgrade(w, r)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbox, err := h.chat.WatchInbox(ctx)
	if err != nil {
		conn.sendError(appI18n.T(r.Context(), "ErrTransient"))
		return
	}
	defer inbox.Close()

	go h.chat.Heartbeat(user).Run(ctx)
	go conn.readLoop(ctx, cancel, nil)

	for {
		select {
		case <-ctx.Done():
			return
		case entries, ok := <-inbox.Entries():
			if !ok {
				return
			}
			if err := conn.send(frame{Type: "inbox", Entries: inboxFrames(entries)}); err != nil {
				return
			}
		}
	}
}

func inboxFrames(entries []chat.InboxEntry) []inboxFrame {
	out := make([]inboxFrame, 0, len(entries))
	for _, e := range entries {
		out = append(out, inboxFrame{
			Email:  e.Student.Email,
			Name:   e.Student.DisplayName(),
			Unread: e.Unread,
			Online: e.Online,
			Typing: e.Typing,
		})
	}
	return out
}
