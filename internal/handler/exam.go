package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examportal/internal/exam"
	"github.com/pavelanni/examportal/internal/handler/views"
	"github.com/pavelanni/examportal/internal/model"
)

// studentOf returns the profile of the signed-in user, falling back to the
// account name when no student document exists.
func (h *Handler) studentOf(ctx context.Context, u *model.User) model.Student {
	st, err := h.store.GetStudent(ctx, u.Email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			slog.Warn("failed to load student profile", "email", u.Email, "error", err)
		}
		return model.Student{Email: u.Email, Name: u.DisplayName}
	}
	return *st
}

// handleStartExam loads the test named by ?testId= into a new session.
func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)

	sess, err := h.exams.Start(ctx, r.URL.Query().Get("testId"), h.studentOf(ctx, user))
	if errors.Is(err, model.ErrNotFound) {
		slog.Info("exam not started", "email", user.Email, "error", err)
		h.setFlash(w, "TestNotFound")
		http.Redirect(w, r, h.path("/student"), http.StatusSeeOther)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, h.path("/exam/"+sess.ID), http.StatusSeeOther)
}

// session resolves the {sessionID} of the request for the signed-in student.
// On failure it redirects to the dashboard and returns nil.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *exam.Session {
	user := model.UserFromContext(r.Context())
	sess, err := h.exams.Get(chi.URLParam(r, "sessionID"), user.Email)
	if err != nil {
		h.setFlash(w, "SessionNotFound")
		http.Redirect(w, r, h.path("/student"), http.StatusSeeOther)
		return nil
	}
	return sess
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	h.renderExam(w, r, sess, http.StatusOK, "")
}

func (h *Handler) renderExam(w http.ResponseWriter, r *http.Request, sess *exam.Session, status int, errMsg string) {
	if sess.Phase() == exam.PhaseSubmitted {
		if res := sess.Result(); res != nil {
			render(w, r, status, views.ResultPage(*res, sess.Expired()))
			return
		}
	}
	render(w, r, status, views.ExamPage(sess.Snapshot(), errMsg))
}

// handleExamAction applies one student action and redirects back to the
// question page.
func (h *Handler) handleExamAction(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	err := h.applyExamAction(r, sess)
	if err != nil {
		if sess.Phase() == exam.PhaseSubmitted {
			http.Redirect(w, r, h.path("/exam/"+sess.ID), http.StatusSeeOther)
			return
		}
		status, msg := describe(r.Context(), err)
		if status >= http.StatusInternalServerError {
			slog.Error("exam action failed", "session", sess.ID, "error", err)
		}
		h.renderExam(w, r, sess, status, msg)
		return
	}
	http.Redirect(w, r, h.path("/exam/"+sess.ID), http.StatusSeeOther)
}

// applyExamAction maps the posted form onto a session operation.
func (h *Handler) applyExamAction(r *http.Request, sess *exam.Session) error {
	action := r.FormValue("action")
	switch action {
	case "next":
		return sess.Next()
	case "prev":
		return sess.Prev()
	case "submit":
		res, err := sess.Submit(r.Context(), r.FormValue("confirmed") == "yes")
		if err == nil {
			h.exams.Submitted(sess.ID)
			slog.Info("exam submitted", "session", sess.ID, "email", sess.Student.Email, "score", res.Score)
		}
		return err
	case "select", "clear", "mark", "goto":
	default:
		return &model.ValidationError{Field: "action", Reason: "is not supported"}
	}

	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		return &model.ValidationError{Field: "index", Reason: "must be a question number"}
	}
	switch action {
	case "select":
		option, err := strconv.Atoi(r.FormValue("option"))
		if err != nil {
			return &model.ValidationError{Field: "option", Reason: "is required"}
		}
		return sess.SelectAnswer(index, option)
	case "clear":
		return sess.ClearAnswer(index)
	case "mark":
		return sess.MarkForReview(index)
	default:
		return sess.Navigate(index)
	}
}

// handleExamSocket streams the countdown to the exam page. The session stays
// alive while at least one socket is attached.
func (h *Handler) handleExamSocket(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	sess, err := h.exams.Get(chi.URLParam(r, "sessionID"), user.Email)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	conn, err := upgrade(w, r)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.close()

	h.exams.Attach(sess.ID)
	defer h.exams.Detach(sess.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go conn.readLoop(ctx, cancel, nil)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if sess.Phase() == exam.PhaseSubmitted {
			_ = conn.send(frame{Type: "submitted"})
			return
		}
		remaining := sess.Remaining()
		if err := conn.send(frame{Type: "tick", Clock: exam.FormatClock(remaining), Remaining: remaining}); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
