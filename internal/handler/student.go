package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examportal/internal/handler/views"
	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/solution"
)

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)

	tests, err := h.store.ListActiveTests(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	results, err := h.store.ResultsForStudent(ctx, user.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	flash, isError := h.takeFlash(w, r)
	render(w, r, http.StatusOK, views.StudentDashboard(views.DashboardData{
		Tests:   tests,
		Results: results,
		Flash:   flash,
		IsError: isError,
	}))
}

func (h *Handler) handleInstructions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)

	t, err := h.store.GetTest(ctx, chi.URLParam(r, "testID"))
	if err == nil && !t.Active {
		err = fmt.Errorf("test %s is inactive: %w", t.ID, model.ErrNotFound)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	previous, err := h.store.ResultsForStudentTest(ctx, user.Email, t.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render(w, r, http.StatusOK, views.InstructionsPage(t, len(previous)))
}

// handleDeleteOwnResult lets a student remove one of their own results.
func (h *Handler) handleDeleteOwnResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)
	id := chi.URLParam(r, "resultID")

	res, err := h.store.GetResult(ctx, id)
	if err == nil && res.StudentEmail != user.Email {
		err = fmt.Errorf("result %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteResult(ctx, id); err != nil {
		h.fail(w, r, model.Transient("delete result", err))
		return
	}
	slog.Info("result deleted by student", "result", id, "email", user.Email)
	h.setFlash(w, "ResultDeleted")
	http.Redirect(w, r, h.path("/student"), http.StatusSeeOther)
}

// handleSolution shows the caller's latest attempt at a test.
func (h *Handler) handleSolution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := model.UserFromContext(ctx)

	testID := r.URL.Query().Get("testId")
	if testID == "" {
		h.fail(w, r, &model.ValidationError{Field: "testId", Reason: "is required"})
		return
	}
	t, err := h.store.GetTest(ctx, testID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	results, err := h.store.ResultsForStudentTest(ctx, user.Email, testID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rv, err := solution.Build(t, results, user.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render(w, r, http.StatusOK, views.SolutionPage(rv))
}
