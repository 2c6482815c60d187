package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examportal/internal/csvimport"
	"github.com/pavelanni/examportal/internal/handler/views"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/model"
)

const maxUploadSize = 10 << 20

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{})
}

// renderAdmin fills d with the current tests, results and students.
func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, d views.AdminData) {
	ctx := r.Context()
	tests, err := h.store.ListTests(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	results, err := h.store.ListResults(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	students, err := h.store.ListStudents(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d.Tests = tests
	d.Groups = groupResults(results)
	d.Students = students
	d.CanDraft = h.drafter != nil
	render(w, r, status, views.AdminPage(d))
}

// groupResults buckets results per student. Attempts are numbered from the
// oldest; groups are ordered by student name.
func groupResults(results []model.Result) []views.ResultGroup {
	byEmail := map[string]*views.ResultGroup{}
	var order []string
	sorted := append([]model.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	for _, r := range sorted {
		g, ok := byEmail[r.StudentEmail]
		if !ok {
			g = &views.ResultGroup{Email: r.StudentEmail, Name: r.StudentName}
			byEmail[r.StudentEmail] = g
			order = append(order, r.StudentEmail)
		}
		g.Attempts = append(g.Attempts, views.Attempt{N: len(g.Attempts) + 1, Result: r})
	}
	groups := make([]views.ResultGroup, 0, len(order))
	for _, email := range order {
		groups = append(groups, *byEmail[email])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	return groups
}

func parseMeta(r *http.Request) (csvimport.Meta, error) {
	meta := csvimport.Meta{
		Title:        strings.TrimSpace(r.FormValue("title")),
		Instructions: strings.TrimSpace(r.FormValue("instructions")),
	}
	var err error
	if v := r.FormValue("positive_mark"); v != "" {
		if meta.PositiveMark, err = strconv.ParseFloat(v, 64); err != nil {
			return meta, &model.ValidationError{Field: "positiveMark", Reason: "must be a number"}
		}
	}
	if v := r.FormValue("negative_mark"); v != "" {
		if meta.NegativeMark, err = strconv.ParseFloat(v, 64); err != nil {
			return meta, &model.ValidationError{Field: "negativeMark", Reason: "must be a number"}
		}
	}
	if v := r.FormValue("duration"); v != "" {
		if meta.Duration, err = strconv.Atoi(v); err != nil {
			return meta, &model.ValidationError{Field: "duration", Reason: "must be a whole number of minutes"}
		}
	}
	return meta, nil
}

// handleCreateTest validates an uploaded CSV and creates an active test from
// it. Nothing is written when any row is invalid.
func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, views.AdminData{Flash: appI18n.T(ctx, "UploadTooLarge"), IsError: true})
		return
	}
	meta, err := parseMeta(r)
	if err != nil {
		h.adminError(w, r, meta, err)
		return
	}

	file, header, err := r.FormFile("questions_file")
	if err != nil {
		h.adminError(w, r, meta, &model.ValidationError{Field: "file", Reason: "no file uploaded"})
		return
	}
	defer file.Close()

	t, err := csvimport.Build(meta, file)
	if err != nil {
		h.adminError(w, r, meta, err)
		return
	}

	drafted := 0
	if h.drafter != nil && r.FormValue("draft") == "yes" {
		drafted, err = h.drafter.FillMissing(ctx, &t)
		if err != nil {
			slog.Warn("some explanations were not drafted", "title", t.Title, "error", err)
		}
	}

	id, err := h.store.CreateTest(ctx, t)
	if err != nil {
		h.adminError(w, r, meta, model.Transient("create test", err))
		return
	}
	slog.Info("imported test via admin", "id", id, "filename", header.Filename, "questions", len(t.Questions), "drafted", drafted)

	msg := appI18n.Td(ctx, "UploadSuccess", map[string]any{"Title": t.Title, "Count": len(t.Questions)})
	if drafted > 0 {
		msg += " " + appI18n.Td(ctx, "DraftedCount", map[string]any{"Count": drafted})
	}
	h.renderAdmin(w, r, http.StatusOK, views.AdminData{Flash: msg})
}

// adminError re-renders the console with the submitted form and err inline.
func (h *Handler) adminError(w http.ResponseWriter, r *http.Request, meta csvimport.Meta, err error) {
	status, msg := describe(r.Context(), err)
	if status >= http.StatusInternalServerError {
		slog.Error("admin action failed", "error", err)
	} else {
		slog.Info("admin input rejected", "error", err)
	}
	h.renderAdmin(w, r, status, views.AdminData{Form: meta, Flash: msg, IsError: true})
}

func (h *Handler) handleToggleTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "testID")
	t, err := h.store.GetTest(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.SetTestActive(ctx, id, !t.Active); err != nil {
		h.fail(w, r, model.Transient("toggle test", err))
		return
	}
	slog.Info("test toggled", "id", id, "active", !t.Active)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "testID")
	if err := h.store.DeleteTest(r.Context(), id); err != nil {
		h.fail(w, r, model.Transient("delete test", err))
		return
	}
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resultID")
	if err := h.store.DeleteResult(r.Context(), id); err != nil {
		h.fail(w, r, model.Transient("delete result", err))
		return
	}
	slog.Info("result deleted by admin", "result", id)
	http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
}

// handleExport downloads every result as JSON.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportResults(r.Context())
	if err != nil {
		h.fail(w, r, model.Transient("export results", err))
		return
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		h.fail(w, r, fmt.Errorf("marshal export: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="results.json"`)
	_, _ = w.Write(data)
}
