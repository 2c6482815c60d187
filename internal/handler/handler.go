package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examportal/internal/chat"
	"github.com/pavelanni/examportal/internal/exam"
	"github.com/pavelanni/examportal/internal/handler/views"
	appI18n "github.com/pavelanni/examportal/internal/i18n"
	"github.com/pavelanni/examportal/internal/identity"
	"github.com/pavelanni/examportal/internal/model"
	"github.com/pavelanni/examportal/internal/store"
)

// Drafter fills in missing question explanations.
type Drafter interface {
	FillMissing(ctx context.Context, t *model.Test) (int, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	ident   *identity.Provider
	exams   *exam.Manager
	chat    *chat.Service
	drafter Drafter
	config  model.Config
}

// New creates a new Handler. drafter may be nil.
func New(s *store.Store, ident *identity.Provider, exams *exam.Manager, chatSvc *chat.Service, drafter Drafter, cfg model.Config) *Handler {
	return &Handler{
		store:   s,
		ident:   ident,
		exams:   exams,
		chat:    chatSvc,
		drafter: drafter,
		config:  cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.handleIndex)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Get("/student", h.handleDashboard)
			r.Get("/student/tests/{testID}", h.handleInstructions)
			r.Post("/student/results/{resultID}/delete", h.handleDeleteOwnResult)
			r.Get("/exam", h.handleStartExam)
			r.Get("/exam/{sessionID}", h.handleExamPage)
			r.Post("/exam/{sessionID}", h.handleExamAction)
			r.Get("/exam/{sessionID}/ws", h.handleExamSocket)
			r.Get("/solution", h.handleSolution)
			r.Get("/chat", h.handleStudentChat)
			r.Get("/chat/ws", h.handleStudentChatSocket)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/", h.handleAdminPage)
			r.Post("/tests", h.handleCreateTest)
			r.Post("/tests/{testID}/toggle", h.handleToggleTest)
			r.Post("/tests/{testID}/delete", h.handleDeleteTest)
			r.Post("/results/{resultID}/delete", h.handleDeleteResult)
			r.Get("/export", h.handleExport)
			r.Get("/chat", h.handleAdminChat)
			r.Get("/chat/ws", h.handleAdminChatSocket)
			r.Get("/chat/inbox/ws", h.handleInboxSocket)
		})
	})
}

// BasePathMiddleware stores the mount point in the request context so views
// can build absolute links.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if model.UserFromContext(r.Context()).IsAdmin() {
		http.Redirect(w, r, h.path("/admin"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.path("/student"), http.StatusSeeOther)
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// fail turns err into an error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := describe(r.Context(), err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render(w, r, status, views.ErrorPage(msg))
}

var authMessages = map[string]string{
	model.AuthInvalidCredentials: "AuthInvalidCredentials",
	model.AuthWrongPassword:      "AuthWrongPassword",
	model.AuthUserNotFound:       "AuthUserNotFound",
	model.AuthAdminNotFound:      "AuthAdminNotFound",
	model.AuthEmailInUse:         "AuthEmailInUse",
	model.AuthUserDisabled:       "AuthUserDisabled",
	model.AuthSessionExpired:     "AuthSessionExpired",
}

// describe maps an error to a status code and a localized message.
func describe(ctx context.Context, err error) (int, string) {
	var (
		ve *model.ValidationError
		ae *model.AuthError
		te *model.TransientError
	)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, appI18n.T(ctx, "ErrNotFound")
	case errors.As(err, &ve):
		return http.StatusBadRequest, appI18n.Td(ctx, "ErrValidation", map[string]any{"Detail": ve.Error()})
	case errors.As(err, &ae):
		id, ok := authMessages[ae.Code]
		if !ok {
			id = "AuthGeneric"
		}
		return http.StatusUnauthorized, appI18n.T(ctx, id)
	case errors.As(err, &te):
		return http.StatusServiceUnavailable, appI18n.T(ctx, "ErrTransient")
	case errors.Is(err, exam.ErrNotConfirmed):
		return http.StatusBadRequest, appI18n.T(ctx, "ErrNotConfirmed")
	case errors.Is(err, exam.ErrInputClosed):
		return http.StatusConflict, appI18n.T(ctx, "ErrInputClosed")
	case errors.Is(err, exam.ErrNotStarted):
		return http.StatusConflict, appI18n.T(ctx, "ErrNotStarted")
	}
	return http.StatusInternalServerError, appI18n.T(ctx, "ErrInternal")
}

const flashCookieName = "flash"

// setFlash stores a message ID shown once by the next dashboard render.
func (h *Handler) setFlash(w http.ResponseWriter, msgID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    msgID,
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns the translated pending flash message and clears it.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) (msg string, isError bool) {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	isError, ok := flashMessages[c.Value]
	if !ok {
		return "", false
	}
	return appI18n.T(r.Context(), c.Value), isError
}

// flashMessages lists the IDs a flash cookie may carry and whether each
// reports an error.
var flashMessages = map[string]bool{
	"TestNotFound":    true,
	"SessionNotFound": true,
	"ResultDeleted":   false,
}
