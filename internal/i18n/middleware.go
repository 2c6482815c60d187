package i18n

import (
	"net/http"
	"time"
)

// LangCookie remembers a language picked with the ?lang= query parameter.
const LangCookie = "lang"

// Middleware negotiates the language of every request: an explicit ?lang=
// choice, then the lang cookie, then Accept-Language, then def.
func Middleware(def string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieLang string
			if c, err := r.Cookie(LangCookie); err == nil {
				cookieLang = c.Value
			}
			explicit := r.URL.Query().Get("lang")
			tag := Match(explicit, cookieLang, r.Header.Get("Accept-Language"), def)
			if explicit != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    tag.String(),
					Path:     "/",
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), tag)))
		})
	}
}
