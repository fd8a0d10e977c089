package middleware

import (
	"net/http"
	"strings"

	"github.com/atimot/najilaboule/internal/i18n"
)

// LangCookie remembers the visitor's language across sessions.
const LangCookie = "hl"

// VaryLocale adds Accept-Language to Vary on dynamic responses.
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}

// PreferredLang picks the language for a visitor without a live view: the
// ?hl= query, then the hl cookie, then Accept-Language. Values outside the
// store's language set are skipped, never coerced.
func PreferredLang(store *i18n.Store, r *http.Request) i18n.Lang {
	if q := normalize(r.URL.Query().Get("hl")); q != "" && store.Supports(q) {
		return q
	}
	if c, err := r.Cookie(LangCookie); err == nil {
		if v := normalize(c.Value); store.Supports(v) {
			return v
		}
	}
	return store.Resolve(r.Header.Get("Accept-Language"))
}

// RememberLang writes the hl cookie.
func RememberLang(w http.ResponseWriter, lang i18n.Lang, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookie,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func normalize(v string) i18n.Lang {
	return i18n.Lang(strings.ToLower(strings.TrimSpace(v)))
}
