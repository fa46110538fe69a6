package i18n

import "net/http"

// Middleware injects a localizer into every request context. A "lang" query
// parameter wins over Accept-Language, which wins over defaultLang.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := NewLocalizer(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), defaultLang)
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
