package i18n

import "net/http"

// Middleware resolves the server language once at router setup and attaches
// its localizer to every request context, so handlers can build validation
// and failure messages with T without threading the language around.
func Middleware(lang string) func(http.Handler) http.Handler {
	localizer := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), localizer)))
		})
	}
}
