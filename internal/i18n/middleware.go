package i18n

import "net/http"

// Middleware picks the response language from Accept-Language, falling back
// to the default language, and injects its localizer into the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := Match(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			ctx := WithLocalizer(r.Context(), NewLocalizer(tag.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
