package middleware

import (
	"net/http"
)

// SecurityHeaders aplica os cabeçalhos padrão. A API só devolve JSON e
// imagens, então a CSP bloqueia scripts por completo.
func SecurityHeaders(isProd bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			if isProd {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			w.Header().Set("Content-Security-Policy",
				"default-src 'none'; "+
					"img-src 'self'; "+
					"frame-ancestors 'none';")

			next.ServeHTTP(w, r)
		})
	}
}
