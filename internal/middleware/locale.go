package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/PauloHFS/faceauth/internal/contextkeys"
)

func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Verificar Cookie (preferência manual)
		locale := "en"
		cookie, err := r.Cookie("lang")
		if err == nil && (cookie.Value == "en" || cookie.Value == "pt") {
			locale = cookie.Value
		} else {
			// 2. Verificar Header Accept-Language
			accept := strings.ToLower(r.Header.Get("Accept-Language"))
			if strings.HasPrefix(accept, "pt") {
				locale = "pt"
			}
		}

		ctx := context.WithValue(r.Context(), contextkeys.LocaleKey, locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
