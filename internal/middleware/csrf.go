package middleware

import (
	"context"
	"net/http"

	"github.com/PauloHFS/faceauth/internal/contextkeys"
	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/justinas/nosurf"
)

// CSRF envolve next com nosurf; falhas respondem 403 em JSON.
func CSRF(next http.Handler, secure bool) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusForbidden, i18n.Forbidden)
	}))
	return h
}

func InjectCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := nosurf.Token(r)
		ctx := context.WithValue(r.Context(), contextkeys.CSRFTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFToken devolve o token injetado por InjectCSRF.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(contextkeys.CSRFTokenKey).(string)
	return token
}
