package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/logging"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logging.Get().ErrorContext(r.Context(), "panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
					slog.String("path", r.URL.Path),
				)

				writeError(w, r, http.StatusInternalServerError, i18n.InternalError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
