package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/PauloHFS/faceauth/internal/contextkeys"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/internal/policies"
	"github.com/alexedwards/scs/v2"
)

// RequireAuth exige uma sessão completa (senha + rosto, ou admin).
func RequireAuth(sm *scs.SessionManager, queries *db.Queries, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sm.GetInt64(r.Context(), contextkeys.SessionUserID)
		if userID == 0 {
			writeError(w, r, http.StatusUnauthorized, i18n.Unauthorized)
			return
		}

		user, err := queries.GetUserByID(r.Context(), userID)
		if err != nil {
			_ = sm.Destroy(r.Context())
			writeError(w, r, http.StatusUnauthorized, i18n.Unauthorized)
			return
		}

		logging.AddToEvent(r.Context(), slog.Int64("user_id", user.ID), slog.String("role", user.RoleID))

		ctx := context.WithValue(r.Context(), contextkeys.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission consulta o enforcer com o papel do usuário autenticado.
// Deve vir depois de RequireAuth.
func RequirePermission(enforcer *policies.Enforcer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, i18n.Unauthorized)
			return
		}
		if !enforcer.Can(user, r.URL.Path, r.Method) {
			logging.AddToEvent(r.Context(), slog.String("authz", "denied"))
			writeError(w, r, http.StatusForbidden, i18n.Forbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser recupera o usuário do contexto de forma segura
func GetUser(ctx context.Context) (db.User, bool) {
	user, ok := ctx.Value(contextkeys.UserContextKey).(db.User)
	return user, ok
}
