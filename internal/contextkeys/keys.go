package contextkeys

type contextKey string

const UserContextKey contextKey = "user"
const LocaleKey contextKey = "locale"
const CSRFTokenKey contextKey = "csrf_token"

// Chaves de sessão (scs), não de contexto.
const (
	SessionUserID        = "user_id"
	SessionPendingUserID = "pending_user_id"
)
