package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/PauloHFS/faceauth/internal/i18n"
)

// writeError escreve a resposta de erro no formato {"status","message"} da API.
func writeError(w http.ResponseWriter, r *http.Request, status int, key i18n.Key) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": i18n.T(r.Context(), key),
	})
}
