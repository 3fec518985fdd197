package handlers

import (
	"net/http"
	"strings"

	"github.com/jonatato/routeit-sub001/internal/auth"
	"github.com/jonatato/routeit-sub001/internal/websocket"
)

// WSChanges upgrades to a websocket and streams change events visible to the
// authenticated user. Browsers cannot set headers on websocket upgrades, so
// the token is also accepted as a query parameter.
func (h *Handler) WSChanges(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
