package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type MemberStore interface {
	IsMember(ctx context.Context, ledgerID, userID string) (bool, error)
}

// RequireMember guards ledger-scoped routes: the authenticated user must be
// linked to a member of the ledger named in the URL.
func RequireMember(memberStore MemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ledgerID := chi.URLParam(r, "ledgerID")
			if ledgerID == "" {
				http.Error(w, "ledger id required", http.StatusBadRequest)
				return
			}
			isMember, err := memberStore.IsMember(r.Context(), ledgerID, userID)
			if err != nil {
				http.Error(w, "unable to verify membership", http.StatusInternalServerError)
				return
			}
			if !isMember {
				http.Error(w, "ledger membership required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
