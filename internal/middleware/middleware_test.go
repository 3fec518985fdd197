package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMissingHeader(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached without credentials")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestAuthSetsUserID(t *testing.T) {
	var gotUserID string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotUserID != "u1" {
		t.Fatalf("user id = %q, want u1", gotUserID)
	}
}

type memberStoreFunc func(ctx context.Context, ledgerID, userID string) (bool, error)

func (f memberStoreFunc) IsMember(ctx context.Context, ledgerID, userID string) (bool, error) {
	return f(ctx, ledgerID, userID)
}

func ledgerRequest(userID, ledgerID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ledgers/"+ledgerID, nil)
	ctx := ContextWithUserID(req.Context(), userID)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("ledgerID", ledgerID)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestRequireMemberAllows(t *testing.T) {
	var gotLedger, gotUser string
	store := memberStoreFunc(func(ctx context.Context, ledgerID, userID string) (bool, error) {
		gotLedger, gotUser = ledgerID, userID
		return true, nil
	})
	reached := false
	handler := RequireMember(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, ledgerRequest("u1", "l1"))

	if !reached {
		t.Fatal("next handler not reached")
	}
	if gotLedger != "l1" || gotUser != "u1" {
		t.Fatalf("membership checked with (%q, %q)", gotLedger, gotUser)
	}
}

func TestRequireMemberForbidsNonMember(t *testing.T) {
	store := memberStoreFunc(func(ctx context.Context, ledgerID, userID string) (bool, error) {
		return false, nil
	})
	handler := RequireMember(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached for a non-member")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, ledgerRequest("u1", "l1"))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestRequireMemberStoreError(t *testing.T) {
	store := memberStoreFunc(func(ctx context.Context, ledgerID, userID string) (bool, error) {
		return false, errors.New("connection reset")
	})
	handler := RequireMember(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached despite store error")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, ledgerRequest("u1", "l1"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestRequireMemberUnauthenticated(t *testing.T) {
	store := memberStoreFunc(func(ctx context.Context, ledgerID, userID string) (bool, error) {
		return true, nil
	})
	handler := RequireMember(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached without a user")
	}))

	req := httptest.NewRequest(http.MethodGet, "/ledgers/l1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
