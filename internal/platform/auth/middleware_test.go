package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubVerifier struct {
	verifyFn func(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

func (s *stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if s.verifyFn == nil {
		return nil, errors.New("verifyFn not configured")
	}
	return s.verifyFn(ctx, idToken)
}

func TestRequireFirebaseAuthMissingHeader(t *testing.T) {
	authenticator := NewAuthenticator(&stubVerifier{})

	handler := authenticator.RequireFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked")
	}))

	req := httptest.NewRequest(http.MethodGet, "/carts/self", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireFirebaseAuthStoresIdentity(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(_ context.Context, idToken string) (*firebaseauth.Token, error) {
			if idToken != "valid-token" {
				t.Fatalf("unexpected token %q", idToken)
			}
			return &firebaseauth.Token{
				UID: "customer-1",
				Claims: map[string]interface{}{
					"role":  "customer",
					"email": "buyer@example.com",
				},
			}, nil
		},
	}
	authenticator := NewAuthenticator(verifier)

	var captured *Identity
	handler := authenticator.RequireFirebaseAuth(RoleCustomer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/carts/self", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if captured == nil {
		t.Fatal("identity not stored in context")
	}
	if captured.UID != "customer-1" {
		t.Fatalf("uid = %q", captured.UID)
	}
	if captured.Email != "buyer@example.com" {
		t.Fatalf("email = %q", captured.Email)
	}
	if !captured.HasRole(RoleCustomer) {
		t.Fatalf("roles = %v, want customer", captured.Roles)
	}
}

func TestRequireFirebaseAuthRejectsDisallowedRole(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(context.Context, string) (*firebaseauth.Token, error) {
			return &firebaseauth.Token{
				UID:    "customer-2",
				Claims: map[string]interface{}{"role": "customer"},
			}, nil
		},
	}
	authenticator := NewAuthenticator(verifier)

	handler := authenticator.RequireFirebaseAuth(RoleStaff, RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked")
	}))

	req := httptest.NewRequest(http.MethodPost, "/staff/orders/o1/accept", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireFirebaseAuthFallbackRole(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(context.Context, string) (*firebaseauth.Token, error) {
			return &firebaseauth.Token{UID: "customer-3", Claims: map[string]interface{}{}}, nil
		},
	}
	authenticator := NewAuthenticator(verifier)

	var captured *Identity
	handler := authenticator.RequireFirebaseAuth(RoleCustomer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/carts/self", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == nil || !captured.HasRole(RoleCustomer) {
		t.Fatalf("expected fallback customer role, got %+v", captured)
	}
}
