package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/swiftbasket/api/internal/platform/httpx"
)

var (
	// ErrSessionSecretMissing indicates the issuer was constructed without a signing secret.
	ErrSessionSecretMissing = errors.New("auth: session secret not configured")
	// ErrSessionInvalid wraps parse and validation failures for session tokens.
	ErrSessionInvalid = errors.New("auth: session token invalid")
)

const defaultSessionTTL = 12 * time.Hour

// SessionClaims are the registered claims plus the role and locale carried by
// staff console session tokens.
type SessionClaims struct {
	Role   string `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
	Locale string `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies HS256 session tokens for the staff console.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// SessionOption customises SessionIssuer behaviour.
type SessionOption func(*SessionIssuer)

// WithSessionTTL overrides the token lifetime.
func WithSessionTTL(d time.Duration) SessionOption {
	return func(s *SessionIssuer) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSessionClock injects a custom time source, primarily for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionIssuer constructs a SessionIssuer signing with the shared secret.
func NewSessionIssuer(secret, issuer string, opts ...SessionOption) (*SessionIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSessionSecretMissing
	}

	s := &SessionIssuer{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    defaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Issue mints a signed session token for the given subject.
func (s *SessionIssuer) Issue(subject, email, role, locale string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrSessionSecretMissing
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrSessionInvalid)
	}

	now := s.now()
	claims := SessionClaims{
		Role:   normaliseRole(role),
		Email:  strings.TrimSpace(email),
		Locale: strings.TrimSpace(locale),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (s *SessionIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrSessionSecretMissing
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	claims := &SessionClaims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrSessionInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrSessionInvalid)
	}
	return claims, nil
}

// RequireSession verifies the bearer session token and enforces the allowed roles.
func (s *SessionIssuer) RequireSession(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = normaliseRole(role)
		if role == "" {
			continue
		}
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authorization header missing or invalid", http.StatusUnauthorized))
				return
			}

			claims, err := s.Verify(tokenStr)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "session token verification failed", http.StatusUnauthorized))
				return
			}

			identity := &Identity{
				UID:    claims.Subject,
				Email:  claims.Email,
				Locale: claims.Locale,
			}
			if claims.Role != "" {
				identity.Roles = []string{claims.Role}
			}

			if len(allowed) > 0 && !hasAllowedRole(identity.Roles, allowed) {
				httpx.WriteError(ctx, w, httpx.NewError("insufficient_role", "identity does not have required role", http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}
