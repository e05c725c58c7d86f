package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIdentity is what the core reads out of an authenticated session —
// nothing more. Account creation, Google OAuth exchange, and session
// issuance are ancillary concerns outside this package; this is only the
// reading half of that contract (spec.md §1).
type SessionIdentity struct {
	UserID string
	Email  string
}

// SessionService validates the signed session token issued by the
// out-of-scope OAuth login flow and extracts the identity it carries.
// Adapted from the teacher's JWT access-token service: same HS256
// signing/parsing idiom, narrowed to identity extraction; Issue exists for
// the out-of-scope login flow and tests, and no C1-C8 component calls it.
type SessionService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewSessionService creates a session reader/issuer for the given secret.
func NewSessionService(secret string, expiry time.Duration, issuer string) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Issue signs a session token for a freshly authenticated user. Called only
// by the out-of-scope OAuth callback handler, never by C1-C8.
func (s *SessionService) Issue(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"iss":   s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses a session token and returns the identity it carries.
func (s *SessionService) Validate(tokenString string) (*SessionIdentity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("missing subject claim")
	}
	email, _ := claims["email"].(string)

	return &SessionIdentity{UserID: userID, Email: email}, nil
}
