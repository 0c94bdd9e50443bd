// Package auth decides whether a request may act as an event's admin. Three
// proofs are accepted: the raw admin secret in X-Admin-Secret, or a session
// token (issued in exchange for the secret) as a bearer token or cookie.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

const (
	// SecretHeader carries the raw admin secret.
	SecretHeader = "X-Admin-Secret"
	// CookieName carries an admin session token.
	CookieName = "eventdrop_admin"
)

// Claims binds a session token to one event.
type Claims struct {
	jwt.RegisteredClaims
	EventID string `json:"evt"`
}

// Authenticator issues and checks admin session tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns an Authenticator signing tokens with secret.
func New(secret []byte, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: secret, ttl: ttl, now: time.Now}
}

// Login exchanges an admin secret for a session token.
func (a *Authenticator) Login(e *model.Event, secret string) (string, time.Time, error) {
	if !secretMatches(e, secret) {
		return "", time.Time{}, model.ErrForbidden
	}
	return a.IssueToken(e.ID)
}

// IssueToken signs an HS256 token for eventID.
func (a *Authenticator) IssueToken(eventID string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "event-admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		EventID: eventID,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, exp, nil
}

// VerifyToken checks that tokenString is valid and scoped to eventID.
func (a *Authenticator) VerifyToken(tokenString, eventID string) error {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrForbidden, err)
	}
	if !token.Valid || claims.EventID != eventID {
		return fmt.Errorf("%w: token not valid for event", model.ErrForbidden)
	}
	return nil
}

// Authorize reports model.ErrForbidden unless r proves admin access to e.
func (a *Authenticator) Authorize(r *http.Request, e *model.Event) error {
	if secret := r.Header.Get(SecretHeader); secret != "" {
		if secretMatches(e, secret) {
			return nil
		}
		return fmt.Errorf("%w: wrong admin secret", model.ErrForbidden)
	}
	if token, ok := bearerToken(r); ok {
		return a.VerifyToken(token, e.ID)
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return a.VerifyToken(c.Value, e.ID)
	}
	return fmt.Errorf("%w: no admin credentials", model.ErrForbidden)
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func secretMatches(e *model.Event, secret string) bool {
	if e.AdminSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(e.AdminSecret), []byte(secret)) == 1
}
