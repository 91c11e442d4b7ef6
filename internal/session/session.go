// Package session gives every visitor a guest session without accounts:
// an HS256-signed cookie carrying a session id, issued on first contact
// and re-used afterwards. The session id keys all cart and order state.
package session

import (
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	cookieName  = "session"
	contextKey  = "session_id"
	sessionTTL  = 30 * 24 * time.Hour
	secretBytes = 32
)

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
}

// NewManager builds a session manager. With an empty secret a random one
// is generated, which invalidates existing cookies on restart; carts
// rehydrate under a new session id in that case.
func NewManager(secret []byte) (*Manager, error) {
	if len(secret) == 0 {
		secret = make([]byte, secretBytes)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	return &Manager{secret: secret}, nil
}

// Middleware guarantees the request carries a valid session id, minting a
// fresh cookie when the incoming one is absent, expired, or forged.
func (m *Manager) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cookie, err := c.Cookie(cookieName); err == nil {
			if sid, err := m.parse(cookie.Value); err == nil {
				c.Set(contextKey, sid)
				return next(c)
			}
		}

		sid := uuid.NewString()
		token, err := m.sign(sid)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot start session")
		}
		c.SetCookie(&http.Cookie{
			Name:     cookieName,
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(sessionTTL),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(contextKey, sid)
		return next(c)
	}
}

// FromContext returns the session id set by Middleware, empty if absent.
func FromContext(c echo.Context) string {
	if sid, ok := c.Get(contextKey).(string); ok {
		return sid
	}
	return ""
}

func (m *Manager) sign(sid string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(raw string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.SessionID, nil
}
