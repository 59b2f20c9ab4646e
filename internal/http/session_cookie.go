package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidSessionToken = errors.New("invalid session token")

// SessionCookies issues and reads the browser session cookie. The cookie carries a
// signed token naming the session id; it has no Max-Age so it ends with the browser session.
type SessionCookies struct {
	name   string
	secret []byte
	secure bool
}

func NewSessionCookies(name, secret string, secure bool) *SessionCookies {
	if name == "" {
		name = "login_session"
	}
	return &SessionCookies{name: name, secret: []byte(secret), secure: secure}
}

// NewID returns a fresh browser session id.
func (s *SessionCookies) NewID() string {
	return uuid.NewString()
}

func (s *SessionCookies) sign(sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  sessionID,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionCookies) parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errInvalidSessionToken
	}
	return claims.Subject, nil
}

// Read returns the session id carried by the request, if its token verifies.
func (s *SessionCookies) Read(c *gin.Context) (string, bool) {
	token, err := c.Cookie(s.name)
	if err != nil || token == "" {
		return "", false
	}
	id, err := s.parse(token)
	if err != nil {
		return "", false
	}
	return id, true
}

// Set writes the cookie for sessionID.
func (s *SessionCookies) Set(c *gin.Context, sessionID string) error {
	token, err := s.sign(sessionID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, token, 0, "/", "", s.secure, true)
	return nil
}

// Clear expires the cookie.
func (s *SessionCookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
}
