// Package session maps a per-browser cookie to an authenticated email.
//
// Sessions live only in process memory, in a bounded LRU whose entries expire
// after the configured TTL. The cookie carries a signed token naming the
// session id; a cookie is honoured only while its session is still stored,
// so Terminate revokes it immediately.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/mblog/internal/pkg/jwt"
)

const (
	DefaultCookieName = "mblog_session"
	defaultTTL        = 24 * time.Hour
	defaultMaxEntries = 10000
)

var ErrInvalidCookie = errors.New("invalid session cookie")

type Config struct {
	Secret     []byte
	TTL        time.Duration
	MaxEntries int
	CookieName string
	Secure     bool
}

type Session struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Manager struct {
	cfg   Config
	store *expirable.LRU[string, Session]
	now   func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Manager{
		cfg:   cfg,
		store: expirable.NewLRU[string, Session](cfg.MaxEntries, nil, cfg.TTL),
		now:   time.Now,
	}
}

func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Len reports how many live sessions are held.
func (m *Manager) Len() int {
	return m.store.Len()
}

// Current returns the email bound to the request's session cookie.
func (m *Manager) Current(c *gin.Context) (string, bool) {
	sess, ok := m.lookup(c)
	if !ok {
		return "", false
	}
	return sess.Email, true
}

// Establish starts a fresh session for email and sets the cookie. Any session
// the request already carried is dropped first.
func (m *Manager) Establish(c *gin.Context, email string) error {
	if claims, err := m.claims(c); err == nil {
		m.store.Remove(claims.SessionID)
	}
	now := m.now()
	sess := Session{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	token, err := jwt.GenerateToken(sess.ID, email, m.cfg.Secret, m.cfg.TTL)
	if err != nil {
		return err
	}
	m.store.Add(sess.ID, sess)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.cfg.TTL.Seconds()),
	})
	return nil
}

// Terminate removes the request's session and clears the cookie. The cookie
// is cleared even when an error is returned.
func (m *Manager) Terminate(c *gin.Context) error {
	defer m.clearCookie(c)
	cookie, err := c.Request.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims, err := jwt.ParseToken(cookie.Value, m.cfg.Secret)
	if err != nil {
		return errors.Join(ErrInvalidCookie, err)
	}
	m.store.Remove(claims.SessionID)
	return nil
}

func (m *Manager) lookup(c *gin.Context) (Session, bool) {
	claims, err := m.claims(c)
	if err != nil {
		return Session{}, false
	}
	sess, ok := m.store.Get(claims.SessionID)
	if !ok || sess.Email != claims.Email {
		return Session{}, false
	}
	if m.now().After(sess.ExpiresAt) {
		m.store.Remove(sess.ID)
		return Session{}, false
	}
	return sess, true
}

func (m *Manager) claims(c *gin.Context) (*jwt.Claims, error) {
	cookie, err := c.Request.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, http.ErrNoCookie
	}
	return jwt.ParseToken(cookie.Value, m.cfg.Secret)
}

func (m *Manager) clearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
