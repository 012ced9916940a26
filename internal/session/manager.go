// Package session carries the cookie-backed conversational identity: an
// opaque session id plus the persona key and display name the user picked.
// The state travels in a signed cookie, mirroring a classic web-session
// layer; the server keeps nothing about it between requests.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arashpm/atlas-chat/internal/model/persona"
)

// CookieName is the cookie holding the signed session state.
const CookieName = "atlas_session"

// Session is the per-client conversational context.
type Session struct {
	ID         string `json:"sid"`
	PersonaKey string `json:"persona,omitempty"`
	UserName   string `json:"name,omitempty"`
}

// Manager issues and recalls sessions via a signed cookie.
type Manager struct {
	secret []byte
}

// NewManager creates a Manager signing cookies with the given secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// GetOrCreate returns the session carried by the request cookie, minting a
// fresh one (and setting the cookie) when the cookie is absent, expired or
// fails signature verification.
func (m *Manager) GetOrCreate(w http.ResponseWriter, r *http.Request) Session {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if sess, ok := m.decode(cookie.Value); ok {
			return sess
		}
	}

	sess := Session{
		ID:         uuid.NewString(),
		PersonaKey: persona.DefaultKey,
	}
	m.Write(w, sess)
	return sess
}

// Write re-issues the session cookie, e.g. after a persona or name change.
func (m *Manager) Write(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.encode(sess),
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) encode(sess Session) string {
	payload, err := json.Marshal(sess)
	if err != nil {
		// Session only holds strings; this cannot fail in practice.
		return ""
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + m.sign(body)
}

func (m *Manager) decode(value string) (Session, bool) {
	body, sig, ok := strings.Cut(value, ".")
	if !ok {
		return Session{}, false
	}
	if !hmac.Equal([]byte(m.sign(body)), []byte(sig)) {
		return Session{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil || sess.ID == "" {
		return Session{}, false
	}
	if sess.PersonaKey == "" {
		sess.PersonaKey = persona.DefaultKey
	}
	return sess, true
}

func (m *Manager) sign(body string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
