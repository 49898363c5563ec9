package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 12 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PasswordGate guards the spectator surface with a single shared password.
// An empty hash disables the gate: every request is let through.
type PasswordGate struct {
	mu sync.Mutex

	hash       []byte
	sessionTTL time.Duration
	sessions   map[string]time.Time // token -> expiry
	now        func() time.Time
}

func NewPasswordGate(hash string, sessionTTL time.Duration) (*PasswordGate, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &PasswordGate{
		hash:       []byte(hash),
		sessionTTL: sessionTTL,
		sessions:   make(map[string]time.Time),
		now:        time.Now,
	}, nil
}

// HashPassword produces the value expected in SPECTATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (g *PasswordGate) Enabled() bool {
	return len(g.hash) > 0
}

func (g *PasswordGate) Login(password string) (string, error) {
	if !g.Enabled() {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	token := mustToken()
	g.sessions[token] = g.now().Add(g.sessionTTL)
	return token, nil
}

// Resolve reports whether the token is live, sliding its expiry forward.
func (g *PasswordGate) Resolve(token string) bool {
	if !g.Enabled() {
		return true
	}
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	expires, ok := g.sessions[token]
	if !ok {
		return false
	}
	now := g.now()
	if !now.Before(expires) {
		delete(g.sessions, token)
		return false
	}
	g.sessions[token] = now.Add(g.sessionTTL)
	return true
}

func (g *PasswordGate) Logout(token string) {
	if token == "" {
		return
	}
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
