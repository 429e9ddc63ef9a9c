// Package auth logs owners in with their name and PIN and tracks the
// resulting sessions.
package auth

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cadastre/internal/cadastre"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = errors.New("invalid owner name or PIN")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrSessionExpired     = errors.New("session expired")
	ErrForbidden          = errors.New("staff only")
)

type Session struct {
	Token     string    `json:"token"`
	Owner     string    `json:"owner"`
	Staff     bool      `json:"staff"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Options struct {
	TTL       time.Duration
	HashCost  int
	PerMinute float64
	Burst     int
	Now       func() time.Time
}

type credential struct {
	hash  []byte
	staff bool
}

type Authenticator struct {
	log  *slog.Logger
	opts Options

	mu       sync.Mutex
	creds    map[string]credential
	sessions map[string]Session
	limiters map[string]*rate.Limiter
}

func NewAuthenticator(opts Options, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.HashCost < bcrypt.MinCost || opts.HashCost > bcrypt.MaxCost {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.PerMinute <= 0 {
		opts.PerMinute = 6
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Authenticator{
		log:      logger,
		opts:     opts,
		creds:    map[string]credential{},
		sessions: map[string]Session{},
		limiters: map[string]*rate.Limiter{},
	}
}

// SetOwners replaces the credential table. Owners without a PIN cannot log
// in. Unchanged PINs keep their hash; sessions of owners that disappeared
// or lost their PIN are dropped.
func (a *Authenticator) SetOwners(owners []cadastre.Owner) error {
	a.mu.Lock()
	previous := a.creds
	a.mu.Unlock()

	next := make(map[string]credential, len(owners))
	for _, o := range owners {
		name := strings.TrimSpace(o.Name)
		pin := strings.TrimSpace(o.PIN)
		if name == "" || pin == "" {
			continue
		}
		if _, dup := next[name]; dup {
			continue
		}
		if old, ok := previous[name]; ok && bcrypt.CompareHashAndPassword(old.hash, []byte(pin)) == nil {
			next[name] = credential{hash: old.hash, staff: o.Staff}
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), a.opts.HashCost)
		if err != nil {
			return err
		}
		next[name] = credential{hash: hash, staff: o.Staff}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.creds = next
	for token, s := range a.sessions {
		cred, ok := next[s.Owner]
		if !ok {
			delete(a.sessions, token)
			continue
		}
		s.Staff = cred.staff
		a.sessions[token] = s
	}
	return nil
}

func (a *Authenticator) Login(name, pin string) (Session, error) {
	name = strings.TrimSpace(name)
	if !a.limiter(name).AllowN(a.opts.Now(), 1) {
		return Session{}, ErrRateLimited
	}

	a.mu.Lock()
	cred, ok := a.creds[name]
	a.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(cred.hash, []byte(strings.TrimSpace(pin))) != nil {
		return Session{}, ErrInvalidCredentials
	}

	s := Session{
		Token:     uuid.NewString(),
		Owner:     name,
		Staff:     cred.staff,
		ExpiresAt: a.opts.Now().Add(a.opts.TTL),
	}
	a.mu.Lock()
	a.sessions[s.Token] = s
	a.mu.Unlock()
	a.log.Info("owner logged in", "owner", name, "staff", s.Staff)
	return s, nil
}

func (a *Authenticator) Verify(token string) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[token]
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if !a.opts.Now().Before(s.ExpiresAt) {
		delete(a.sessions, token)
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
func (a *Authenticator) Sweep() int {
	now := a.opts.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for token, s := range a.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(a.sessions, token)
			n++
		}
	}
	return n
}

func RequireStaff(s Session) error {
	if !s.Staff {
		return ErrForbidden
	}
	return nil
}

func (a *Authenticator) limiter(name string) *rate.Limiter {
	key := strings.ToLower(name)
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(a.opts.PerMinute/60), a.opts.Burst)
		a.limiters[key] = l
	}
	return l
}
