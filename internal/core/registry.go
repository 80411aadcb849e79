package core

import (
	"regexp"
	"sort"
	"sync"
)

// MaxUserKeyLength bounds user keys accepted by ValidateUserKey.
const MaxUserKeyLength = 128

var userKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_.@:-]+$`)

// ValidateUserKey rejects keys that are empty, too long or contain
// characters outside letters, digits and "_.@:-".
func ValidateUserKey(key string) error {
	if key == "" || len(key) > MaxUserKeyLength || !userKeyRegex.MatchString(key) {
		return ValidationError{
			Field:   "user",
			Value:   key,
			Message: "must be 1-128 letters, digits or _.@:-",
			Err:     ErrInvalidUserKey,
		}
	}
	return nil
}

// Registry holds one Session per user key.
//
// Sessions are created lazily on first access. Concurrent first accesses for
// the same key resolve to a single session; the first insert wins.
type Registry struct {
	defaults Defaults

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry whose sessions start from d.
func NewRegistry(d Defaults) *Registry {
	return &Registry{
		defaults: d.withFallbacks(),
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for userKey, creating it if absent.
func (r *Registry) Session(userKey string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[userKey]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have inserted while we waited for the write lock
	if s, ok := r.sessions[userKey]; ok {
		return s
	}
	s = NewSession(userKey, r.defaults)
	r.sessions[userKey] = s
	return s
}

// Lookup returns the session for userKey without creating one.
func (r *Registry) Lookup(userKey string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userKey]
	return s, ok
}

// Keys returns all registered user keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Defaults returns the settings new sessions start with.
func (r *Registry) Defaults() Defaults {
	return r.defaults
}
