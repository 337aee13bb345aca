package session

import (
	"sync"

	"github.com/studymate/backend/internal/llm"
)

// Registry tracks the live tutoring chat session per identity. Sessions live
// for the duration of a connection; Get lets callers refuse a second
// concurrent connection for the same identity.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*llm.ChatSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*llm.ChatSession)}
}

func (r *Registry) Get(identityID string) (*llm.ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identityID]
	return s, ok
}

func (r *Registry) Set(identityID string, s *llm.ChatSession) {
	r.mu.Lock()
	r.sessions[identityID] = s
	r.mu.Unlock()
}

func (r *Registry) Remove(identityID string) {
	r.mu.Lock()
	delete(r.sessions, identityID)
	r.mu.Unlock()
}

// Slot enforces at most one in-flight generation per identity. The handle
// returned by TryAcquire must be released before the next request is
// accepted; this makes the mutual exclusion a first-class invariant instead
// of a UI side effect.
type Slot struct {
	mu    sync.Mutex
	inUse map[string]bool
}

func NewSlot() *Slot {
	return &Slot{inUse: make(map[string]bool)}
}

// TryAcquire claims the identity's slot. ok=false means a generation is
// already outstanding. The release function is idempotent.
func (s *Slot) TryAcquire(identityID string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse[identityID] {
		return nil, false
	}
	s.inUse[identityID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inUse, identityID)
			s.mu.Unlock()
		})
	}, true
}
