package auth

import "sync"

// Credential is the signed-in identity and its bearer token. No expiry is
// tracked; a token's validity is discovered by using it.
type Credential struct {
	Subject     string
	BearerToken string
}

// Store holds the current credential. Only the Executor (on refresh) and the
// sign-in/sign-out flows write to it; everything else reads.
type Store interface {
	// Current returns the credential and true, or false when signed out.
	Current() (Credential, bool)
	// Replace installs cred as the current credential.
	Replace(cred Credential)
	// Clear removes the credential, returning to the signed-out state.
	Clear()
}

// MemoryStore is a process-local Store. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	cred Credential
	set  bool
}

// NewMemoryStore returns an empty (signed-out) store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Current implements Store.
func (s *MemoryStore) Current() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred, s.set
}

// Replace implements Store.
func (s *MemoryStore) Replace(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	s.set = true
}

// Clear implements Store.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = Credential{}
	s.set = false
}
