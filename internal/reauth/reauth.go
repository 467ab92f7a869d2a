// Package reauth issues and consumes the short-lived, single-use credential
// an owner must present for privileged billing actions. A credential is born
// from a PIN challenge and dies on first use or on TTL expiry, whichever
// comes first.
package reauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

// Store holds outstanding re-auth credentials in process memory. Single
// authoritative server assumed; a shared cache would be needed to scale out.
type Store struct {
	credentials *cache.Cache
	pinHash     string
	ttl         time.Duration
}

func NewStore(pinHash string, ttl time.Duration) *Store {
	return &Store{
		credentials: cache.New(ttl, ttl),
		pinHash:     pinHash,
		ttl:         ttl,
	}
}

// Challenge verifies the owner PIN and, on success, issues a fresh
// single-use credential bound to the requesting user.
func (s *Store) Challenge(userID int64, pin string) (string, bool) {
	if s.pinHash == "" {
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.pinHash), []byte(pin)); err != nil {
		return "", false
	}

	token := uuid.NewString()
	s.credentials.Set(token, userID, s.ttl)
	return token, true
}

// Consume redeems a credential for the given user. The credential is removed
// before the result is returned, so it can never be used twice.
func (s *Store) Consume(token string, userID int64) bool {
	if token == "" {
		return false
	}
	v, found := s.credentials.Get(token)
	if !found {
		return false
	}
	s.credentials.Delete(token)
	issuedTo, ok := v.(int64)
	return ok && issuedTo == userID
}
