// Package session holds the device's authenticated identity and keeps it in
// sync with durable local storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"lingopal/internal/api"
	"lingopal/internal/localstore"
	"lingopal/internal/models"
)

// Local storage keys; they are always written and cleared together
const (
	TokenKey = "auth_token"
	UserKey  = "user_data"
)

// Authenticator is the identity client the store delegates to
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.LoginResponse, error)
	Logout(ctx context.Context, credential string) error
}

// snapshot is the persisted form of the identity, without the credential
type snapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Store is the single source of truth for who is signed in on this device
type Store struct {
	local localstore.Store
	auth  Authenticator

	mu       sync.RWMutex
	identity *models.Identity
	restored bool
}

// NewStore creates an unrestored session store
func NewStore(local localstore.Store, auth Authenticator) *Store {
	return &Store{local: local, auth: auth}
}

// Restore loads the identity from local storage. Missing or corrupt data
// leaves the store unauthenticated and purges both keys; only a failing
// storage backend is reported.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx)
}

// EnsureRestored runs Restore once; later calls return immediately
func (s *Store) EnsureRestored(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return nil
	}
	return s.restoreLocked(ctx)
}

func (s *Store) restoreLocked(ctx context.Context) error {
	s.identity = nil

	token, tokenErr := s.local.Get(ctx, TokenKey)
	user, userErr := s.local.Get(ctx, UserKey)
	for _, err := range []error{tokenErr, userErr} {
		if err != nil && !isAbsent(err) {
			return fmt.Errorf("failed to read session: %w", err)
		}
	}

	if tokenErr == nil && userErr == nil && token != "" {
		var snap snapshot
		if err := json.Unmarshal([]byte(user), &snap); err == nil && snap.ID != "" {
			s.identity = &models.Identity{
				ID:       snap.ID,
				Username: snap.Username,
				Email:    snap.Email,
				Token:    token,
			}
			s.restored = true
			return nil
		}
		log.Printf("Discarding unreadable session snapshot")
	}

	if err := s.local.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to purge session: %w", err)
	}
	s.restored = true
	return nil
}

func isAbsent(err error) bool {
	return errors.Is(err, localstore.ErrNotFound) || errors.Is(err, localstore.ErrUnsealable)
}

// Login authenticates through the identity client and persists the result.
// On failure nothing is committed and the client's error is returned as is.
func (s *Store) Login(ctx context.Context, username, password string) error {
	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return s.commit(ctx, resp)
}

// Register creates an account and signs it in
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) error {
	resp, err := s.auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.commit(ctx, resp)
}

func (s *Store) commit(ctx context.Context, resp *api.LoginResponse) error {
	identity := resp.Identity()
	payload, err := json.Marshal(snapshot{ID: identity.ID, Username: identity.Username, Email: identity.Email})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.local.Set(ctx, TokenKey, identity.Token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := s.local.Set(ctx, UserKey, string(payload)); err != nil {
		if delErr := s.local.Delete(ctx, TokenKey, UserKey); delErr != nil {
			log.Printf("Error rolling back session: %v", delErr)
		}
		// both keys are gone, so any earlier identity is too
		s.identity = nil
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.identity = &identity
	s.restored = true
	return nil
}

// Logout clears the identity and both keys, then tells the backend. The
// backend call is best effort. Calling Logout twice is harmless.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	var credential string
	if s.identity != nil {
		credential = s.identity.Token
	}
	s.identity = nil
	err := s.local.Delete(ctx, TokenKey, UserKey)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to purge session: %w", err)
	}

	if credential != "" && s.auth != nil {
		if err := s.auth.Logout(ctx, credential); err != nil {
			log.Printf("Backend logout failed, ignoring: %v", err)
		}
	}
	return nil
}

// Authenticated reports whether an identity is held
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Identity returns a copy of the identity, or nil
func (s *Store) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Credential returns the bearer credential, or "" when signed out
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Token
}

// Restored reports whether restoration has completed
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}
