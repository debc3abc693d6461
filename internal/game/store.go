// Package game holds the device's ephemeral play state. Nothing here is
// persisted.
package game

import (
	"sync"

	"github.com/google/uuid"

	"lingopal/internal/models"
)

// Store guards the single play-state record; all changes go through its
// mutators
type Store struct {
	mu        sync.RWMutex
	state     models.PlayState
	selection uint64
	newID     func() string
}

// NewStore creates a store in the initial state
func NewStore() *Store {
	return &Store{
		state: models.InitialPlayState(),
		newID: uuid.NewString,
	}
}

// State returns a copy of the current play state
func (s *Store) State() models.PlayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.PlayState {
	state := s.state
	if state.SelectedChild != nil {
		child := *state.SelectedChild
		state.SelectedChild = &child
	}
	return state
}

// SelectedChild returns a copy of the selected profile, or nil
func (s *Store) SelectedChild() *models.ChildProfile {
	return s.State().SelectedChild
}

// SelectionVersion increments on every SelectChild
func (s *Store) SelectionVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// AddScore adds delta, which may be negative, to the score
func (s *Store) AddScore(delta int) models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Score += delta
	return s.snapshotLocked()
}

// LoseLife removes a life; lives never go below zero
func (s *Store) LoseLife() models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Lives > 0 {
		s.state.Lives--
	}
	return s.snapshotLocked()
}

// AdvanceLevel moves to the next level with full lives, keeping the score
func (s *Store) AdvanceLevel() models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentLevel++
	s.state.Lives = models.MaxLives
	return s.snapshotLocked()
}

// BeginSession starts a play session under a fresh token. The child id is
// not recorded; the selection already names the child.
func (s *Store) BeginSession(childID string) models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionID = s.newID()
	s.state.IsPlaying = true
	s.state.Score = 0
	s.state.Lives = models.MaxLives
	return s.snapshotLocked()
}

// EndSession clears the session token and stops play; counters are kept
func (s *Store) EndSession() models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionID = ""
	s.state.IsPlaying = false
	return s.snapshotLocked()
}

// SelectChild makes profile the active child and resets the counters,
// including those of a session in progress
func (s *Store) SelectChild(profile models.ChildProfile) models.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := profile
	s.state.SelectedChild = &child
	s.state.CurrentLevel = profile.Level
	if s.state.CurrentLevel < 1 {
		s.state.CurrentLevel = 1
	}
	s.state.Score = 0
	s.state.Lives = models.MaxLives
	s.selection++
	return s.snapshotLocked()
}
