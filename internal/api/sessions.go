package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"lingopal/internal/models"
)

type sessionResponse models.SessionRecord

func (s *sessionResponse) validate() error {
	return validateSession(models.SessionRecord(*s))
}

type sessionList []models.SessionRecord

func (l sessionList) validate() error {
	for i, s := range l {
		if err := validateSession(s); err != nil {
			return fmt.Errorf("session %d: %w", i, err)
		}
	}
	return nil
}

func validateSession(s models.SessionRecord) error {
	if s.ID == "" {
		return errors.New("session without id")
	}
	for i, a := range s.Activities {
		if !a.Type.Valid() {
			return fmt.Errorf("activity %d: unknown type %q", i, a.Type)
		}
		if a.Attempts < 1 {
			return fmt.Errorf("activity %d: attempts must be at least 1 (got %d)", i, a.Attempts)
		}
	}
	return nil
}

// SessionsAPI reads and records play sessions
type SessionsAPI struct {
	client *Client
}

// NewSessionsAPI creates a new session-record client
func NewSessionsAPI(client *Client) *SessionsAPI {
	return &SessionsAPI{client: client}
}

// ListByChild returns a child's sessions, or the samples when the backend is
// unavailable and fallback is on
func (a *SessionsAPI) ListByChild(ctx context.Context, childID string) ([]models.SessionRecord, error) {
	path := "/sessions/?child_id=" + url.QueryEscape(childID)

	var list sessionList
	if err := a.client.do(ctx, a.client.authed, http.MethodGet, path, nil, &list); err != nil {
		if a.client.degrade(path, err) {
			return SampleSessions(childID), nil
		}
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return []models.SessionRecord(list), nil
}

// Create records a new session
func (a *SessionsAPI) Create(ctx context.Context, draft models.SessionDraft) (*models.SessionRecord, error) {
	var resp sessionResponse
	if err := a.client.do(ctx, a.client.authed, http.MethodPost, "/sessions/", draft, &resp); err != nil {
		return nil, mutationFailed("Failed to create session", err)
	}
	record := models.SessionRecord(resp)
	return &record, nil
}

// Update patches a recorded session
func (a *SessionsAPI) Update(ctx context.Context, id string, patch models.SessionPatch) (*models.SessionRecord, error) {
	var resp sessionResponse
	path := "/sessions/" + url.PathEscape(id) + "/"
	if err := a.client.do(ctx, a.client.authed, http.MethodPatch, path, patch, &resp); err != nil {
		return nil, mutationFailed("Failed to update session", err)
	}
	record := models.SessionRecord(resp)
	return &record, nil
}
