package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"lingopal/internal/models"
	"lingopal/internal/validation"
)

type childResponse models.ChildProfile

func (c *childResponse) validate() error {
	if c.ID == "" {
		return errors.New("child profile without id")
	}
	return nil
}

type childList []models.ChildProfile

func (l childList) validate() error {
	for i, c := range l {
		if c.ID == "" {
			return fmt.Errorf("child profile %d without id", i)
		}
	}
	return nil
}

// ChildrenAPI manages the signed-in parent's child profiles
type ChildrenAPI struct {
	client *Client
}

// NewChildrenAPI creates a new child-profile client
func NewChildrenAPI(client *Client) *ChildrenAPI {
	return &ChildrenAPI{client: client}
}

// List returns all child profiles, or the samples when the backend is
// unavailable and fallback is on
func (a *ChildrenAPI) List(ctx context.Context) ([]models.ChildProfile, error) {
	var list childList
	if err := a.client.do(ctx, a.client.authed, http.MethodGet, "/children/", nil, &list); err != nil {
		if a.client.degrade("/children/", err) {
			return SampleChildren(), nil
		}
		return nil, fmt.Errorf("failed to load children: %w", err)
	}

	children := []models.ChildProfile(list)
	for i := range children {
		children[i].Normalize()
	}
	return children, nil
}

// Create adds a child profile. Invalid input is rejected before any request.
func (a *ChildrenAPI) Create(ctx context.Context, draft models.ChildDraft) (*models.ChildProfile, error) {
	if err := validation.ValidateProfile(draft); err != nil {
		return nil, err
	}

	var resp childResponse
	if err := a.client.do(ctx, a.client.authed, http.MethodPost, "/children/", draft, &resp); err != nil {
		return nil, mutationFailed("Failed to create child profile", err)
	}
	child := models.ChildProfile(resp)
	child.Normalize()
	return &child, nil
}

// Update patches a child profile. Invalid input is rejected before any request.
func (a *ChildrenAPI) Update(ctx context.Context, id string, patch models.ChildPatch) (*models.ChildProfile, error) {
	if id == "" {
		return nil, validation.ValidationError{Field: "id", Title: "Error", Message: "child id is required"}
	}
	if err := validation.ValidatePatch(patch); err != nil {
		return nil, err
	}

	var resp childResponse
	path := "/children/" + url.PathEscape(id) + "/"
	if err := a.client.do(ctx, a.client.authed, http.MethodPatch, path, patch, &resp); err != nil {
		return nil, mutationFailed("Failed to update child profile", err)
	}
	child := models.ChildProfile(resp)
	child.Normalize()
	return &child, nil
}

// Delete removes a child profile
func (a *ChildrenAPI) Delete(ctx context.Context, id string) error {
	if id == "" {
		return validation.ValidationError{Field: "id", Title: "Error", Message: "child id is required"}
	}
	path := "/children/" + url.PathEscape(id) + "/"
	if err := a.client.do(ctx, a.client.authed, http.MethodDelete, path, nil, nil); err != nil {
		return mutationFailed("Failed to delete child profile", err)
	}
	return nil
}
