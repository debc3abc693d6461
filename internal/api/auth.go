package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"lingopal/internal/models"
)

// Demo account accepted while the backend is unavailable in fallback mode
const (
	DemoUsername = "demo"
	DemoPassword = "demo"
)

// LoginResponse is what the backend returns for login and registration
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// UserPayload is the identity part of a login response
type UserPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (r *LoginResponse) validate() error {
	if r.Token == "" {
		return errors.New("missing token")
	}
	if r.User.ID == "" {
		return errors.New("missing user id")
	}
	return nil
}

// Identity converts the response into the stored identity
func (r *LoginResponse) Identity() models.Identity {
	return models.Identity{
		ID:       r.User.ID,
		Username: r.User.Username,
		Email:    r.User.Email,
		Token:    r.Token,
	}
}

// RegisterRequest creates a parent account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthAPI is the identity client
type AuthAPI struct {
	client *Client
}

// NewAuthAPI creates a new identity client
func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login exchanges a username and password for a credential
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := a.client.do(ctx, a.client.plain, http.MethodPost, "/auth/login/",
		loginRequest{Username: username, Password: password}, &resp)
	if err == nil {
		return &resp, nil
	}

	switch code := statusCode(err); {
	case code == http.StatusUnauthorized || code == http.StatusBadRequest:
		return nil, ErrInvalidCredentials
	case a.client.degrade("/auth/login/", err):
		return a.demoLogin(username, password)
	}
	return nil, fmt.Errorf("%w: login: %w", ErrRequestFailed, err)
}

func (a *AuthAPI) demoLogin(username, password string) (*LoginResponse, error) {
	if username != DemoUsername || password != DemoPassword {
		return nil, ErrInvalidCredentials
	}
	log.Printf("Signing in with the demo account")
	return &LoginResponse{
		Token: "mock_token_" + strconv.FormatInt(a.client.now().UnixMilli(), 10),
		User: UserPayload{
			ID:       "user_1",
			Username: DemoUsername,
			Email:    "demo@example.com",
		},
	}, nil
}

// Register creates an account and returns its first credential
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := a.client.do(ctx, a.client.plain, http.MethodPost, "/auth/register/", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	return &resp, nil
}

// Logout tells the backend to drop credential. The caller has usually
// cleared it locally already, so it is passed explicitly.
func (a *AuthAPI) Logout(ctx context.Context, credential string) error {
	hc := a.client.plain
	if credential != "" {
		hc = a.client.withCredential(credential)
	}
	return a.client.do(ctx, hc, http.MethodPost, "/auth/logout/", nil, nil)
}
