package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TokenResponse is the credential endpoint's body
type TokenResponse struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// FetchError is a credential failure whose message is shown to the user as is
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string { return e.Message }

// TokenFetcher acquires a room credential
type TokenFetcher interface {
	Fetch(ctx context.Context, room, identity string) (string, error)
}

// TokenClient fetches credentials from an HTTP endpoint
type TokenClient struct {
	endpoint string
	client   *http.Client
}

// NewTokenClient creates a client for the endpoint at endpoint
func NewTokenClient(endpoint string, timeout time.Duration) *TokenClient {
	return &TokenClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch requests a credential for identity in room
func (c *TokenClient) Fetch(ctx context.Context, room, identity string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid token endpoint: %w", err)
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("identity", identity)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
		}
	}

	var body TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Error != "" {
		return "", &FetchError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	if body.Token == "" {
		return "", &FetchError{StatusCode: resp.StatusCode, Message: "No token received from server"}
	}
	return body.Token, nil
}
