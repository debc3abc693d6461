// Package api is the thin HTTP façade over the LingoPal REST backend.
//
// Reads degrade to fixed sample data when fallback is enabled and the
// backend is unavailable; mutations never degrade.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxErrorBody = 1024

// CredentialSource supplies the bearer credential for authenticated calls
type CredentialSource interface {
	Credential() string
}

// CredentialFunc adapts a function to CredentialSource
type CredentialFunc func() string

func (f CredentialFunc) Credential() string { return f() }

// Options configures a Client
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Fallback bool
	// Transport is the base round tripper; http.DefaultTransport when nil
	Transport http.RoundTripper
}

// Client carries the shared base URL, timeout and credential transport
type Client struct {
	baseURL  string
	base     http.RoundTripper
	timeout  time.Duration
	plain    *http.Client
	authed   *http.Client
	fallback bool
	now      func() time.Time
}

// NewClient builds a client whose authenticated calls carry the credential
// currently held by creds
func NewClient(opts Options, creds CredentialSource) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		base:    base,
		timeout: timeout,
		plain:   &http.Client{Timeout: timeout, Transport: base},
		authed: &http.Client{
			Timeout:   timeout,
			Transport: &bearerTransport{creds: creds, base: base},
		},
		fallback: opts.Fallback,
		now:      time.Now,
	}
}

// FallbackEnabled reports whether reads may degrade to sample data
func (c *Client) FallbackEnabled() bool {
	return c.fallback
}

// bearerTransport attaches the credential through oauth2 when one is held and
// passes the request through untouched otherwise
type bearerTransport struct {
	creds CredentialSource
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.creds == nil || t.creds.Credential() == "" {
		return t.base.RoundTrip(req)
	}
	ot := &oauth2.Transport{Source: credentialTokenSource{t.creds}, Base: t.base}
	return ot.RoundTrip(req)
}

type credentialTokenSource struct {
	creds CredentialSource
}

var errNoCredential = errors.New("no credential held")

func (s credentialTokenSource) Token() (*oauth2.Token, error) {
	credential := s.creds.Credential()
	if credential == "" {
		return nil, errNoCredential
	}
	return &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}, nil
}

// withCredential returns a client bound to one fixed credential
func (c *Client) withCredential(credential string) *http.Client {
	token := &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}
	return &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: c.base},
	}
}

type validator interface {
	validate() error
}

// do sends one JSON request. out may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return &DecodeError{Path: path, Err: err}
		}
	}
	return nil
}

// degrade reports whether a failed read should be served from samples
func (c *Client) degrade(path string, err error) bool {
	if !c.fallback || !IsUnavailable(err) {
		return false
	}
	log.Printf("Backend unavailable for %s, serving sample data: %v", path, err)
	return true
}
