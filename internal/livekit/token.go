// Package livekit mints room access tokens and serves them over HTTP.
package livekit

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConfigured is returned when no API key pair is set
var ErrNotConfigured = errors.New("livekit credentials not configured")

// VideoGrant is the room permission set carried by an access token
type VideoGrant struct {
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	Room           string `json:"room,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
}

// Claims is the access token body
type Claims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
}

// TokenIssuer signs HS256 access tokens with an API key pair
type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenIssuer creates an issuer. A zero ttl means ten minutes.
func NewTokenIssuer(apiKey, apiSecret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenIssuer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Configured reports whether the issuer holds a key pair
func (i *TokenIssuer) Configured() bool {
	return i != nil && i.apiKey != "" && len(i.apiSecret) > 0
}

// Issue returns a token letting identity join room with publish and
// subscribe rights
func (i *TokenIssuer) Issue(room, identity string) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}
	if room == "" || identity == "" {
		return "", errors.New("room and identity are required")
	}

	now := i.now()
	allow := true
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name: identity,
		Video: &VideoGrant{
			RoomJoin:       true,
			Room:           room,
			CanPublish:     &allow,
			CanSubscribe:   &allow,
			CanPublishData: &allow,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.apiSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token signed by this issuer
func (i *TokenIssuer) Verify(raw string) (*Claims, error) {
	if !i.Configured() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return i.apiSecret, nil
	}); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
