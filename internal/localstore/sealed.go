package localstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sealed:"

// ErrUnsealable is returned when a sealed value cannot be opened with the
// configured key. Callers treat it like a corrupt value.
var ErrUnsealable = errors.New("sealed value cannot be opened")

// Sealed encrypts values at rest with NaCl secretbox before handing them to
// the wrapped store. Keys stay in clear text.
type Sealed struct {
	inner Store
	key   [32]byte
}

// NewSealed derives a secretbox key from secret and wraps inner
func NewSealed(inner Store, secret string) *Sealed {
	return &Sealed{inner: inner, key: sha256.Sum256([]byte(secret))}
}

func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(raw)
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal(value)
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

// All returns opened values; entries that cannot be opened are skipped
func (s *Sealed) All(ctx context.Context) (map[string]string, error) {
	raw, err := s.inner.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		opened, err := s.open(v)
		if err != nil {
			continue
		}
		out[k] = opened
	}
	return out, nil
}

func (s *Sealed) seal(value string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(box), nil
}

func (s *Sealed) open(raw string) (string, error) {
	if !strings.HasPrefix(raw, sealedPrefix) {
		return "", ErrUnsealable
	}
	box, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(raw, sealedPrefix))
	if err != nil || len(box) < 24 {
		return "", ErrUnsealable
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	opened, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return "", ErrUnsealable
	}
	return string(opened), nil
}
