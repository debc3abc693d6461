// Package localstore is the device's durable key-value storage: string keys
// mapped to string values, the way a browser's local storage behaves.
package localstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	All(ctx context.Context) (map[string]string, error)
}
