// Package store provides the persistence adapter a runner uses to save and
// restore graph definitions, state, and checkpoints.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is a minimal opaque key/value persistence adapter. Values are
// caller-serialized blobs (typically JSON); the store never interprets
// them. Keys follow the runner's convention: "graph:<id>:definition",
// "graph:<id>:state", "graph:<id>:checkpoint:<ts>-<rand>".
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns every key with the given prefix. An empty prefix lists
	// all keys.
	List(ctx context.Context, prefix string) ([]string, error)
}
