// Package objectstore provides key-addressed blob storage for uploaded
// images, archives, and the consolidated embeddings index.
package objectstore

import (
	"context"
	"errors"
)

// ErrObjectNotFound signals a missing object key.
var ErrObjectNotFound = errors.New("object not found")

// Store is flat key-addressed blob storage. Collection objects live
// under "{collectionID}/"; the consolidated index lives at
// "{collectionID}/embeddings.json".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object bytes, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes an object; reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}
