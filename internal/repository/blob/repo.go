// Package blob persists collection images, uploaded archives, and the
// consolidated embeddings index in the object store.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
	"github.com/kailas-cloud/facedex/internal/objectstore"
)

// indexFilename is the per-collection consolidated index object name.
const indexFilename = "embeddings.json"

// indexContentType is the MIME type of the persisted index.
const indexContentType = "application/json"

// ImageKey builds the storage key of an image within a collection.
func ImageKey(collectionID, filename string) string {
	return collectionID + "/" + filename
}

// IndexKey builds the storage key of a collection's consolidated index.
func IndexKey(collectionID string) string {
	return collectionID + "/" + indexFilename
}

// Repo implements the storage contracts of the ingest and search use cases.
type Repo struct {
	store objectstore.Store
}

// New creates a blob repository.
func New(store objectstore.Store) *Repo {
	return &Repo{store: store}
}

// ImageKey builds the storage key of an image within a collection.
func (r *Repo) ImageKey(collectionID, filename string) string {
	return ImageKey(collectionID, filename)
}

// PutImage stores raw image bytes under {collectionID}/{filename} and
// returns the key.
func (r *Repo) PutImage(
	ctx context.Context, collectionID, filename string, data []byte, contentType string,
) (string, error) {
	key := ImageKey(collectionID, filename)
	if err := r.store.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("%w: put image %s: %v", domain.ErrStorage, key, err)
	}
	return key, nil
}

// LoadIndex reads and decodes a collection's consolidated index. A
// collection with no persisted index yet yields an empty index.
func (r *Repo) LoadIndex(ctx context.Context, collectionID string) (index.Index, error) {
	data, err := r.store.Get(ctx, IndexKey(collectionID))
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return index.Index{}, nil
		}
		return nil, fmt.Errorf("%w: load index for %s: %v", domain.ErrStorage, collectionID, err)
	}

	idx, err := index.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return idx, nil
}

// SaveIndex persists a collection's consolidated index as one write.
func (r *Repo) SaveIndex(ctx context.Context, collectionID string, idx index.Index) error {
	data, err := idx.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if err := r.store.Put(ctx, IndexKey(collectionID), data, indexContentType); err != nil {
		return fmt.Errorf("%w: save index for %s: %v", domain.ErrStorage, collectionID, err)
	}
	return nil
}

// GetArchive fetches a stored archive by key. A missing key is
// domain.ErrNotFound, not a storage failure.
func (r *Repo) GetArchive(ctx context.Context, key string) ([]byte, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, fmt.Errorf("archive %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get archive %s: %v", domain.ErrStorage, key, err)
	}
	return data, nil
}

// DeleteArchive removes a stored source archive; reports whether it existed.
func (r *Repo) DeleteArchive(ctx context.Context, key string) (bool, error) {
	existed, err := r.store.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: delete archive %s: %v", domain.ErrStorage, key, err)
	}
	return existed, nil
}
