package search

import (
	"context"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
)

// MetadataStore reads and updates search request and collection state.
type MetadataStore interface {
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	GetSearchRequest(ctx context.Context, id string) (domain.SearchRequest, error)
	UpdateSearchRequest(ctx context.Context, id string, upd domain.SearchRequestUpdate) error
}

// IndexReader loads the consolidated embeddings index for a collection.
type IndexReader interface {
	LoadIndex(ctx context.Context, collectionID string) (index.Index, error)
	ImageKey(collectionID, filename string) string
}

// Extractor detects faces in an image and returns their embeddings.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]domain.FaceRecord, error)
}
