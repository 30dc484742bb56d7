package ingest

import (
	"context"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
)

// MetadataStore persists collection and ingest job state.
type MetadataStore interface {
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	UpdateCollectionStatus(ctx context.Context, id string, status domain.CollectionStatus, imagesCount *int) error
	SetPreviewImages(ctx context.Context, id string, keys []string) error
	CreateIngestJob(ctx context.Context, job domain.IngestJob) error
	GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error)
	UpdateIngestJob(ctx context.Context, id string, upd domain.IngestJobUpdate) error
}

// BlobStore persists image bytes and the per-collection embeddings index.
type BlobStore interface {
	PutImage(ctx context.Context, collectionID, filename string, data []byte, contentType string) (string, error)
	LoadIndex(ctx context.Context, collectionID string) (index.Index, error)
	SaveIndex(ctx context.Context, collectionID string, idx index.Index) error
	GetArchive(ctx context.Context, key string) ([]byte, error)
	DeleteArchive(ctx context.Context, key string) (bool, error)
}

// Extractor detects faces in an image and returns their embeddings.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]domain.FaceRecord, error)
}
