// Package metadata persists Collection, SearchRequest, and IngestJob
// records as Redis hashes. The pipeline mutates status fields here; it
// never owns record creation for collections or search requests, which
// arrive from the operator-facing backend.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// store is the consumer interface for metadata hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo implements the metadata contracts of the ingest and search use cases.
type Repo struct {
	store  store
	prefix string
}

// New creates a metadata repository with the given key prefix
// (e.g. "facedex:").
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) collectionKey(id string) string { return r.prefix + "collection:" + id }
func (r *Repo) searchKey(id string) string     { return r.prefix + "search:" + id }
func (r *Repo) jobKey(id string) string        { return r.prefix + "job:" + id }

// GetCollection retrieves a collection by ID.
func (r *Repo) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	m, err := r.store.HGetAll(ctx, r.collectionKey(id))
	if err != nil {
		return domain.Collection{}, fmt.Errorf("hgetall collection %s: %w", id, err)
	}
	if len(m) == 0 {
		return domain.Collection{}, domain.ErrNotFound
	}
	return collectionFromHash(id, m)
}

// UpdateCollectionStatus sets the collection status and, when
// imagesCount is non-nil, the image count.
func (r *Repo) UpdateCollectionStatus(
	ctx context.Context, id string, status domain.CollectionStatus, imagesCount *int,
) error {
	fields := map[string]string{"status": string(status)}
	if imagesCount != nil {
		fields["images_count"] = strconv.Itoa(*imagesCount)
	}
	if err := r.store.HSet(ctx, r.collectionKey(id), fields); err != nil {
		return fmt.Errorf("hset collection %s: %w", id, err)
	}
	return nil
}

// SetPreviewImages replaces the collection's preview key list.
func (r *Repo) SetPreviewImages(ctx context.Context, id string, keys []string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal preview images: %w", err)
	}
	fields := map[string]string{"preview_images": string(data)}
	if err := r.store.HSet(ctx, r.collectionKey(id), fields); err != nil {
		return fmt.Errorf("hset collection %s: %w", id, err)
	}
	return nil
}

// GetSearchRequest retrieves a search request by ID.
func (r *Repo) GetSearchRequest(ctx context.Context, id string) (domain.SearchRequest, error) {
	m, err := r.store.HGetAll(ctx, r.searchKey(id))
	if err != nil {
		return domain.SearchRequest{}, fmt.Errorf("hgetall search request %s: %w", id, err)
	}
	if len(m) == 0 {
		return domain.SearchRequest{}, domain.ErrNotFound
	}
	return searchRequestFromHash(id, m)
}

// UpdateSearchRequest applies a partial update to a search request.
// Only the fields set in upd are written, so out-of-order progress
// updates cannot clear results.
func (r *Repo) UpdateSearchRequest(ctx context.Context, id string, upd domain.SearchRequestUpdate) error {
	fields := map[string]string{"status": string(upd.Status)}
	if upd.TotalImages != nil {
		fields["total_images"] = strconv.Itoa(*upd.TotalImages)
	}
	if upd.ProcessedImages != nil {
		fields["processed_images"] = strconv.Itoa(*upd.ProcessedImages)
	}
	if upd.ImagesFound != nil {
		data, err := json.Marshal(upd.ImagesFound)
		if err != nil {
			return fmt.Errorf("marshal images found: %w", err)
		}
		fields["images_found"] = string(data)
	}
	if err := r.store.HSet(ctx, r.searchKey(id), fields); err != nil {
		return fmt.Errorf("hset search request %s: %w", id, err)
	}
	return nil
}

// CreateIngestJob stores a new ingest job record.
func (r *Repo) CreateIngestJob(ctx context.Context, job domain.IngestJob) error {
	if err := r.store.HSet(ctx, r.jobKey(job.ID), jobToHash(job)); err != nil {
		return fmt.Errorf("hset ingest job %s: %w", job.ID, err)
	}
	return nil
}

// GetIngestJob retrieves an ingest job by ID.
func (r *Repo) GetIngestJob(ctx context.Context, id string) (domain.IngestJob, error) {
	m, err := r.store.HGetAll(ctx, r.jobKey(id))
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("hgetall ingest job %s: %w", id, err)
	}
	if len(m) == 0 {
		return domain.IngestJob{}, domain.ErrNotFound
	}
	return jobFromHash(id, m)
}

// UpdateIngestJob applies a partial update to an ingest job.
func (r *Repo) UpdateIngestJob(ctx context.Context, id string, upd domain.IngestJobUpdate) error {
	fields := map[string]string{"status": string(upd.Status)}
	if upd.TotalImages != nil {
		fields["total_images"] = strconv.Itoa(*upd.TotalImages)
	}
	if upd.ProcessedImages != nil {
		fields["processed_images"] = strconv.Itoa(*upd.ProcessedImages)
	}
	if err := r.store.HSet(ctx, r.jobKey(id), fields); err != nil {
		return fmt.Errorf("hset ingest job %s: %w", id, err)
	}
	return nil
}
