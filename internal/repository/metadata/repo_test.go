package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// --- Collections ---

func TestGetCollection_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "facedex:collection:wedding" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"status":         "complete",
			"images_count":   "42",
			"preview_images": `["wedding/a.jpg","wedding/b.jpg"]`,
		}, nil
	}

	col, err := repo.GetCollection(ctx, "wedding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.ID != "wedding" || col.Status != domain.CollectionComplete {
		t.Errorf("unexpected collection: %+v", col)
	}
	if col.ImagesCount != 42 {
		t.Errorf("images count = %d, want 42", col.ImagesCount)
	}
	if len(col.PreviewImages) != 2 || col.PreviewImages[0] != "wedding/a.jpg" {
		t.Errorf("unexpected previews: %v", col.PreviewImages)
	}
}

func TestGetCollection_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetCollection(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCollection_DefaultsToNotStarted(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"images_count": "0"}, nil
	}

	col, err := repo.GetCollection(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Status != domain.CollectionNotStarted {
		t.Errorf("status = %s, want not_started", col.Status)
	}
}

func TestUpdateCollectionStatus_WithCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	count := 7

	err := repo.UpdateCollectionStatus(context.Background(), "wedding", domain.CollectionComplete, &count)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ms.hsetCalls) != 1 {
		t.Fatalf("expected 1 HSET, got %d", len(ms.hsetCalls))
	}
	call := ms.hsetCalls[0]
	if call.key != "facedex:collection:wedding" {
		t.Errorf("unexpected key: %s", call.key)
	}
	if call.fields["status"] != "complete" || call.fields["images_count"] != "7" {
		t.Errorf("unexpected fields: %v", call.fields)
	}
}

func TestUpdateCollectionStatus_WithoutCount(t *testing.T) {
	repo, ms := newTestRepo(t)

	err := repo.UpdateCollectionStatus(context.Background(), "wedding", domain.CollectionError, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ms.hsetCalls[0].fields["images_count"]; ok {
		t.Error("images_count must not be written when nil")
	}
}

func TestSetPreviewImages(t *testing.T) {
	repo, ms := newTestRepo(t)

	err := repo.SetPreviewImages(context.Background(), "wedding", []string{"wedding/a.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ms.hsetCalls[0].fields["preview_images"]; got != `["wedding/a.jpg"]` {
		t.Errorf("preview_images = %s", got)
	}
}

// --- Search requests ---

func TestGetSearchRequest_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "facedex:search:req-1" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"collection_id":    "wedding",
			"status":           "pending",
			"total_images":     "10",
			"processed_images": "0",
		}, nil
	}

	req, err := repo.GetSearchRequest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.CollectionID != "wedding" || req.Status != domain.SearchPending || req.TotalImages != 10 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestGetSearchRequest_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetSearchRequest(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSearchRequest_Partial(t *testing.T) {
	repo, ms := newTestRepo(t)
	processed := 30

	err := repo.UpdateSearchRequest(context.Background(), "req-1", domain.SearchRequestUpdate{
		Status:          domain.SearchProcessing,
		ProcessedImages: &processed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := ms.hsetCalls[0].fields
	if fields["status"] != "processing" || fields["processed_images"] != "30" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if _, ok := fields["total_images"]; ok {
		t.Error("total_images must not be written when nil")
	}
	if _, ok := fields["images_found"]; ok {
		t.Error("images_found must not be written when nil")
	}
}

func TestUpdateSearchRequest_Complete(t *testing.T) {
	repo, ms := newTestRepo(t)
	total, processed := 5, 5

	err := repo.UpdateSearchRequest(context.Background(), "req-1", domain.SearchRequestUpdate{
		Status:          domain.SearchComplete,
		TotalImages:     &total,
		ProcessedImages: &processed,
		ImagesFound:     []string{"wedding/a.jpg", "wedding/b.jpg"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := ms.hsetCalls[0].fields
	if fields["images_found"] != `["wedding/a.jpg","wedding/b.jpg"]` {
		t.Errorf("images_found = %s", fields["images_found"])
	}
}

func TestUpdateSearchRequest_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection lost")
	}

	err := repo.UpdateSearchRequest(context.Background(), "req-1", domain.SearchRequestUpdate{
		Status: domain.SearchProcessing,
	})
	if err == nil {
		t.Fatal("expected error on HSET failure")
	}
}

// --- Ingest jobs ---

func TestIngestJob_CreateAndGetRoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)
	job := domain.IngestJob{
		ID:           "job-1",
		CollectionID: "wedding",
		ArchiveKey:   "uploads/wedding.zip",
		Status:       domain.JobQueued,
	}

	if err := repo.CreateIngestJob(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	stored := ms.hsetCalls[0].fields
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "facedex:job:job-1" {
			t.Errorf("unexpected key: %s", key)
		}
		return stored, nil
	}

	got, err := repo.GetIngestJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != job {
		t.Errorf("got %+v, want %+v", got, job)
	}
}

func TestUpdateIngestJob(t *testing.T) {
	repo, ms := newTestRepo(t)
	total := 100

	err := repo.UpdateIngestJob(context.Background(), "job-1", domain.IngestJobUpdate{
		Status:      domain.JobRunning,
		TotalImages: &total,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := ms.hsetCalls[0].fields
	if fields["status"] != "running" || fields["total_images"] != "100" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
