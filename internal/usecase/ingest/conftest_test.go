package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
)

// mockMeta implements MetadataStore with in-memory state plus optional
// function overrides per call.
type mockMeta struct {
	mu sync.Mutex

	collections map[string]domain.Collection
	jobs        map[string]domain.IngestJob

	getCollectionFn func(ctx context.Context, id string) (domain.Collection, error)
	updateStatusFn  func(ctx context.Context, id string, status domain.CollectionStatus, imagesCount *int) error
	setPreviewsFn   func(ctx context.Context, id string, keys []string) error

	statusUpdates []statusUpdate
}

type statusUpdate struct {
	status domain.CollectionStatus
	count  *int
}

func newMockMeta() *mockMeta {
	return &mockMeta{
		collections: make(map[string]domain.Collection),
		jobs:        make(map[string]domain.IngestJob),
	}
}

func (m *mockMeta) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	if m.getCollectionFn != nil {
		return m.getCollectionFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[id]
	if !ok {
		return domain.Collection{}, domain.ErrNotFound
	}
	return col, nil
}

func (m *mockMeta) UpdateCollectionStatus(ctx context.Context, id string, status domain.CollectionStatus, imagesCount *int) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, imagesCount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collections[id]
	col.ID = id
	col.Status = status
	if imagesCount != nil {
		col.ImagesCount = *imagesCount
	}
	m.collections[id] = col
	m.statusUpdates = append(m.statusUpdates, statusUpdate{status: status, count: imagesCount})
	return nil
}

func (m *mockMeta) SetPreviewImages(ctx context.Context, id string, keys []string) error {
	if m.setPreviewsFn != nil {
		return m.setPreviewsFn(ctx, id, keys)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collections[id]
	col.ID = id
	col.PreviewImages = keys
	m.collections[id] = col
	return nil
}

func (m *mockMeta) CreateIngestJob(_ context.Context, job domain.IngestJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockMeta) GetIngestJob(_ context.Context, id string) (domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.IngestJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockMeta) UpdateIngestJob(_ context.Context, id string, upd domain.IngestJobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.ID = id
	if upd.Status != "" {
		job.Status = upd.Status
	}
	if upd.TotalImages != nil {
		job.TotalImages = *upd.TotalImages
	}
	if upd.ProcessedImages != nil {
		job.ProcessedImages = *upd.ProcessedImages
	}
	m.jobs[id] = job
	return nil
}

func (m *mockMeta) statusLog() []statusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusUpdate(nil), m.statusUpdates...)
}

func (m *mockMeta) collection(id string) domain.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collections[id]
}

// mockBlobs implements BlobStore with in-memory state.
type mockBlobs struct {
	mu sync.Mutex

	images   map[string][]byte
	indexes  map[string]index.Index
	archives map[string][]byte

	putImageFn  func(ctx context.Context, collectionID, filename string) (string, error)
	loadIndexFn func(ctx context.Context, collectionID string) (index.Index, error)
	saveIndexFn func(ctx context.Context, collectionID string, idx index.Index) error
}

func newMockBlobs() *mockBlobs {
	return &mockBlobs{
		images:   make(map[string][]byte),
		indexes:  make(map[string]index.Index),
		archives: make(map[string][]byte),
	}
}

func (m *mockBlobs) PutImage(ctx context.Context, collectionID, filename string, data []byte, _ string) (string, error) {
	if m.putImageFn != nil {
		return m.putImageFn(ctx, collectionID, filename)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := collectionID + "/" + filename
	m.images[key] = data
	return key, nil
}

func (m *mockBlobs) LoadIndex(ctx context.Context, collectionID string) (index.Index, error) {
	if m.loadIndexFn != nil {
		return m.loadIndexFn(ctx, collectionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[collectionID]
	if !ok {
		return make(index.Index), nil
	}
	return idx, nil
}

func (m *mockBlobs) SaveIndex(ctx context.Context, collectionID string, idx index.Index) error {
	if m.saveIndexFn != nil {
		return m.saveIndexFn(ctx, collectionID, idx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[collectionID] = idx
	return nil
}

func (m *mockBlobs) GetArchive(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.archives[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockBlobs) DeleteArchive(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.archives[key]
	delete(m.archives, key)
	return ok, nil
}

func (m *mockBlobs) savedIndex(collectionID string) index.Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexes[collectionID]
}

// mockExtractor returns canned face records keyed by image payload.
type mockExtractor struct {
	mu        sync.Mutex
	byPayload map[string][]domain.FaceRecord
	err       error
	calls     int
}

func (m *mockExtractor) Extract(_ context.Context, image []byte) ([]domain.FaceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.byPayload[string(image)], nil
}

func newTestService(t *testing.T) (*Service, *mockMeta, *mockBlobs, *mockExtractor) {
	t.Helper()
	meta := newMockMeta()
	blobs := newMockBlobs()
	ext := &mockExtractor{byPayload: make(map[string][]domain.FaceRecord)}
	svc := New(meta, blobs, ext, nil).WithWorkers(2)
	return svc, meta, blobs, ext
}
