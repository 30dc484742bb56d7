package search

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
)

// mockMeta implements MetadataStore with in-memory state.
type mockMeta struct {
	mu sync.Mutex

	collections map[string]domain.Collection
	requests    map[string]domain.SearchRequest

	updateFn func(ctx context.Context, id string, upd domain.SearchRequestUpdate) error
	updates  []domain.SearchRequestUpdate
}

func newMockMeta() *mockMeta {
	return &mockMeta{
		collections: make(map[string]domain.Collection),
		requests:    make(map[string]domain.SearchRequest),
	}
}

func (m *mockMeta) GetCollection(_ context.Context, id string) (domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[id]
	if !ok {
		return domain.Collection{}, domain.ErrNotFound
	}
	return col, nil
}

func (m *mockMeta) GetSearchRequest(_ context.Context, id string) (domain.SearchRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return domain.SearchRequest{}, domain.ErrNotFound
	}
	return req, nil
}

func (m *mockMeta) UpdateSearchRequest(ctx context.Context, id string, upd domain.SearchRequestUpdate) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req := m.requests[id]
	req.ID = id
	if upd.Status != "" {
		req.Status = upd.Status
	}
	if upd.TotalImages != nil {
		req.TotalImages = *upd.TotalImages
	}
	if upd.ProcessedImages != nil {
		req.ProcessedImages = *upd.ProcessedImages
	}
	if upd.ImagesFound != nil {
		req.ImagesFound = upd.ImagesFound
	}
	m.requests[id] = req
	m.updates = append(m.updates, upd)
	return nil
}

func (m *mockMeta) request(id string) domain.SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

func (m *mockMeta) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *mockMeta) update(i int) domain.SearchRequestUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[i]
}

// mockIndex serves a canned index per collection.
type mockIndex struct {
	indexes map[string]index.Index
	err     error
}

func (m *mockIndex) LoadIndex(_ context.Context, collectionID string) (index.Index, error) {
	if m.err != nil {
		return nil, m.err
	}
	idx, ok := m.indexes[collectionID]
	if !ok {
		return make(index.Index), nil
	}
	return idx, nil
}

func (m *mockIndex) ImageKey(collectionID, filename string) string {
	return collectionID + "/" + filename
}

// mockExtractor returns a fixed set of reference faces.
type mockExtractor struct {
	faces []domain.FaceRecord
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, _ []byte) ([]domain.FaceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

func newTestService(t *testing.T) (*Service, *mockMeta, *mockIndex, *mockExtractor) {
	t.Helper()
	meta := newMockMeta()
	idx := &mockIndex{indexes: make(map[string]index.Index)}
	ext := &mockExtractor{}
	return New(meta, idx, ext, nil), meta, idx, ext
}
