package metadata

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn    func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)

	hsetCalls []hsetCall
}

type hsetCall struct {
	key    string
	fields map[string]string
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	m.hsetCalls = append(m.hsetCalls, hsetCall{key: key, fields: fields})
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "facedex:"), ms
}
