package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage: object bytes and content type are
// stored under separate keys so that Get of a large blob never pays for
// metadata and vice versa.
const (
	dataKeyPrefix = "obj:"
	typeKeyPrefix = "objtype:"
)

// BadgerStore implements Store on an embedded BadgerDB. Suitable for
// single-node deployments with persistence across restarts.
type BadgerStore struct {
	db *badger.DB
}

// Compile-time check: BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a badger-backed object store at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already-open badger DB.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Put stores an object and its content type.
func (s *BadgerStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKeyPrefix+key), data); err != nil {
			return fmt.Errorf("set object: %w", err)
		}
		if err := txn.Set([]byte(typeKeyPrefix+key), []byte(contentType)); err != nil {
			return fmt.Errorf("set content type: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get retrieves object bytes by key.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrObjectNotFound
		}
		if err != nil {
			return fmt.Errorf("get object: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// ContentType returns the stored content type of an object.
func (s *BadgerStore) ContentType(_ context.Context, key string) (string, error) {
	var ct []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(typeKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrObjectNotFound
		}
		if err != nil {
			return err
		}
		ct, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("content type %s: %w", key, err)
	}
	return string(ct), nil
}

// List returns the keys of all objects under prefix.
func (s *BadgerStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(dataKeyPrefix + prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			k := it.Item().Key()
			keys = append(keys, string(k[len(dataKeyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

// Delete removes an object and its content type; reports whether the
// object existed.
func (s *BadgerStore) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Get(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dataKeyPrefix + key)); err != nil {
			return err
		}
		return txn.Delete([]byte(typeKeyPrefix + key))
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// Close closes the underlying badger DB.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
