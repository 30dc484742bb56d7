// Package index holds the consolidated embeddings index of a
// collection: one persisted mapping from normalized filename to the
// faces detected in that file.
package index

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// Index maps a normalized filename to the ordered faces detected in it.
// Filenames are unique within a collection. Entries are never deleted
// individually; the index only grows via Merge and is rewritten whole.
type Index map[string][]domain.FaceRecord

// Merge returns the key-wise union of existing and update. On key
// collision the update entry wins. Neither input is modified.
func Merge(existing, update Index) Index {
	merged := make(Index, len(existing)+len(update))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}

// Encode serializes the index as the JSON wire format:
// {filename: [{"embedding":[...],"gender":0|1,"age":n,"bbox":[...]}]}.
func (i Index) Encode() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return data, nil
}

// Decode parses a serialized index. A nil or empty payload yields an
// empty index, which is how a collection starts its life.
func Decode(data []byte) (Index, error) {
	if len(data) == 0 {
		return Index{}, nil
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if idx == nil {
		idx = Index{}
	}
	return idx, nil
}
