package domain

// CollectionStatus is the lifecycle state of a collection.
type CollectionStatus string

const (
	// CollectionNotStarted means no ingest has run yet.
	CollectionNotStarted CollectionStatus = "not_started"
	// CollectionProcessing means an ingest run is in progress.
	CollectionProcessing CollectionStatus = "processing"
	// CollectionComplete means the collection is searchable.
	CollectionComplete CollectionStatus = "complete"
	// CollectionError means the last ingest run failed.
	CollectionError CollectionStatus = "error"
)

// MaxPreviewImages caps the preview key list stored per collection.
const MaxPreviewImages = 50

// Collection is a named set of ingested photos with one consolidated
// embeddings index. Status and ImagesCount are owned by the ingest
// pipeline while a run is active; complete/error do not block further
// incremental runs.
type Collection struct {
	ID            string
	Status        CollectionStatus
	ImagesCount   int
	PreviewImages []string
}

// MergePreviews unions prior and new preview keys, order-preserving and
// deduplicated, earliest-first, capped at MaxPreviewImages.
func MergePreviews(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, MaxPreviewImages)

	for _, keys := range [][]string{existing, added} {
		for _, k := range keys {
			if len(merged) == MaxPreviewImages {
				return merged
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
	}
	return merged
}
