package domain

// SearchStatus is the lifecycle state of a search request.
type SearchStatus string

const (
	// SearchPending means the request was created but not started.
	SearchPending SearchStatus = "pending"
	// SearchProcessing means the index scan is in progress.
	SearchProcessing SearchStatus = "processing"
	// SearchComplete means results are available in ImagesFound.
	SearchComplete SearchStatus = "complete"
	// SearchError means the search failed.
	SearchError SearchStatus = "error"
)

// DefaultSimilarityThreshold is the cosine similarity a candidate must
// strictly exceed to count as a match.
const DefaultSimilarityThreshold = 0.6

// SearchRequest tracks one reference-photo search against a collection.
// Created externally; owned by the search pipeline for the duration of
// one search.
type SearchRequest struct {
	ID              string
	CollectionID    string
	Status          SearchStatus
	TotalImages     int
	ProcessedImages int
	ImagesFound     []string
}

// Match is one matched file with its similarity score.
type Match struct {
	Filename   string
	Similarity float64
}

// SearchRequestUpdate is a partial update to a search request. Nil
// fields are left untouched. Counts are absolute, never deltas, so
// dropped or reordered progress updates cannot corrupt the record.
type SearchRequestUpdate struct {
	Status          SearchStatus
	TotalImages     *int
	ProcessedImages *int
	ImagesFound     []string
}
