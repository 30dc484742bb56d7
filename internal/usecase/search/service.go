package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/progress"
)

// Options tune a single search run. Zero values fall back to the
// service defaults.
type Options struct {
	// Threshold is the cosine similarity a face must strictly exceed.
	Threshold float64
	// Limit caps the number of returned matches after ranking. Zero
	// means unlimited.
	Limit int
	// BestMatch scores every face of a candidate image and keeps the
	// highest similarity instead of stopping at the first face over
	// the threshold.
	BestMatch bool
}

// Service scans a collection's embeddings index for faces similar to a
// reference photo.
type Service struct {
	meta      MetadataStore
	idx       IndexReader
	extractor Extractor

	threshold      float64
	progressBuffer int
	logger         *zap.Logger
}

// New creates a search service with the default similarity threshold.
func New(meta MetadataStore, idx IndexReader, extractor Extractor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		meta:      meta,
		idx:       idx,
		extractor: extractor,
		threshold: domain.DefaultSimilarityThreshold,
		logger:    logger,
	}
}

// WithThreshold overrides the default similarity threshold.
func (s *Service) WithThreshold(t float64) *Service {
	if t > 0 {
		s.threshold = t
	}
	return s
}

// WithProgressBuffer configures the progress reporter channel capacity.
func (s *Service) WithProgressBuffer(n int) *Service {
	if n > 0 {
		s.progressBuffer = n
	}
	return s
}

// Run executes a search for the given request using the reference photo
// bytes. Matched image keys are written to the request record; the
// ranked matches are also returned for synchronous callers.
//
// Preconditions fail without mutating the request: the request and its
// collection must exist, the collection must be complete, and the
// reference photo must contain at least one face.
func (s *Service) Run(ctx context.Context, requestID string, reference []byte, opts Options) ([]domain.Match, error) {
	log := s.logger.With(zap.String("search_request_id", requestID))

	req, err := s.meta.GetSearchRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get search request: %w", err)
	}
	col, err := s.meta.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", req.CollectionID, err)
	}
	if col.Status != domain.CollectionComplete {
		return nil, fmt.Errorf("%w: collection %s is %s: %w",
			domain.ErrValidation, col.ID, col.Status, domain.ErrCollectionNotReady)
	}

	refFaces, err := s.extractor.Extract(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("extract reference faces: %w", err)
	}
	if len(refFaces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	// The extractor orders faces by detection confidence; the first one
	// is the query.
	ref := refFaces[0]

	threshold := s.threshold
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}

	matches, total, err := s.scan(ctx, requestID, col, ref, threshold, opts)
	if err != nil {
		s.failRequest(ctx, requestID)
		metrics.SearchScansTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = s.idx.ImageKey(col.ID, m.Filename)
	}
	upd := domain.SearchRequestUpdate{
		Status:          domain.SearchComplete,
		TotalImages:     &total,
		ProcessedImages: &total,
		ImagesFound:     keys,
	}
	if err := s.meta.UpdateSearchRequest(ctx, requestID, upd); err != nil {
		metrics.SearchScansTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("mark search complete: %w", err)
	}

	metrics.SearchScansTotal.WithLabelValues("complete").Inc()
	log.Info("search complete",
		zap.String("collection_id", col.ID),
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", threshold),
	)
	return matches, nil
}

// scan walks the whole index comparing the reference face against every
// stored face with a matching gender. TotalImages comes from the
// collection record, written before the index is read.
func (s *Service) scan(
	ctx context.Context,
	requestID string,
	col domain.Collection,
	ref domain.FaceRecord,
	threshold float64,
	opts Options,
) ([]domain.Match, int, error) {
	total := col.ImagesCount

	running := domain.SearchProcessing
	zero := 0
	if err := s.meta.UpdateSearchRequest(ctx, requestID, domain.SearchRequestUpdate{
		Status:          running,
		TotalImages:     &total,
		ProcessedImages: &zero,
	}); err != nil {
		return nil, 0, fmt.Errorf("mark search processing: %w", err)
	}

	idx, err := s.idx.LoadIndex(ctx, col.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("load index: %w", err)
	}

	reporter := progress.NewReporter(ctx, func(ctx context.Context, processed int) error {
		return s.meta.UpdateSearchRequest(ctx, requestID, domain.SearchRequestUpdate{
			Status:          running,
			ProcessedImages: &processed,
		})
	}, s.progressBuffer, s.logger)
	defer reporter.Close()

	var matches []domain.Match
	processed := 0
	for filename, faces := range idx {
		if err := ctx.Err(); err != nil {
			return nil, 0, fmt.Errorf("search canceled: %w", err)
		}

		if m, ok := matchImage(ref, faces, threshold, opts.BestMatch); ok {
			matches = append(matches, domain.Match{Filename: filename, Similarity: m})
		}

		processed++
		if progress.Due(processed, total) {
			reporter.Report(processed)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, total, nil
}

// matchImage decides whether one indexed image matches the reference
// face. Faces of a different gender are never compared. With bestMatch
// unset the first face strictly over the threshold wins; otherwise every
// face is scored and the highest similarity is kept.
func matchImage(ref domain.FaceRecord, faces []domain.FaceRecord, threshold float64, bestMatch bool) (float64, bool) {
	best := 0.0
	found := false
	for _, f := range faces {
		if f.Gender != ref.Gender {
			continue
		}
		sim, ok := domain.CosineSimilarity(ref.Embedding, f.Embedding)
		if !ok || sim <= threshold {
			continue
		}
		if !bestMatch {
			return sim, true
		}
		if !found || sim > best {
			best = sim
			found = true
		}
	}
	return best, found
}

func (s *Service) failRequest(ctx context.Context, requestID string) {
	upd := domain.SearchRequestUpdate{Status: domain.SearchError}
	if err := s.meta.UpdateSearchRequest(context.WithoutCancel(ctx), requestID, upd); err != nil {
		s.logger.Warn("mark search error failed",
			zap.String("search_request_id", requestID), zap.Error(err))
	}
}
