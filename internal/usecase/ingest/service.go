package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/archive"
	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/index"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/progress"
)

// DefaultWorkers is the extraction worker pool size when none is configured.
const DefaultWorkers = 4

// Service runs the archive ingestion pipeline: unpack, extract faces,
// store images, and merge results into the collection's embeddings index.
type Service struct {
	meta      MetadataStore
	blobs     BlobStore
	extractor Extractor

	workers        int
	progressBuffer int
	logger         *zap.Logger
	locks          *collectionLocks
}

// New creates an ingest service with default pool sizing.
func New(meta MetadataStore, blobs BlobStore, extractor Extractor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		meta:      meta,
		blobs:     blobs,
		extractor: extractor,
		workers:   DefaultWorkers,
		logger:    logger,
		locks:     newCollectionLocks(),
	}
}

// WithWorkers configures the extraction worker pool size.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
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

// IngestArchive processes a zip archive supplied as raw bytes into the
// given collection.
func (s *Service) IngestArchive(ctx context.Context, collectionID string, data []byte) (domain.IngestSummary, error) {
	return s.run(ctx, collectionID, data, "")
}

// IngestStored fetches an archive from the object store by key, ingests it,
// and best-effort deletes the source object afterwards.
func (s *Service) IngestStored(ctx context.Context, collectionID, archiveKey string) (domain.IngestSummary, error) {
	return s.ingestStored(ctx, collectionID, archiveKey, "")
}

// StartJob registers an ingest job for a stored archive and runs it in the
// background. The returned job is in the queued state.
func (s *Service) StartJob(ctx context.Context, collectionID, archiveKey string) (domain.IngestJob, error) {
	if _, err := s.meta.GetCollection(ctx, collectionID); err != nil {
		return domain.IngestJob{}, fmt.Errorf("get collection: %w", err)
	}

	job := domain.IngestJob{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		ArchiveKey:   archiveKey,
		Status:       domain.JobQueued,
	}
	if err := s.meta.CreateIngestJob(ctx, job); err != nil {
		return domain.IngestJob{}, fmt.Errorf("create ingest job: %w", err)
	}

	go s.runJob(context.WithoutCancel(ctx), job)
	return job, nil
}

// GetJob returns the current state of an ingest job.
func (s *Service) GetJob(ctx context.Context, id string) (domain.IngestJob, error) {
	job, err := s.meta.GetIngestJob(ctx, id)
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("get ingest job: %w", err)
	}
	return job, nil
}

func (s *Service) runJob(ctx context.Context, job domain.IngestJob) {
	log := s.logger.With(
		zap.String("job_id", job.ID),
		zap.String("collection_id", job.CollectionID),
	)

	if err := s.meta.UpdateIngestJob(ctx, job.ID, domain.IngestJobUpdate{Status: domain.JobRunning}); err != nil {
		log.Warn("mark job running failed", zap.Error(err))
	}

	summary, err := s.ingestStored(ctx, job.CollectionID, job.ArchiveKey, job.ID)
	if err != nil {
		log.Error("ingest job failed", zap.Error(err))
		if uerr := s.meta.UpdateIngestJob(ctx, job.ID, domain.IngestJobUpdate{Status: domain.JobFailed}); uerr != nil {
			log.Warn("mark job failed failed", zap.Error(uerr))
		}
		return
	}

	// Skipped and failed members still count as processed; the final
	// write must not regress below the progress updates already applied.
	processed := summary.TotalImages
	upd := domain.IngestJobUpdate{Status: domain.JobCompleted, ProcessedImages: &processed}
	if err := s.meta.UpdateIngestJob(ctx, job.ID, upd); err != nil {
		log.Warn("mark job completed failed", zap.Error(err))
	}
	log.Info("ingest job completed",
		zap.Int("images_processed", summary.ImagesProcessed),
		zap.Int("images_skipped", summary.ImagesSkipped),
		zap.Int("failures", summary.Failures),
	)
}

func (s *Service) ingestStored(ctx context.Context, collectionID, archiveKey, jobID string) (domain.IngestSummary, error) {
	data, err := s.blobs.GetArchive(ctx, archiveKey)
	if err != nil {
		return domain.IngestSummary{}, fmt.Errorf("get archive %q: %w", archiveKey, err)
	}
	defer func() {
		if _, derr := s.blobs.DeleteArchive(context.WithoutCancel(ctx), archiveKey); derr != nil {
			s.logger.Warn("delete source archive failed",
				zap.String("archive_key", archiveKey), zap.Error(derr))
		}
	}()

	return s.run(ctx, collectionID, data, jobID)
}

// run executes one ingestion for a collection. jobID is empty for direct
// uploads and set for background jobs, which additionally track progress
// on the job record.
func (s *Service) run(ctx context.Context, collectionID string, data []byte, jobID string) (domain.IngestSummary, error) {
	log := s.logger.With(zap.String("collection_id", collectionID))

	col, err := s.meta.GetCollection(ctx, collectionID)
	if err != nil {
		return domain.IngestSummary{}, fmt.Errorf("get collection: %w", err)
	}

	if !s.locks.acquire(collectionID) {
		return domain.IngestSummary{}, fmt.Errorf("collection %s: %w", collectionID, domain.ErrIngestInProgress)
	}
	defer s.locks.release(collectionID)

	entries, err := archive.Open(data)
	if err != nil {
		s.failCollection(ctx, collectionID)
		return domain.IngestSummary{}, err
	}
	if len(entries) == 0 {
		return domain.IngestSummary{}, fmt.Errorf("archive contains no images: %w", domain.ErrValidation)
	}

	// Member names are normalized in archive order so collision suffixes
	// are assigned deterministically.
	norm := archive.NewNormalizer()
	members := make([]member, len(entries))
	for i, e := range entries {
		members[i] = member{entry: e, name: norm.Normalize(e.Path)}
	}
	total := len(members)

	// The processing mark leaves the prior count in place; progress
	// updates carry the running count from here on.
	if err := s.meta.UpdateCollectionStatus(ctx, collectionID, domain.CollectionProcessing, nil); err != nil {
		return domain.IngestSummary{}, fmt.Errorf("mark collection processing: %w", err)
	}
	if jobID != "" {
		upd := domain.IngestJobUpdate{Status: domain.JobRunning, TotalImages: &total}
		if err := s.meta.UpdateIngestJob(ctx, jobID, upd); err != nil {
			log.Warn("set job total failed", zap.Error(err))
		}
	}

	reporter := progress.NewReporter(ctx, s.progressApply(collectionID, jobID), s.progressBuffer, log)

	st := &runState{results: make(index.Index)}
	jobs := make(chan member, s.workers*2)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, collectionID, jobs, total, st, reporter)
		}()
	}

feed:
	for _, m := range members {
		select {
		case jobs <- m:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	reporter.Close()

	if err := ctx.Err(); err != nil {
		s.failCollection(context.WithoutCancel(ctx), collectionID)
		return domain.IngestSummary{}, fmt.Errorf("ingest canceled: %w", err)
	}

	merged, err := s.persist(ctx, collectionID, col, st)
	if err != nil {
		s.failCollection(ctx, collectionID)
		return domain.IngestSummary{}, err
	}

	summary := domain.IngestSummary{
		TotalImages:     total,
		ImagesProcessed: len(st.results),
		ImagesSkipped:   int(st.skipped.Load()),
		Failures:        int(st.failed.Load()),
	}
	log.Info("ingest complete",
		zap.Int("images_processed", summary.ImagesProcessed),
		zap.Int("images_skipped", summary.ImagesSkipped),
		zap.Int("failures", summary.Failures),
		zap.Int("index_size", merged),
	)
	return summary, nil
}

type member struct {
	entry archive.Entry
	name  string
}

type runState struct {
	mu       sync.Mutex
	results  index.Index
	previews []string

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func (s *Service) worker(
	ctx context.Context,
	collectionID string,
	jobs <-chan member,
	total int,
	st *runState,
	reporter *progress.Reporter,
) {
	for m := range jobs {
		if ctx.Err() != nil {
			return
		}
		s.processMember(ctx, collectionID, m, st)

		done := int(st.processed.Add(1))
		if progress.Due(done, total) {
			reporter.Report(done)
		}
	}
}

// processMember handles a single archive member. Every per-member failure
// is logged and counted, never fatal for the run.
func (s *Service) processMember(ctx context.Context, collectionID string, m member, st *runState) {
	log := s.logger.With(
		zap.String("collection_id", collectionID),
		zap.String("filename", m.name),
	)

	data, err := m.entry.Read()
	if err != nil {
		log.Warn("read archive member failed", zap.Error(err))
		st.failed.Add(1)
		metrics.IngestImagesTotal.WithLabelValues("failed").Inc()
		return
	}

	faces, err := s.extractor.Extract(ctx, data)
	if err != nil {
		log.Warn("face extraction failed", zap.Error(err))
		st.failed.Add(1)
		metrics.IngestImagesTotal.WithLabelValues("failed").Inc()
		return
	}
	if len(faces) == 0 {
		log.Debug("no faces detected, skipping")
		st.skipped.Add(1)
		metrics.IngestImagesTotal.WithLabelValues("skipped").Inc()
		return
	}

	key, err := s.blobs.PutImage(ctx, collectionID, m.name, data, archive.ContentType(m.name))
	if err != nil {
		log.Warn("store image failed", zap.Error(err))
		st.failed.Add(1)
		metrics.IngestImagesTotal.WithLabelValues("failed").Inc()
		return
	}

	st.mu.Lock()
	st.results[m.name] = faces
	if len(st.previews) < domain.MaxPreviewImages {
		st.previews = append(st.previews, key)
	}
	st.mu.Unlock()
	metrics.IngestImagesTotal.WithLabelValues("indexed").Inc()
}

// persist merges this run's results into the stored index and finalizes
// collection metadata. Returns the merged index size.
func (s *Service) persist(ctx context.Context, collectionID string, col domain.Collection, st *runState) (int, error) {
	existing, err := s.blobs.LoadIndex(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	merged := index.Merge(existing, st.results)
	if err := s.blobs.SaveIndex(ctx, collectionID, merged); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}

	previews := domain.MergePreviews(col.PreviewImages, st.previews)
	if err := s.meta.SetPreviewImages(ctx, collectionID, previews); err != nil {
		s.logger.Warn("set preview images failed",
			zap.String("collection_id", collectionID), zap.Error(err))
	}

	count := len(merged)
	if err := s.meta.UpdateCollectionStatus(ctx, collectionID, domain.CollectionComplete, &count); err != nil {
		return 0, fmt.Errorf("mark collection complete: %w", err)
	}
	return count, nil
}

// progressApply builds the reporter callback: absolute processed counts go
// to the collection record and, for job runs, to the job record too.
func (s *Service) progressApply(collectionID, jobID string) progress.ApplyFunc {
	return func(ctx context.Context, processed int) error {
		err := s.meta.UpdateCollectionStatus(ctx, collectionID, domain.CollectionProcessing, &processed)
		if jobID != "" {
			upd := domain.IngestJobUpdate{Status: domain.JobRunning, ProcessedImages: &processed}
			if jerr := s.meta.UpdateIngestJob(ctx, jobID, upd); jerr != nil {
				err = errors.Join(err, jerr)
			}
		}
		return err
	}
}

func (s *Service) failCollection(ctx context.Context, collectionID string) {
	if err := s.meta.UpdateCollectionStatus(ctx, collectionID, domain.CollectionError, nil); err != nil {
		s.logger.Warn("mark collection error failed",
			zap.String("collection_id", collectionID), zap.Error(err))
	}
}
