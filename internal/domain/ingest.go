package domain

// JobStatus is the lifecycle state of a deferred ingest job.
type JobStatus string

const (
	// JobQueued means the job was accepted but not started.
	JobQueued JobStatus = "queued"
	// JobRunning means the ingest pipeline is processing the archive.
	JobRunning JobStatus = "running"
	// JobCompleted means the run finished successfully.
	JobCompleted JobStatus = "completed"
	// JobFailed means the run failed fatally.
	JobFailed JobStatus = "failed"
)

// IngestJob tracks a deferred ingest triggered by a stored archive key
// rather than a synchronous upload.
type IngestJob struct {
	ID              string
	CollectionID    string
	ArchiveKey      string
	Status          JobStatus
	TotalImages     int
	ProcessedImages int
}

// IngestJobUpdate is a partial update to an ingest job. Nil fields are
// left untouched; counts are absolute.
type IngestJobUpdate struct {
	Status          JobStatus
	TotalImages     *int
	ProcessedImages *int
}

// IngestSummary reports the outcome of one ingest run. Per-file failures
// are counted, not fatal. TotalImages is the archive member count;
// every member ends up processed, skipped, or failed.
type IngestSummary struct {
	TotalImages     int
	ImagesProcessed int
	ImagesSkipped   int
	Failures        int
}
