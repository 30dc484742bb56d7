package domain

import "errors"

var (
	// ErrValidation signals a missing or malformed request field. The
	// request is rejected before any state mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals an unknown collection, search request, or job.
	ErrNotFound = errors.New("not found")
	// ErrArchiveCorrupt signals an unreadable archive.
	ErrArchiveCorrupt = errors.New("archive corrupt")
	// ErrStorage signals an object storage failure, fatal for the
	// current operation.
	ErrStorage = errors.New("storage failure")
	// ErrExtractorUnavailable signals that the face extractor sidecar
	// cannot be reached.
	ErrExtractorUnavailable = errors.New("face extractor unavailable")
	// ErrNoFaceDetected signals a reference photo without a detectable face.
	ErrNoFaceDetected = errors.New("no face detected in reference photo")
	// ErrCollectionNotReady signals a search against a collection whose
	// ingest has not completed.
	ErrCollectionNotReady = errors.New("collection is not ready for searching")
	// ErrIngestInProgress signals a concurrent ingest run on the same collection.
	ErrIngestInProgress = errors.New("ingest already in progress for collection")
)
