package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	healthuc "github.com/kailas-cloud/facedex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/facedex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/facedex/internal/usecase/search"
)

// errorCode is the machine-readable code in error responses.
type errorCode string

const (
	codeBadRequest           errorCode = "bad_request"
	codeValidationFailed     errorCode = "validation_failed"
	codeNotFound             errorCode = "not_found"
	codeArchiveCorrupt       errorCode = "archive_corrupt"
	codeNoFaceDetected       errorCode = "no_face_detected"
	codeCollectionNotReady   errorCode = "collection_not_ready"
	codeIngestInProgress     errorCode = "ingest_in_progress"
	codeExtractorUnavailable errorCode = "extractor_unavailable"
	codeStorageFailure       errorCode = "storage_failure"
	codeInternalError        errorCode = "internal_error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the face search API over HTTP.
type Server struct {
	ingest *ingestuc.Service
	search *searchuc.Service
	health *healthuc.Service

	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:         ingest,
		search:         search,
		health:         health,
		maxUploadBytes: 512 << 20,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrIngestInProgress, http.StatusConflict, codeIngestInProgress),
		sentinelHandler(domain.ErrArchiveCorrupt, http.StatusBadRequest, codeArchiveCorrupt),
		sentinelHandler(domain.ErrNoFaceDetected, http.StatusBadRequest, codeNoFaceDetected),
		sentinelHandler(domain.ErrCollectionNotReady, http.StatusBadRequest, codeCollectionNotReady),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrExtractorUnavailable, http.StatusBadGateway, codeExtractorUnavailable),
		sentinelHandler(domain.ErrStorage, http.StatusInternalServerError, codeStorageFailure),
	}
	return s
}

// WithMaxUploadBytes caps the multipart request body size.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Routes builds the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload-collection", s.UploadCollection)
	r.Post("/search-photos", s.SearchPhotos)
	r.Post("/ingest-jobs", s.CreateIngestJob)
	r.Get("/ingest-jobs/{jobID}", s.GetIngestJob)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// uploadCollectionResponse is the body of a successful archive upload.
type uploadCollectionResponse struct {
	Success         bool   `json:"success"`
	CollectionID    string `json:"collection_id"`
	ImagesProcessed int    `json:"images_processed"`
	ImagesSkipped   int    `json:"images_skipped"`
	Failures        int    `json:"failures"`
}

// UploadCollection handles POST /upload-collection. The multipart form
// carries collection_id and a zip archive in the file field.
func (s *Server) UploadCollection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	collectionID := r.FormValue("collection_id")
	if collectionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "collection_id is required")
		return
	}

	data, err := readFormFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	summary, err := s.ingest.IngestArchive(r.Context(), collectionID, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadCollectionResponse{
		Success:         true,
		CollectionID:    collectionID,
		ImagesProcessed: summary.ImagesProcessed,
		ImagesSkipped:   summary.ImagesSkipped,
		Failures:        summary.Failures,
	})
}

// searchPhotosResponse is the body of a finished search.
type searchPhotosResponse struct {
	Success      bool    `json:"success"`
	MatchesFound int     `json:"matches_found"`
	Threshold    float64 `json:"threshold,omitempty"`
}

// SearchPhotos handles POST /search-photos. The multipart form carries
// search_request_id, a reference_photo file, and optional threshold,
// limit, and best_match overrides.
func (s *Server) SearchPhotos(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	requestID := r.FormValue("search_request_id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "search_request_id is required")
		return
	}

	photo, err := readFormFile(r, "reference_photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	opts, err := searchOptionsFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	matches, err := s.search.Run(r.Context(), requestID, photo, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchPhotosResponse{
		Success:      true,
		MatchesFound: len(matches),
		Threshold:    opts.Threshold,
	})
}

func searchOptionsFromForm(r *http.Request) (searchuc.Options, error) {
	var opts searchuc.Options

	if v := r.FormValue("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t <= 0 || t >= 1 {
			return opts, fmt.Errorf("threshold must be a number in (0, 1), got %q", v)
		}
		opts.Threshold = t
	}
	if v := r.FormValue("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("limit must be a positive integer, got %q", v)
		}
		opts.Limit = n
	}
	if v := r.FormValue("best_match"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("best_match must be a boolean, got %q", v)
		}
		opts.BestMatch = b
	}
	return opts, nil
}

// createIngestJobRequest is the body of POST /ingest-jobs.
type createIngestJobRequest struct {
	CollectionID string `json:"collection_id"`
	ArchiveKey   string `json:"archive_key"`
}

// ingestJobResponse mirrors domain.IngestJob on the wire.
type ingestJobResponse struct {
	ID              string `json:"id"`
	CollectionID    string `json:"collection_id"`
	ArchiveKey      string `json:"archive_key"`
	Status          string `json:"status"`
	TotalImages     int    `json:"total_images"`
	ProcessedImages int    `json:"processed_images"`
}

func jobToResponse(job domain.IngestJob) ingestJobResponse {
	return ingestJobResponse{
		ID:              job.ID,
		CollectionID:    job.CollectionID,
		ArchiveKey:      job.ArchiveKey,
		Status:          string(job.Status),
		TotalImages:     job.TotalImages,
		ProcessedImages: job.ProcessedImages,
	}
}

// CreateIngestJob handles POST /ingest-jobs. The archive must already be
// in the object store under archive_key.
func (s *Server) CreateIngestJob(w http.ResponseWriter, r *http.Request) {
	var req createIngestJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.CollectionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "collection_id is required")
		return
	}
	if req.ArchiveKey == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "archive_key is required")
		return
	}

	job, err := s.ingest.StartJob(r.Context(), req.CollectionID, req.ArchiveKey)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

// GetIngestJob handles GET /ingest-jobs/{jobID}.
func (s *Server) GetIngestJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.ingest.GetJob(r.Context(), jobID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// readFormFile reads one multipart file field fully into memory.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s file is required", field)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s file is empty", field)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrIngestInProgress,
		domain.ErrArchiveCorrupt,
		domain.ErrNoFaceDetected,
		domain.ErrCollectionNotReady,
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrExtractorUnavailable,
		domain.ErrStorage,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
