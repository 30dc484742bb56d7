// Package client is a small HTTP client for the facedex API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Minute

// Client talks to a facedex server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a facedex API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is an error response from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facedex: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// UploadResult reports a finished archive ingestion.
type UploadResult struct {
	Success         bool   `json:"success"`
	CollectionID    string `json:"collection_id"`
	ImagesProcessed int    `json:"images_processed"`
	ImagesSkipped   int    `json:"images_skipped"`
	Failures        int    `json:"failures"`
}

// UploadCollection uploads a zip archive of photos into a collection and
// waits for ingestion to finish.
func (c *Client) UploadCollection(ctx context.Context, collectionID string, archive []byte) (UploadResult, error) {
	body, contentType, err := multipartPayload(
		map[string]string{"collection_id": collectionID},
		"file", "archive.zip", archive,
	)
	if err != nil {
		return UploadResult{}, err
	}

	var out UploadResult
	if err := c.post(ctx, "/upload-collection", contentType, body, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// SearchOptions tune a search call. Zero values use server defaults.
type SearchOptions struct {
	Threshold float64
	Limit     int
	BestMatch bool
}

// SearchResult reports a finished search.
type SearchResult struct {
	Success      bool `json:"success"`
	MatchesFound int  `json:"matches_found"`
}

// SearchPhotos runs a reference-photo search for an existing search
// request. Matched image keys are stored on the search request record.
func (c *Client) SearchPhotos(
	ctx context.Context, searchRequestID string, referencePhoto []byte, opts SearchOptions,
) (SearchResult, error) {
	fields := map[string]string{"search_request_id": searchRequestID}
	if opts.Threshold > 0 {
		fields["threshold"] = strconv.FormatFloat(opts.Threshold, 'f', -1, 64)
	}
	if opts.Limit > 0 {
		fields["limit"] = strconv.Itoa(opts.Limit)
	}
	if opts.BestMatch {
		fields["best_match"] = "true"
	}

	body, contentType, err := multipartPayload(fields, "reference_photo", "reference.jpg", referencePhoto)
	if err != nil {
		return SearchResult{}, err
	}

	var out SearchResult
	if err := c.post(ctx, "/search-photos", contentType, body, &out); err != nil {
		return SearchResult{}, err
	}
	return out, nil
}

// IngestJob is the server-side state of a background ingestion.
type IngestJob struct {
	ID              string `json:"id"`
	CollectionID    string `json:"collection_id"`
	ArchiveKey      string `json:"archive_key"`
	Status          string `json:"status"`
	TotalImages     int    `json:"total_images"`
	ProcessedImages int    `json:"processed_images"`
}

// CreateIngestJob starts background ingestion of an archive already
// stored under archiveKey.
func (c *Client) CreateIngestJob(ctx context.Context, collectionID, archiveKey string) (IngestJob, error) {
	payload, err := json.Marshal(map[string]string{
		"collection_id": collectionID,
		"archive_key":   archiveKey,
	})
	if err != nil {
		return IngestJob{}, fmt.Errorf("marshal request: %w", err)
	}

	var out IngestJob
	if err := c.post(ctx, "/ingest-jobs", "application/json", bytes.NewReader(payload), &out); err != nil {
		return IngestJob{}, err
	}
	return out, nil
}

// GetIngestJob returns the current state of an ingest job.
func (c *Client) GetIngestJob(ctx context.Context, jobID string) (IngestJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ingest-jobs/"+jobID, http.NoBody)
	if err != nil {
		return IngestJob{}, fmt.Errorf("build request: %w", err)
	}

	var out IngestJob
	if err := c.do(req, &out); err != nil {
		return IngestJob{}, err
	}
	return out, nil
}

// HealthReport is the server health summary.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return HealthReport{}, fmt.Errorf("build request: %w", err)
	}

	var out HealthReport
	if err := c.do(req, &out); err != nil {
		return HealthReport{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("facedex: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "internal_error", Message: "internal error"}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("facedex: decode response: %w", err)
	}
	return nil
}

func multipartPayload(fields map[string]string, fileField, fileName string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", fmt.Errorf("write file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
