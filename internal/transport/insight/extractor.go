// Package insight is the HTTP client for the face-analysis sidecar.
// The sidecar wraps the detection/embedding model and exposes one
// operation: image bytes in, detected faces out. Undecodable images
// fail soft with an empty face list; only transport and server errors
// surface here.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Extractor calls the face-analysis sidecar over HTTP.
type Extractor struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Config holds the sidecar connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewExtractor creates a sidecar client.
func NewExtractor(cfg *Config) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// extractResponse is the sidecar's wire format. Gender, age, and bbox
// follow the model's conventions (gender 0 female / 1 male).
type extractResponse struct {
	Faces []faceWire `json:"faces"`
}

type faceWire struct {
	Embedding []float32   `json:"embedding"`
	Gender    int         `json:"gender"`
	Age       *int        `json:"age"`
	BBox      *[4]float64 `json:"bbox"`
}

// Extract detects faces in an image and returns one record per face,
// in the sidecar's detection order. An image with no detectable faces
// (including undecodable input) yields an empty slice and no error.
func (e *Extractor) Extract(ctx context.Context, image []byte) ([]domain.FaceRecord, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(image),
	)
	if err != nil {
		return nil, fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: extractor returned %d: %s",
			domain.ErrExtractorUnavailable, resp.StatusCode, body)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: decode extractor response: %v",
			domain.ErrExtractorUnavailable, err)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues("success").Inc()
	metrics.ExtractionRequestDuration.Observe(duration.Seconds())

	faces := make([]domain.FaceRecord, len(out.Faces))
	for i, f := range out.Faces {
		faces[i] = domain.FaceRecord{
			Embedding: f.Embedding,
			Gender:    domain.Gender(f.Gender),
			Age:       f.Age,
			BBox:      f.BBox,
		}
	}
	return faces, nil
}

// HealthCheck verifies sidecar availability.
func (e *Extractor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("extractor health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extractor health: status %d", resp.StatusCode)
	}
	return nil
}
