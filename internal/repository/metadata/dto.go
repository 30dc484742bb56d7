package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(id string, m map[string]string) (domain.Collection, error) {
	col := domain.Collection{
		ID:     id,
		Status: domain.CollectionStatus(m["status"]),
	}
	if col.Status == "" {
		col.Status = domain.CollectionNotStarted
	}

	if s, ok := m["images_count"]; ok && s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domain.Collection{}, fmt.Errorf("invalid images_count: %w", err)
		}
		col.ImagesCount = n
	}

	if s, ok := m["preview_images"]; ok && s != "" {
		if err := json.Unmarshal([]byte(s), &col.PreviewImages); err != nil {
			return domain.Collection{}, fmt.Errorf("unmarshal preview_images: %w", err)
		}
	}

	return col, nil
}

// searchRequestFromHash hydrates a domain SearchRequest from an HGETALL result map.
func searchRequestFromHash(id string, m map[string]string) (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		ID:           id,
		CollectionID: m["collection_id"],
		Status:       domain.SearchStatus(m["status"]),
	}
	if req.Status == "" {
		req.Status = domain.SearchPending
	}

	var err error
	if req.TotalImages, err = intField(m, "total_images"); err != nil {
		return domain.SearchRequest{}, err
	}
	if req.ProcessedImages, err = intField(m, "processed_images"); err != nil {
		return domain.SearchRequest{}, err
	}

	if s, ok := m["images_found"]; ok && s != "" {
		if err := json.Unmarshal([]byte(s), &req.ImagesFound); err != nil {
			return domain.SearchRequest{}, fmt.Errorf("unmarshal images_found: %w", err)
		}
	}

	return req, nil
}

// jobToHash converts an IngestJob to a map for HSET.
func jobToHash(job domain.IngestJob) map[string]string {
	return map[string]string{
		"collection_id":    job.CollectionID,
		"archive_key":      job.ArchiveKey,
		"status":           string(job.Status),
		"total_images":     strconv.Itoa(job.TotalImages),
		"processed_images": strconv.Itoa(job.ProcessedImages),
	}
}

// jobFromHash hydrates an IngestJob from an HGETALL result map.
func jobFromHash(id string, m map[string]string) (domain.IngestJob, error) {
	job := domain.IngestJob{
		ID:           id,
		CollectionID: m["collection_id"],
		ArchiveKey:   m["archive_key"],
		Status:       domain.JobStatus(m["status"]),
	}
	if job.Status == "" {
		job.Status = domain.JobQueued
	}

	var err error
	if job.TotalImages, err = intField(m, "total_images"); err != nil {
		return domain.IngestJob{}, err
	}
	if job.ProcessedImages, err = intField(m, "processed_images"); err != nil {
		return domain.IngestJob{}, err
	}

	return job, nil
}

func intField(m map[string]string, field string) (int, error) {
	s, ok := m[field]
	if !ok || s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return n, nil
}
