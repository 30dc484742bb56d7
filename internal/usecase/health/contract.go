package health

import "context"

// DBPinger checks metadata database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ExtractorChecker checks face extractor sidecar availability.
type ExtractorChecker interface {
	HealthCheck(ctx context.Context) error
}
