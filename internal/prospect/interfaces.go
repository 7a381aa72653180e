package prospect

import (
	"context"
	"io"
	"time"
)

// BlobStore writes binary artifacts (screenshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces identifiers for audits and search runs.
type IDGenerator interface {
	NewID() (string, error)
}

// Geocoder resolves a free-text place name. A nil point with a nil error
// means the place is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*GeoPoint, error)
}

// DirectorySearcher finds candidate businesses around a point.
type DirectorySearcher interface {
	Search(ctx context.Context, sector Sector, center GeoPoint, radiusM int, limit int) ([]CandidateRecord, error)
}

// Enricher backfills candidates from a mapping service. It always returns
// exactly one result per target.
type Enricher interface {
	Enrich(ctx context.Context, targets []EnrichmentTarget, onProgress ProgressFunc) []EnrichmentResult
}

// ProgressFunc is invoked once per processed enrichment target.
type ProgressFunc func(index, total int, target EnrichmentTarget)
