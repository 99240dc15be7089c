// Package metrics instruments contract processing. The Prometheus-backed
// collector is opt-in; callers that don't care pass the no-op collector.
package metrics

import "context"

// Collector receives processing events.
type Collector interface {
	// RecordResolution records one resolve call and its outcome
	// ("resolved", "ambiguous", "unresolved").
	RecordResolution(ctx context.Context, outcome string, durationMs int64)

	// RecordIngest records one ingestion run: chunks created and issues
	// raised.
	RecordIngest(ctx context.Context, documentID string, chunks, issues int)

	// RecordLinks records the number of reference wrappers one link
	// rewrite emitted.
	RecordLinks(ctx context.Context, count int)

	// SetClauseCount publishes the live clause count of a contract.
	SetClauseCount(ctx context.Context, contractID string, count int64)
}
