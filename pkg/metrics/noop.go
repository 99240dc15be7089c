package metrics

import "context"

// NoopCollector discards every event.
type NoopCollector struct{}

// NewNoopCollector returns a collector that does nothing.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (NoopCollector) RecordResolution(context.Context, string, int64) {}

func (NoopCollector) RecordIngest(context.Context, string, int, int) {}

func (NoopCollector) RecordLinks(context.Context, int) {}

func (NoopCollector) SetClauseCount(context.Context, string, int64) {}
