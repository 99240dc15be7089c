package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

func TestParsePayload(t *testing.T) {
	raw := `{
		"text": "14.1 Contract Price\nThe Contract Price shall be...",
		"results": [
			{"text": "14.1 Contract Price", "confidence": 0.98, "box": [[0,0],[10,0],[10,5],[0,5]], "page": 1},
			{"text": "The Contract Price shall be...", "confidence": 0.91, "box": [[0,6],[40,6],[40,11],[0,11]], "page": 1}
		],
		"pages": [{"page_number": 1, "text": "14.1 Contract Price\nThe Contract Price shall be...", "line_count": 2}],
		"page_count": 1,
		"engine": "paddle"
	}`

	p, err := ParsePayload(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "paddle", p.Engine)
	assert.Equal(t, 1, p.PageCount)
	require.Len(t, p.Results, 2)
	assert.Equal(t, 0.98, p.Results[0].Confidence)
	assert.Equal(t, 1, p.Results[0].Page)
	assert.Equal(t, 2, p.Pages[0].LineCount)
}

func TestHeadingNumber(t *testing.T) {
	ing := NewIngester()

	tests := []struct {
		line string
		want string
	}{
		{"14.1 Contract Price", "14.1"},
		{"Clause 6 A.2 (b): Payments", "6 A.2 (b)"},
		{"sub-clause 2.1 - Notices", "2.1"},
		{"10. Suspension", "10"},
		{"The Contract Price shall be adjusted.", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ing.HeadingNumber(tt.line), "line %q", tt.line)
	}
}

func payloadLines(lines ...LineResult) *Payload {
	return &Payload{
		Results:   lines,
		Pages:     []Page{{PageNumber: 1, Text: "", LineCount: len(lines)}},
		PageCount: 1,
		Engine:    "paddle",
	}
}

func newDocRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New("CT-100")
	require.NoError(t, r.AddDocument(registry.Document{ID: "GC", Group: registry.GroupConditions, Sequence: 1}))
	return r
}

func TestIngest(t *testing.T) {
	r := newDocRegistry(t)
	ing := NewIngester()

	summary, result := ing.Ingest(r, "GC", payloadLines(
		LineResult{Text: "GENERAL CONDITIONS OF CONTRACT", Confidence: 0.99, Page: 1},
		LineResult{Text: "14.1 Contract Price", Confidence: 0.97, Page: 1},
		LineResult{Text: "The Contract Price shall be the sum stated.", Confidence: 0.93, Page: 1},
		LineResult{Text: "14.2 Advance Payment", Confidence: 0.96, Page: 1},
		LineResult{Text: "The Employer shall make an advance payment.", Confidence: 0.95, Page: 1},
	))

	assert.Equal(t, 2, summary.ChunksCreated)
	assert.Equal(t, 5, summary.LinesScanned)
	assert.True(t, result.IsValid)

	snap := r.Snapshot()
	assert.Equal(t, []clause.ID{"14.1", "14.2"}, snap.CanonicalIDs())

	chunks, fuzzy := snap.Candidates("14.1")
	require.False(t, fuzzy)
	require.Len(t, chunks, 1)
	assert.Equal(t, "14.1 Contract Price\nThe Contract Price shall be the sum stated.", chunks[0].Content)
	assert.Equal(t, 0.93, chunks[0].Confidence, "chunk confidence is its weakest line")
}

func TestIngest_LowConfidenceWarning(t *testing.T) {
	r := newDocRegistry(t)
	ing := NewIngester()

	_, result := ing.Ingest(r, "GC", payloadLines(
		LineResult{Text: "8.2 Delay Damages", Confidence: 0.95, Page: 1},
		LineResult{Text: "smudged scanner output", Confidence: 0.31, Page: 1},
	))

	assert.True(t, result.IsValid)
	assert.Equal(t, 1, result.Counts[validate.CodeOCRConfidenceLow])
}

func TestIngest_EmptyPage(t *testing.T) {
	r := newDocRegistry(t)
	ing := NewIngester()

	_, result := ing.Ingest(r, "GC", &Payload{
		Pages:     []Page{{PageNumber: 3, LineCount: 0}},
		PageCount: 1,
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.Counts[validate.CodeTableExtractionFailed])
}

func TestIngest_DuplicateSkippedButContinues(t *testing.T) {
	r := newDocRegistry(t)
	ing := NewIngester()

	lines := payloadLines(
		LineResult{Text: "2.1 Notices", Confidence: 0.9, Page: 1},
		LineResult{Text: "All notices shall be in writing.", Confidence: 0.9, Page: 1},
	)
	summary, result := ing.Ingest(r, "GC", lines)
	require.Equal(t, 1, summary.ChunksCreated)
	require.True(t, result.IsValid)

	// Re-running the identical payload hits the content-hash dedup; the
	// issue is recorded and nothing new is created.
	summary, result = ing.Ingest(r, "GC", lines)
	assert.Equal(t, 0, summary.ChunksCreated)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.Counts[validate.CodeDuplicateChunk])
}

func TestIngest_UnknownDocument(t *testing.T) {
	r := newDocRegistry(t)
	ing := NewIngester()

	summary, result := ing.Ingest(r, "NOPE", payloadLines(
		LineResult{Text: "1 Definitions", Confidence: 0.9, Page: 1},
	))
	assert.Equal(t, 0, summary.ChunksCreated)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.Counts[validate.CodeUnresolvedReference])
}
