// Package ingest turns OCR bridge exports into registry chunks. The bridge
// emits one JSON payload per scanned document: full text plus per-line
// confidence results grouped by page. Ingestion detects clause headings,
// accumulates the lines under each heading into one chunk, and feeds the
// chunks to the registry.
package ingest

import (
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

// LineResult is one recognized text line with its OCR confidence and bounding
// box, as produced by the OCR bridge.
type LineResult struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        [][]float64 `json:"box"`
	Page       int         `json:"page"`
}

// Page is the per-page aggregation of the bridge output.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	LineCount  int    `json:"line_count"`
}

// Payload is the full OCR export for one document.
type Payload struct {
	Text      string       `json:"text"`
	Results   []LineResult `json:"results"`
	Pages     []Page       `json:"pages"`
	PageCount int          `json:"page_count"`
	Engine    string       `json:"engine"`
}

// ParsePayload decodes an OCR export.
func ParsePayload(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPayload reads an OCR export from disk.
func LoadPayload(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePayload(f)
}

// Summary reports what one ingestion run produced.
type Summary struct {
	DocumentID    string   `json:"document_id"`
	Engine        string   `json:"engine,omitempty"`
	LinesScanned  int      `json:"lines_scanned"`
	ChunksCreated int      `json:"chunks_created"`
	ChunkIDs      []string `json:"chunk_ids,omitempty"`
}

// Ingester detects clause headings in OCR line streams and builds chunks.
// Construct once with NewIngester; it is immutable and safe to share.
type Ingester struct {
	// A heading line: optional keyword, a clause number, then a separator
	// or nothing. "14.1 Contract Price", "Clause 6 A.2 (b): Payments".
	headingPattern *regexp.Regexp
}

// NewIngester creates an ingester with compiled patterns.
func NewIngester() *Ingester {
	return &Ingester{
		headingPattern: regexp.MustCompile(
			`^(?:(?i:Clause|Sub-clause|Article)\s+)?` +
				`(\d+(?:[ \t]*[A-Za-z]\b)?(?:\.\d+(?:[ \t]*[A-Za-z]\b)?)*(?:[ \t]*\([A-Za-z0-9]+\))?)` +
				`(?:[.:)\-]|\s|$)`),
	}
}

// HeadingNumber extracts the clause number from a heading line, or "" when
// the line is not a heading.
func (ing *Ingester) HeadingNumber(line string) string {
	m := ing.headingPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ""
	}
	return m[1]
}

// pendingChunk accumulates the lines between two headings.
type pendingChunk struct {
	clauseNumber string
	page         int
	lines        []string
	confidence   float64
	hasLines     bool
}

// Ingest feeds one OCR payload into the registry as chunks of documentID.
// A chunk's confidence is the lowest confidence among its member lines, so a
// single garbled line flags the whole clause. Pages the OCR engine produced
// no lines for are reported as TABLE_EXTRACTION_FAILED. Duplicate chunks are
// skipped with their issue recorded; ingestion continues.
func (ing *Ingester) Ingest(reg *registry.Registry, documentID string, p *Payload) (*Summary, *validate.Result) {
	summary := &Summary{DocumentID: documentID, Engine: p.Engine}
	result := validate.NewResult()

	for _, page := range p.Pages {
		if page.LineCount == 0 {
			result.Add(validate.Errorf(validate.CodeTableExtractionFailed,
				"page %d produced no text lines", page.PageNumber).WithDocument(documentID))
		}
	}

	var current *pendingChunk
	flush := func() {
		if current == nil {
			return
		}
		chunk, warnings, err := reg.AddChunk(registry.ChunkInput{
			DocumentID:   documentID,
			ClauseNumber: current.clauseNumber,
			Content:      strings.Join(current.lines, "\n"),
			Confidence:   current.confidence,
			PageNumber:   current.page,
		})
		current = nil
		for _, w := range warnings {
			result.Add(w)
		}
		if err != nil {
			if issue, ok := validate.AsIssue(err); ok {
				result.Add(issue)
			} else {
				result.Add(validate.Errorf(validate.CodeInvalidClauseNumber, "%v", err).
					WithDocument(documentID))
			}
			return
		}
		summary.ChunksCreated++
		summary.ChunkIDs = append(summary.ChunkIDs, chunk.ID)
	}

	for _, line := range p.Results {
		summary.LinesScanned++
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		if number := ing.HeadingNumber(text); number != "" {
			flush()
			current = &pendingChunk{
				clauseNumber: number,
				page:         line.Page,
				confidence:   line.Confidence,
			}
		}
		if current == nil {
			// Preamble text before the first heading carries no clause
			// number and is not chunked.
			continue
		}

		current.lines = append(current.lines, text)
		if !current.hasLines || line.Confidence < current.confidence {
			current.confidence = line.Confidence
		}
		current.hasLines = true
	}
	flush()

	return summary, result
}
