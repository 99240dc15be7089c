// Package validate defines the error and warning taxonomy shared by the
// clause registry, resolver, and ingestion pipeline. Failures are values, not
// crashes: every rule violation is an Issue that a caller can report against
// one clause while continuing with the rest of the contract.
package validate

import (
	"errors"
	"fmt"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
)

// Code identifies the kind of a validation finding.
type Code string

const (
	// CodeDuplicateClause flags a clause number appearing twice where the
	// document structure forbids it.
	CodeDuplicateClause Code = "DUPLICATE_CLAUSE"

	// CodeDuplicateChunk flags re-ingestion of an identical
	// (document, clause, content hash) triple.
	CodeDuplicateChunk Code = "DUPLICATE_CHUNK"

	// CodeUnresolvedReference flags a clause reference with no matching
	// chunk in the contract, even after fuzzy variant lookup.
	CodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"

	// CodeAddendumOrder flags a cycle in the document override graph.
	CodeAddendumOrder Code = "ADDENDUM_ORDER"

	// CodeMissingPCOverride flags an ambiguous resolution: two candidate
	// chunks remain tied after every ranking tier.
	CodeMissingPCOverride Code = "MISSING_PC_OVERRIDE"

	// CodeOCRConfidenceLow flags chunk text extracted below the configured
	// confidence threshold.
	CodeOCRConfidenceLow Code = "OCR_CONFIDENCE_LOW"

	// CodeInvalidClauseNumber flags a clause number that only matched via
	// fuzzy variant lookup rather than its canonical form.
	CodeInvalidClauseNumber Code = "INVALID_CLAUSE_NUMBER"

	// CodeTableExtractionFailed is reported by the external OCR layer and
	// carried through this taxonomy unchanged.
	CodeTableExtractionFailed Code = "TABLE_EXTRACTION_FAILED"

	// CodeNamingConventionViolation flags a document whose (group, sequence)
	// slot collides with an existing document.
	CodeNamingConventionViolation Code = "NAMING_CONVENTION_VIOLATION"
)

// Severity classifies how an issue affects resolution.
type Severity string

const (
	// SeverityError blocks resolution of the affected clause.
	SeverityError Severity = "error"

	// SeverityWarning lets resolution proceed with a recorded caveat.
	SeverityWarning Severity = "warning"
)

// DefaultSeverity returns the severity a code carries unless overridden.
func (c Code) DefaultSeverity() Severity {
	switch c {
	case CodeOCRConfidenceLow, CodeInvalidClauseNumber:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Issue is a single validation finding. It implements error so registry and
// resolver APIs can return it through ordinary error plumbing.
type Issue struct {
	Code     Code      `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	ClauseID clause.ID `json:"clause_id,omitempty"`

	// DocumentID names the document the finding is scoped to, when any.
	DocumentID string `json:"document_id,omitempty"`

	// ChunkID names the chunk the finding is scoped to, when any.
	ChunkID string `json:"chunk_id,omitempty"`
}

// Error implements the error interface.
func (i *Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Errorf builds an error-severity issue.
func Errorf(code Code, format string, args ...any) *Issue {
	return &Issue{
		Code:     code,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-severity issue.
func Warnf(code Code, format string, args ...any) *Issue {
	return &Issue{
		Code:     code,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithClause scopes the issue to a clause and returns it for chaining.
func (i *Issue) WithClause(id clause.ID) *Issue {
	i.ClauseID = id
	return i
}

// WithDocument scopes the issue to a document and returns it for chaining.
func (i *Issue) WithDocument(id string) *Issue {
	i.DocumentID = id
	return i
}

// WithChunk scopes the issue to a chunk and returns it for chaining.
func (i *Issue) WithChunk(id string) *Issue {
	i.ChunkID = id
	return i
}

// AsIssue unwraps an error into an *Issue when one is in its chain.
func AsIssue(err error) (*Issue, bool) {
	var issue *Issue
	if errors.As(err, &issue) {
		return issue, true
	}
	return nil, false
}

// Result summarizes validation findings for display to an operator.
type Result struct {
	IsValid  bool         `json:"is_valid"`
	Errors   []*Issue     `json:"errors"`
	Warnings []*Issue     `json:"warnings"`
	Counts   map[Code]int `json:"counts"`
}

// NewResult returns an empty, valid result.
func NewResult() *Result {
	return &Result{
		IsValid: true,
		Counts:  make(map[Code]int),
	}
}

// Add records an issue, routing it by severity and updating counts.
func (r *Result) Add(issue *Issue) {
	if issue == nil {
		return
	}
	r.Counts[issue.Code]++
	if issue.Severity == SeverityError {
		r.Errors = append(r.Errors, issue)
		r.IsValid = false
		return
	}
	r.Warnings = append(r.Warnings, issue)
}

// Merge folds another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for _, issue := range other.Errors {
		r.Add(issue)
	}
	for _, issue := range other.Warnings {
		r.Add(issue)
	}
}
