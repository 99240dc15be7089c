package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeverity(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeDuplicateClause, SeverityError},
		{CodeDuplicateChunk, SeverityError},
		{CodeUnresolvedReference, SeverityError},
		{CodeAddendumOrder, SeverityError},
		{CodeMissingPCOverride, SeverityError},
		{CodeOCRConfidenceLow, SeverityWarning},
		{CodeInvalidClauseNumber, SeverityWarning},
		{CodeTableExtractionFailed, SeverityError},
		{CodeNamingConventionViolation, SeverityError},
	}

	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.code.DefaultSeverity())
		})
	}
}

func TestIssue_Error(t *testing.T) {
	issue := Errorf(CodeAddendumOrder, "override %s -> %s closes a cycle", "DOC-3", "DOC-1")
	assert.Equal(t, "ADDENDUM_ORDER: override DOC-3 -> DOC-1 closes a cycle", issue.Error())
}

func TestAsIssue(t *testing.T) {
	issue := Errorf(CodeDuplicateChunk, "already ingested").WithDocument("DOC-1")
	wrapped := fmt.Errorf("add chunk: %w", issue)

	got, ok := AsIssue(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicateChunk, got.Code)
	assert.Equal(t, "DOC-1", got.DocumentID)

	_, ok = AsIssue(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestResult_AddAndMerge(t *testing.T) {
	r := NewResult()
	assert.True(t, r.IsValid)

	r.Add(Warnf(CodeOCRConfidenceLow, "page 3 at 0.41").WithClause("14.1"))
	assert.True(t, r.IsValid, "warnings alone keep the result valid")
	require.Len(t, r.Warnings, 1)

	r.Add(Errorf(CodeMissingPCOverride, "tie between DOC-1 and DOC-2").WithClause("14.1"))
	assert.False(t, r.IsValid)
	require.Len(t, r.Errors, 1)

	other := NewResult()
	other.Add(Warnf(CodeInvalidClauseNumber, "matched via variant"))
	r.Merge(other)

	assert.Equal(t, 1, r.Counts[CodeOCRConfidenceLow])
	assert.Equal(t, 1, r.Counts[CodeMissingPCOverride])
	assert.Equal(t, 1, r.Counts[CodeInvalidClauseNumber])
	assert.Len(t, r.Warnings, 2)
}

func TestResult_Render(t *testing.T) {
	r := NewResult()
	r.Add(Errorf(CodeDuplicateClause, "clause 2.1 defined twice").WithClause("2.1").WithDocument("DOC-1"))
	r.Add(Warnf(CodeOCRConfidenceLow, "low confidence"))

	text := r.String()
	assert.Contains(t, text, "Status:   FAIL")
	assert.Contains(t, text, "DUPLICATE_CLAUSE")
	assert.Contains(t, text, "clause 2.1")

	md := r.RenderMarkdown()
	assert.Contains(t, md, "**Status: FAIL**")
	assert.Contains(t, md, "`DUPLICATE_CLAUSE` | 1")
}
