package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New("CT-001")
	require.NoError(t, r.AddDocument(Document{ID: "GC", Group: GroupConditions, Sequence: 1}))
	require.NoError(t, r.AddDocument(Document{ID: "AD1", Group: GroupAddendum, Sequence: 1}))
	require.NoError(t, r.AddDocument(Document{ID: "AD2", Group: GroupAddendum, Sequence: 2}))
	return r
}

func TestAddDocument_SlotCollision(t *testing.T) {
	r := newTestRegistry(t)

	err := r.AddDocument(Document{ID: "GC2", Group: GroupConditions, Sequence: 1})
	require.Error(t, err)
	issue, ok := validate.AsIssue(err)
	require.True(t, ok)
	assert.Equal(t, validate.CodeNamingConventionViolation, issue.Code)
}

func TestAddDocument_Invalid(t *testing.T) {
	r := New("CT-001")

	err := r.AddDocument(Document{ID: "X", Group: "Z", Sequence: 1})
	require.Error(t, err)

	err = r.AddDocument(Document{ID: "Y", Group: GroupConditions, Sequence: 0})
	require.Error(t, err)
}

func TestAddChunk(t *testing.T) {
	r := newTestRegistry(t)

	chunk, warnings, err := r.AddChunk(ChunkInput{
		DocumentID:   "GC",
		ClauseNumber: "6 A.2 (b)",
		Content:      "The Contractor shall...",
		Confidence:   0.95,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, clause.ID("6A.2B"), chunk.CanonicalID)
	assert.NotEmpty(t, chunk.ID)
	assert.Equal(t, "CT-001", chunk.ContractID)
}

func TestAddChunk_Duplicate(t *testing.T) {
	r := newTestRegistry(t)

	in := ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "text", Confidence: 0.9}
	_, _, err := r.AddChunk(in)
	require.NoError(t, err)

	_, _, err = r.AddChunk(in)
	require.Error(t, err)
	issue, ok := validate.AsIssue(err)
	require.True(t, ok)
	assert.Equal(t, validate.CodeDuplicateChunk, issue.Code)
}

func TestAddChunk_ReingestSupersedes(t *testing.T) {
	r := newTestRegistry(t)

	first, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "old text", Confidence: 0.9})
	require.NoError(t, err)

	second, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "corrected text", Confidence: 0.9})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.SupersedesID)

	snap := r.Snapshot()
	candidates, fuzzy := snap.Candidates("14.1")
	require.False(t, fuzzy)
	require.Len(t, candidates, 1, "superseded chunk must not surface")
	assert.Equal(t, second.ID, candidates[0].ID)
}

func TestAddChunk_LowConfidenceWarning(t *testing.T) {
	r := newTestRegistry(t)

	_, warnings, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "2.1", Content: "blurred scan", Confidence: 0.30})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, validate.CodeOCRConfidenceLow, warnings[0].Code)
	assert.Equal(t, validate.SeverityWarning, warnings[0].Severity)
}

func TestAddChunk_UnknownDocument(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.AddChunk(ChunkInput{DocumentID: "NOPE", ClauseNumber: "1", Content: "x", Confidence: 1})
	require.Error(t, err)
	issue, _ := validate.AsIssue(err)
	assert.Equal(t, validate.CodeUnresolvedReference, issue.Code)
}

func TestAddOverride_CycleRejected(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddDocument(Document{ID: "AD3", Group: GroupAddendum, Sequence: 3}))

	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD1", OverriddenDocumentID: "AD2", Type: OverrideFull,
	}))
	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD2", OverriddenDocumentID: "AD3", Type: OverrideFull,
	}))

	err := r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD3", OverriddenDocumentID: "AD1", Type: OverrideFull,
	})
	require.Error(t, err)
	issue, ok := validate.AsIssue(err)
	require.True(t, ok)
	assert.Equal(t, validate.CodeAddendumOrder, issue.Code)
}

func TestAddOverride_DisjointScopesDoNotConflict(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD1", OverriddenDocumentID: "AD2",
		Type: OverrideClauseSpecific, AffectedClauses: []clause.ID{"5"},
	}))

	// Reverse direction on a different clause is legitimate.
	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD2", OverriddenDocumentID: "AD1",
		Type: OverrideClauseSpecific, AffectedClauses: []clause.ID{"7"},
	}))

	// Same clause back the other way closes a two-node cycle.
	err := r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD2", OverriddenDocumentID: "AD1",
		Type: OverrideClauseSpecific, AffectedClauses: []clause.ID{"5"},
	})
	require.Error(t, err)
}

func TestAddOverride_SelfAndUnknown(t *testing.T) {
	r := newTestRegistry(t)

	err := r.AddOverride(DocumentOverride{OverridingDocumentID: "GC", OverriddenDocumentID: "GC", Type: OverrideFull})
	require.Error(t, err)

	err = r.AddOverride(DocumentOverride{OverridingDocumentID: "GC", OverriddenDocumentID: "NOPE", Type: OverrideFull})
	require.Error(t, err)

	err = r.AddOverride(DocumentOverride{OverridingDocumentID: "AD1", OverriddenDocumentID: "GC", Type: OverrideClauseSpecific})
	require.Error(t, err, "clause_specific without affected clauses")
}

func TestRetractOverride(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "general", Confidence: 0.9})
	require.NoError(t, err)
	_, _, err = r.AddChunk(ChunkInput{DocumentID: "AD1", ClauseNumber: "14.1", Content: "amended", Confidence: 0.9})
	require.NoError(t, err)

	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD1", OverriddenDocumentID: "GC", Type: OverrideFull,
	}))

	affected, ok := r.RetractOverride("AD1", "GC", OverrideFull)
	require.True(t, ok)
	assert.Equal(t, []clause.ID{"14.1"}, affected)

	_, ok = r.RetractOverride("AD1", "GC", OverrideFull)
	assert.False(t, ok)
}

func TestAddReference(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "6A.2", Content: "x", Confidence: 0.9})
	require.NoError(t, err)
	_, _, err = r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "2.1", Content: "y", Confidence: 0.9})
	require.NoError(t, err)

	require.NoError(t, r.AddReference(ClauseReference{
		SourceClause: "2.1", TargetClause: "6 A.2", Type: ReferenceCrossReference,
	}))

	err = r.AddReference(ClauseReference{SourceClause: "2.1", TargetClause: "99.9", Type: ReferenceMentions})
	require.Error(t, err)
	issue, _ := validate.AsIssue(err)
	assert.Equal(t, validate.CodeUnresolvedReference, issue.Code)

	err = r.AddReference(ClauseReference{SourceClause: "2.1", TargetClause: "6A.2", Type: "bogus"})
	require.Error(t, err)
}

func TestSnapshot_Isolation(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "1", Content: "a", Confidence: 0.9})
	require.NoError(t, err)

	snap := r.Snapshot()
	require.Len(t, snap.Chunks, 1)

	// Later writes must not leak into an already-taken snapshot.
	_, _, err = r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "2", Content: "b", Confidence: 0.9})
	require.NoError(t, err)
	assert.Len(t, snap.Chunks, 1)
	assert.Len(t, r.Snapshot().Chunks, 2)
}

func TestSnapshot_CandidatesFuzzy(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "6A", Content: "x", Confidence: 0.9})
	require.NoError(t, err)
	snap := r.Snapshot()

	chunks, fuzzy := snap.Candidates("6A")
	require.Len(t, chunks, 1)
	assert.False(t, fuzzy)

	chunks, fuzzy = snap.Candidates("6.A")
	require.Len(t, chunks, 1)
	assert.True(t, fuzzy)

	chunks, fuzzy = snap.Candidates("6")
	require.Len(t, chunks, 1)
	assert.True(t, fuzzy)

	chunks, fuzzy = snap.Candidates("99.9")
	assert.Empty(t, chunks)
	assert.False(t, fuzzy)
}

func TestSnapshot_Validate(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "3.1", Content: "ok", Confidence: 0.9})
	require.NoError(t, err)
	_, warnings, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "3.2", Content: "blurry", Confidence: 0.2})
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	result := r.Snapshot().Validate()
	assert.True(t, result.IsValid, "warnings only")
	assert.Equal(t, 1, result.Counts[validate.CodeOCRConfidenceLow])
}

func TestFromSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "old", Confidence: 0.9})
	require.NoError(t, err)
	second, _, err := r.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "new", Confidence: 0.9})
	require.NoError(t, err)

	restored := FromSnapshot(r.Snapshot())

	// The slot map is rebuilt, so collisions are still caught.
	err = restored.AddDocument(Document{ID: "GC2", Group: GroupConditions, Sequence: 1})
	require.Error(t, err)

	// Supersession state carries over: re-ingesting supersedes the latest
	// chunk, and the old hash is still deduplicated.
	_, _, err = restored.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "new", Confidence: 0.9})
	require.Error(t, err)
	third, _, err := restored.AddChunk(ChunkInput{DocumentID: "GC", ClauseNumber: "14.1", Content: "newer", Confidence: 0.9})
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.SupersedesID)
}

func TestClauseScope(t *testing.T) {
	assert.Equal(t, "14", ClauseScope("14.1"))
	assert.Equal(t, "6A", ClauseScope("6A.2B"))
	assert.Equal(t, "2", ClauseScope("2"))
}

func TestOverrideCovers(t *testing.T) {
	full := &DocumentOverride{Type: OverrideFull}
	assert.True(t, full.Covers("1"))

	partial := &DocumentOverride{Type: OverridePartial, Scope: "14"}
	assert.True(t, partial.Covers("14"))
	assert.True(t, partial.Covers("14.1"))
	assert.False(t, partial.Covers("141.1"))
	assert.False(t, partial.Covers("2"))

	specific := &DocumentOverride{Type: OverrideClauseSpecific, AffectedClauses: []clause.ID{"6A.2"}}
	assert.True(t, specific.Covers("6A.2"))
	assert.False(t, specific.Covers("6A"))
}

func TestAddOverride_InputSliceUnchanged(t *testing.T) {
	r := newTestRegistry(t)

	affected := []clause.ID{"6 a.2", "14.1 (b)"}
	require.NoError(t, r.AddOverride(DocumentOverride{
		OverridingDocumentID: "AD1",
		OverriddenDocumentID: "GC",
		Type:                 OverrideClauseSpecific,
		AffectedClauses:      affected,
	}))

	// The caller's slice keeps its raw spellings; only the stored edge is
	// canonicalized.
	assert.Equal(t, []clause.ID{"6 a.2", "14.1 (b)"}, affected)

	snap := r.Snapshot()
	require.Len(t, snap.Overrides, 1)
	assert.Equal(t, []clause.ID{"6A.2", "14.1B"}, snap.Overrides[0].AffectedClauses)
}
