package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

// DefaultMinConfidence is the OCR confidence below which chunk ingestion
// raises an OCR_CONFIDENCE_LOW warning.
const DefaultMinConfidence = 0.60

// Registry holds the mutable working state for one contract. All writes are
// serialized through an internal mutex, so concurrent ingests cannot race to
// claim the same (group, sequence) slot; reads go through Snapshot, which
// returns an immutable value.
type Registry struct {
	mu sync.Mutex

	contractID    string
	minConfidence float64

	documents map[string]*Document
	slots     map[slotKey]string

	chunks    []*DocumentChunk
	chunkKeys map[chunkKey]string
	latest    map[docClauseKey]*DocumentChunk

	overrides  []*DocumentOverride
	references []*ClauseReference

	now func() time.Time
}

type slotKey struct {
	group    Group
	sequence int
}

type chunkKey struct {
	documentID  string
	canonicalID clause.ID
	contentHash string
}

type docClauseKey struct {
	documentID  string
	canonicalID clause.ID
}

// Option configures a Registry.
type Option func(*Registry)

// WithMinConfidence overrides the OCR confidence warning threshold.
func WithMinConfidence(threshold float64) Option {
	return func(r *Registry) { r.minConfidence = threshold }
}

// New creates an empty registry for one contract.
func New(contractID string, opts ...Option) *Registry {
	r := &Registry{
		contractID:    contractID,
		minConfidence: DefaultMinConfidence,
		documents:     make(map[string]*Document),
		slots:         make(map[slotKey]string),
		chunkKeys:     make(map[chunkKey]string),
		latest:        make(map[docClauseKey]*DocumentChunk),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromSnapshot reconstructs a mutable registry from a stored snapshot, so a
// persisted contract can keep accepting documents and chunks. Chunks must be
// in creation order, which both Snapshot and the stores guarantee.
func FromSnapshot(snap *Snapshot, opts ...Option) *Registry {
	r := New(snap.ContractID, opts...)
	r.minConfidence = snap.MinConfidence

	for _, doc := range snap.Documents {
		stored := *doc
		r.documents[doc.ID] = &stored
		r.slots[slotKey{group: doc.Group, sequence: doc.Sequence}] = doc.ID
	}

	for _, chunk := range snap.Chunks {
		stored := *chunk
		r.chunks = append(r.chunks, &stored)
		r.chunkKeys[chunkKey{
			documentID:  chunk.DocumentID,
			canonicalID: chunk.CanonicalID,
			contentHash: chunk.ContentHash,
		}] = chunk.ID
		r.latest[docClauseKey{documentID: chunk.DocumentID, canonicalID: chunk.CanonicalID}] = &stored
	}

	for _, o := range snap.Overrides {
		stored := *o
		r.overrides = append(r.overrides, &stored)
	}
	for _, ref := range snap.References {
		stored := *ref
		r.references = append(r.references, &stored)
	}

	return r
}

// ContractID returns the contract this registry belongs to.
func (r *Registry) ContractID() string {
	return r.contractID
}

// AddDocument registers a document. It fails with
// NAMING_CONVENTION_VIOLATION when the (group, sequence) slot is already
// claimed by another document of this contract.
func (r *Registry) AddDocument(doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if !doc.Group.Valid() {
		return validate.Errorf(validate.CodeNamingConventionViolation,
			"unknown document group %q", doc.Group).WithDocument(doc.ID)
	}
	if doc.Sequence <= 0 {
		return validate.Errorf(validate.CodeNamingConventionViolation,
			"document sequence must be positive, got %d", doc.Sequence).WithDocument(doc.ID)
	}
	if _, exists := r.documents[doc.ID]; exists {
		return validate.Errorf(validate.CodeNamingConventionViolation,
			"document %s already registered", doc.ID).WithDocument(doc.ID)
	}

	slot := slotKey{group: doc.Group, sequence: doc.Sequence}
	if holder, taken := r.slots[slot]; taken {
		return validate.Errorf(validate.CodeNamingConventionViolation,
			"slot (%s, %d) already held by document %s", doc.Group, doc.Sequence, holder).
			WithDocument(doc.ID)
	}

	if doc.Status == "" {
		doc.Status = StatusActive
	}

	stored := doc
	r.documents[doc.ID] = &stored
	r.slots[slot] = doc.ID
	return nil
}

// ChunkInput carries the fields the ingestion pipeline supplies for one
// chunk. ID is optional; a UUID is minted when absent.
type ChunkInput struct {
	ID           string
	DocumentID   string
	ClauseNumber string
	Content      string
	Confidence   float64
	PageNumber   int
}

// AddChunk canonicalizes and stores a chunk. A chunk identical to an existing
// (document, clause, content hash) triple is rejected with DUPLICATE_CHUNK; a
// changed re-ingestion of the same clause supersedes the previous chunk. Low
// OCR confidence is returned as an OCR_CONFIDENCE_LOW warning, not a failure.
func (r *Registry) AddChunk(in ChunkInput) (*DocumentChunk, []*validate.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[in.DocumentID]; !ok {
		return nil, nil, validate.Errorf(validate.CodeUnresolvedReference,
			"chunk targets unknown document %s", in.DocumentID).WithDocument(in.DocumentID)
	}

	canonical := clause.Normalize(in.ClauseNumber)
	if canonical == "" {
		return nil, nil, (&validate.Issue{
			Code:     validate.CodeInvalidClauseNumber,
			Severity: validate.SeverityError,
			Message:  "clause number is empty after normalization",
		}).WithDocument(in.DocumentID)
	}

	hash := ContentHash(in.Content)
	key := chunkKey{documentID: in.DocumentID, canonicalID: canonical, contentHash: hash}
	if existing, dup := r.chunkKeys[key]; dup {
		return nil, nil, validate.Errorf(validate.CodeDuplicateChunk,
			"chunk for clause %s already ingested as %s", canonical, existing).
			WithClause(canonical).WithDocument(in.DocumentID)
	}

	chunk := &DocumentChunk{
		ID:           in.ID,
		DocumentID:   in.DocumentID,
		ContractID:   r.contractID,
		ClauseNumber: in.ClauseNumber,
		CanonicalID:  canonical,
		Content:      in.Content,
		ContentHash:  hash,
		Confidence:   in.Confidence,
		PageNumber:   in.PageNumber,
		CreatedAt:    r.now(),
	}
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}

	dck := docClauseKey{documentID: in.DocumentID, canonicalID: canonical}
	if prev, ok := r.latest[dck]; ok {
		chunk.SupersedesID = prev.ID
	}

	r.chunks = append(r.chunks, chunk)
	r.chunkKeys[key] = chunk.ID
	r.latest[dck] = chunk

	var warnings []*validate.Issue
	if chunk.Confidence < r.minConfidence {
		warnings = append(warnings, validate.Warnf(validate.CodeOCRConfidenceLow,
			"chunk confidence %.2f below threshold %.2f", chunk.Confidence, r.minConfidence).
			WithClause(canonical).WithDocument(in.DocumentID).WithChunk(chunk.ID))
	}

	return chunk, warnings, nil
}

// AddOverride declares a precedence edge between two documents. The edge is
// rejected with ADDENDUM_ORDER when it would close a cycle among overrides
// sharing its scope.
func (r *Registry) AddOverride(o DocumentOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !o.Type.Valid() {
		return validate.Errorf(validate.CodeAddendumOrder,
			"unknown override type %q", o.Type)
	}
	if _, ok := r.documents[o.OverridingDocumentID]; !ok {
		return validate.Errorf(validate.CodeUnresolvedReference,
			"override names unknown document %s", o.OverridingDocumentID).
			WithDocument(o.OverridingDocumentID)
	}
	if _, ok := r.documents[o.OverriddenDocumentID]; !ok {
		return validate.Errorf(validate.CodeUnresolvedReference,
			"override names unknown document %s", o.OverriddenDocumentID).
			WithDocument(o.OverriddenDocumentID)
	}
	if o.OverridingDocumentID == o.OverriddenDocumentID {
		return validate.Errorf(validate.CodeAddendumOrder,
			"document %s cannot override itself", o.OverridingDocumentID).
			WithDocument(o.OverridingDocumentID)
	}
	if o.Type == OverrideClauseSpecific && len(o.AffectedClauses) == 0 {
		return validate.Errorf(validate.CodeAddendumOrder,
			"clause_specific override from %s requires affected clauses", o.OverridingDocumentID)
	}

	if len(o.AffectedClauses) > 0 {
		normalized := make([]clause.ID, len(o.AffectedClauses))
		for i, affected := range o.AffectedClauses {
			normalized[i] = clause.Normalize(string(affected))
		}
		o.AffectedClauses = normalized
	}
	if o.Scope != "" {
		o.Scope = string(clause.Normalize(o.Scope))
	}

	if cyclePath := r.findCycle(&o); cyclePath != nil {
		return validate.Errorf(validate.CodeAddendumOrder,
			"override %s -> %s closes a cycle: %s",
			o.OverridingDocumentID, o.OverriddenDocumentID, joinPath(cyclePath)).
			WithDocument(o.OverridingDocumentID)
	}

	stored := o
	r.overrides = append(r.overrides, &stored)
	return nil
}

// RetractOverride removes a previously declared override edge and returns the
// canonical clause IDs whose resolution it may have affected, so the caller
// can re-resolve them.
func (r *Registry) RetractOverride(overriding, overridden string, typ OverrideType) ([]clause.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, o := range r.overrides {
		if o.OverridingDocumentID == overriding && o.OverriddenDocumentID == overridden && o.Type == typ {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	removed := r.overrides[idx]
	r.overrides = append(r.overrides[:idx], r.overrides[idx+1:]...)

	affected := make(map[clause.ID]struct{})
	for _, chunk := range r.chunks {
		if chunk.DocumentID != overriding && chunk.DocumentID != overridden {
			continue
		}
		if removed.Covers(chunk.CanonicalID) {
			affected[chunk.CanonicalID] = struct{}{}
		}
	}

	ids := make([]clause.ID, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	clause.Sort(ids)
	return ids, true
}

// AddReference declares a clause-to-clause edge. The target must resolve to a
// known canonical ID or one of its variants.
func (r *Registry) AddReference(ref ClauseReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !ref.Type.Valid() {
		return validate.Errorf(validate.CodeUnresolvedReference,
			"unknown reference type %q", ref.Type)
	}

	ref.SourceClause = clause.Normalize(string(ref.SourceClause))
	ref.TargetClause = clause.Normalize(string(ref.TargetClause))
	if ref.SourceClause == "" || ref.TargetClause == "" {
		return validate.Errorf(validate.CodeInvalidClauseNumber,
			"reference endpoints must be non-empty clause numbers")
	}

	if !r.clauseKnownLocked(ref.TargetClause) {
		return validate.Errorf(validate.CodeUnresolvedReference,
			"reference target %s matches no ingested clause", ref.TargetClause).
			WithClause(ref.TargetClause)
	}

	stored := ref
	r.references = append(r.references, &stored)
	return nil
}

// clauseKnownLocked reports whether id, or any of its variants, names an
// ingested clause. Callers must hold r.mu.
func (r *Registry) clauseKnownLocked(id clause.ID) bool {
	known := make(map[clause.ID]struct{}, len(r.latest))
	for key := range r.latest {
		known[key.canonicalID] = struct{}{}
	}
	if _, ok := known[id]; ok {
		return true
	}
	for variant := range clause.Variants(string(id)) {
		if _, ok := known[variant]; ok {
			return true
		}
	}
	return false
}

// ContentHash returns the hex digest used for chunk dedup.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
