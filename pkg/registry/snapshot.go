package registry

import (
	"sort"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

// Snapshot is an immutable view of one contract's documents, chunks, and
// edges. Resolution and linking operate on snapshots only, so they can run
// concurrently with further ingestion.
type Snapshot struct {
	ContractID string              `json:"contract_id"`
	Documents  []*Document         `json:"documents"`
	Chunks     []*DocumentChunk    `json:"chunks"`
	Overrides  []*DocumentOverride `json:"overrides"`
	References []*ClauseReference  `json:"references"`

	// MinConfidence is the OCR threshold the snapshot was taken under.
	MinConfidence float64 `json:"min_confidence"`

	docsByID       map[string]*Document
	chunksByClause map[clause.ID][]*DocumentChunk
	variantIndex   map[clause.ID][]*DocumentChunk
	supersededIDs  map[string]struct{}
}

// Snapshot returns an immutable copy of the registry's current state.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &Snapshot{
		ContractID:    r.contractID,
		Documents:     make([]*Document, 0, len(r.documents)),
		Chunks:        append([]*DocumentChunk(nil), r.chunks...),
		Overrides:     append([]*DocumentOverride(nil), r.overrides...),
		References:    append([]*ClauseReference(nil), r.references...),
		MinConfidence: r.minConfidence,
	}
	for _, doc := range r.documents {
		snap.Documents = append(snap.Documents, doc)
	}
	sort.Slice(snap.Documents, func(i, j int) bool {
		a, b := snap.Documents[i], snap.Documents[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Sequence < b.Sequence
	})

	snap.buildIndexes()
	return snap
}

// Rebuild reconstructs the snapshot's internal lookup indexes. Call it after
// populating the exported fields directly, e.g. when loading from a store.
func (s *Snapshot) Rebuild() {
	s.buildIndexes()
}

func (s *Snapshot) buildIndexes() {
	s.docsByID = make(map[string]*Document, len(s.Documents))
	for _, doc := range s.Documents {
		s.docsByID[doc.ID] = doc
	}

	s.supersededIDs = make(map[string]struct{})
	for _, chunk := range s.Chunks {
		if chunk.SupersedesID != "" {
			s.supersededIDs[chunk.SupersedesID] = struct{}{}
		}
	}

	s.chunksByClause = make(map[clause.ID][]*DocumentChunk)
	s.variantIndex = make(map[clause.ID][]*DocumentChunk)
	for _, chunk := range s.Chunks {
		if _, gone := s.supersededIDs[chunk.ID]; gone {
			continue
		}
		s.chunksByClause[chunk.CanonicalID] = append(s.chunksByClause[chunk.CanonicalID], chunk)
		for variant := range clause.Variants(string(chunk.CanonicalID)) {
			if variant == chunk.CanonicalID {
				continue
			}
			s.variantIndex[variant] = append(s.variantIndex[variant], chunk)
		}
	}
	for _, chunks := range s.chunksByClause {
		sortChunks(chunks)
	}
	for _, chunks := range s.variantIndex {
		sortChunks(chunks)
	}
}

func sortChunks(chunks []*DocumentChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ID < chunks[j].ID
	})
}

// DocumentByID looks up a document.
func (s *Snapshot) DocumentByID(id string) (*Document, bool) {
	doc, ok := s.docsByID[id]
	return doc, ok
}

// CanonicalIDs returns every live canonical clause ID in natural order.
func (s *Snapshot) CanonicalIDs() []clause.ID {
	ids := make([]clause.ID, 0, len(s.chunksByClause))
	for id := range s.chunksByClause {
		ids = append(ids, id)
	}
	clause.Sort(ids)
	return ids
}

// KnownIDSet returns the live canonical IDs as a set, the shape the linker
// consumes.
func (s *Snapshot) KnownIDSet() map[clause.ID]struct{} {
	set := make(map[clause.ID]struct{}, len(s.chunksByClause))
	for id := range s.chunksByClause {
		set[id] = struct{}{}
	}
	return set
}

// Candidates returns the live chunks matching a canonical ID. When no exact
// match exists it falls back to variant lookup; fuzzy is true in that case so
// the caller can record an INVALID_CLAUSE_NUMBER caveat.
func (s *Snapshot) Candidates(id clause.ID) (chunks []*DocumentChunk, fuzzy bool) {
	if exact := s.chunksByClause[id]; len(exact) > 0 {
		return exact, false
	}

	seen := make(map[string]struct{})
	collect := func(found []*DocumentChunk) {
		for _, chunk := range found {
			if _, dup := seen[chunk.ID]; dup {
				continue
			}
			seen[chunk.ID] = struct{}{}
			chunks = append(chunks, chunk)
		}
	}

	// Chunks whose canonical ID is a variant spelling of the query.
	for variant := range clause.Variants(string(id)) {
		collect(s.chunksByClause[variant])
	}
	// Chunks one of whose variants is the query.
	collect(s.variantIndex[id])

	sortChunks(chunks)
	return chunks, len(chunks) > 0
}

// OverridesBetween returns the declared edges where overriding shadows
// overridden, in declaration order.
func (s *Snapshot) OverridesBetween(overriding, overridden string) []*DocumentOverride {
	var edges []*DocumentOverride
	for _, o := range s.Overrides {
		if o.OverridingDocumentID == overriding && o.OverriddenDocumentID == overridden {
			edges = append(edges, o)
		}
	}
	return edges
}

// Validate runs the snapshot-wide consistency checks: override acyclicity,
// duplicate clause detection, dangling references, and OCR confidence.
func (s *Snapshot) Validate() *validate.Result {
	result := validate.NewResult()

	docIDs := make([]string, 0, len(s.Documents))
	for _, doc := range s.Documents {
		docIDs = append(docIDs, doc.ID)
	}

	// Replay edges incrementally; the edge that closes a cycle is reported.
	// Edges naming unknown documents are excluded from the replay, since
	// they have no node in the document arena.
	var replayed []*DocumentOverride
	for _, o := range s.Overrides {
		_, knownA := s.docsByID[o.OverridingDocumentID]
		_, knownB := s.docsByID[o.OverriddenDocumentID]
		if !knownA {
			result.Add(validate.Errorf(validate.CodeUnresolvedReference,
				"override names unknown document %s", o.OverridingDocumentID))
		}
		if !knownB {
			result.Add(validate.Errorf(validate.CodeUnresolvedReference,
				"override names unknown document %s", o.OverriddenDocumentID))
		}
		if !knownA || !knownB {
			continue
		}
		if path := detectCycle(docIDs, replayed, o); path != nil {
			result.Add(validate.Errorf(validate.CodeAddendumOrder,
				"override cycle: %s", joinPath(path)).WithDocument(o.OverridingDocumentID))
		}
		replayed = append(replayed, o)
	}

	// A clause appearing twice in one document, with neither chunk
	// superseding the other, has no single authoritative text.
	type docClause struct {
		doc string
		id  clause.ID
	}
	perDoc := make(map[docClause]int)
	for _, chunk := range s.Chunks {
		if _, gone := s.supersededIDs[chunk.ID]; gone {
			continue
		}
		key := docClause{doc: chunk.DocumentID, id: chunk.CanonicalID}
		perDoc[key]++
		if perDoc[key] == 2 {
			result.Add(validate.Errorf(validate.CodeDuplicateClause,
				"clause %s has multiple live chunks in document %s", chunk.CanonicalID, chunk.DocumentID).
				WithClause(chunk.CanonicalID).WithDocument(chunk.DocumentID))
		}

		if chunk.Confidence < s.MinConfidence {
			result.Add(validate.Warnf(validate.CodeOCRConfidenceLow,
				"chunk %s confidence %.2f below threshold %.2f", chunk.ID, chunk.Confidence, s.MinConfidence).
				WithClause(chunk.CanonicalID).WithDocument(chunk.DocumentID).WithChunk(chunk.ID))
		}
	}

	for _, ref := range s.References {
		if _, fuzzy := s.Candidates(ref.TargetClause); !s.hasClause(ref.TargetClause) && !fuzzy {
			result.Add(validate.Errorf(validate.CodeUnresolvedReference,
				"reference %s -> %s targets no ingested clause", ref.SourceClause, ref.TargetClause).
				WithClause(ref.TargetClause))
		}
	}

	return result
}

func (s *Snapshot) hasClause(id clause.ID) bool {
	_, ok := s.chunksByClause[id]
	return ok
}
