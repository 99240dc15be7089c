// Package resolve computes the effective text of a clause across the document
// stack of a contract: which chunk governs when general conditions, addendums,
// and particular conditions all carry the same clause number.
package resolve

import (
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/validate"
)

// Tier names the rule that decided a contest between two candidate chunks,
// highest priority first.
type Tier string

const (
	TierClauseSpecific  Tier = "clause_specific_override"
	TierPartialOverride Tier = "partial_override"
	TierFullOverride    Tier = "full_override"
	TierGroupPrecedence Tier = "group_precedence"
	TierSequence        Tier = "sequence"
)

// Superseded records one losing chunk and the tier that defeated it.
type Superseded struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Tier       Tier   `json:"tier"`
}

// EffectiveClause is the resolution outcome for one canonical clause ID: the
// governing chunk plus an auditable account of every chunk it displaced.
type EffectiveClause struct {
	CanonicalID    clause.ID `json:"canonical_id"`
	WinningChunkID string    `json:"winning_chunk_id"`
	DocumentID     string    `json:"document_id"`
	Content        string    `json:"content"`

	// IsOverridden reports whether other chunks carried this clause number
	// and lost; OverriddenBy lists them with the deciding tier.
	IsOverridden bool         `json:"is_overridden"`
	OverriddenBy []Superseded `json:"overridden_by,omitempty"`

	// Warnings carries non-fatal caveats, e.g. that the ID only matched
	// through a variant spelling.
	Warnings []*validate.Issue `json:"warnings,omitempty"`
}

// Resolve returns the effective clause for id against a snapshot. When no
// chunk matches the ID exactly it falls back to variant spellings and flags
// the result with an INVALID_CLAUSE_NUMBER warning. It fails with
// UNRESOLVED_REFERENCE when nothing matches at all, and with
// MISSING_PC_OVERRIDE when two candidates stay tied through every ranking
// tier.
//
// Resolution is deterministic: identical snapshots and IDs yield identical
// results.
func Resolve(id clause.ID, snap *registry.Snapshot) (*EffectiveClause, error) {
	canonical := clause.Normalize(string(id))
	if canonical == "" {
		return nil, validate.Errorf(validate.CodeInvalidClauseNumber,
			"clause ID %q is empty after normalization", id)
	}

	candidates, fuzzy := snap.Candidates(canonical)
	if len(candidates) == 0 {
		return nil, validate.Errorf(validate.CodeUnresolvedReference,
			"no chunk matches clause %s or any variant", canonical).WithClause(canonical)
	}

	var warnings []*validate.Issue
	if fuzzy {
		warnings = append(warnings, validate.Warnf(validate.CodeInvalidClauseNumber,
			"clause %s matched only through a variant spelling", canonical).WithClause(canonical))
	}

	winner, losers, err := rank(canonical, candidates, snap)
	if err != nil {
		return nil, err
	}

	return &EffectiveClause{
		CanonicalID:    winner.CanonicalID,
		WinningChunkID: winner.ID,
		DocumentID:     winner.DocumentID,
		Content:        winner.Content,
		IsOverridden:   len(losers) > 0,
		OverriddenBy:   losers,
		Warnings:       warnings,
	}, nil
}

// rank runs the full pairwise tournament. The winner must defeat every other
// candidate outright; any undecidable pair involving the front-runner makes
// the clause ambiguous.
func rank(id clause.ID, candidates []*registry.DocumentChunk, snap *registry.Snapshot) (*registry.DocumentChunk, []Superseded, error) {
	if len(candidates) == 1 {
		return candidates[0], nil, nil
	}

	// Candidates arrive in deterministic order from the snapshot index, so
	// the scan below is stable.
	for _, contender := range candidates {
		losers := make([]Superseded, 0, len(candidates)-1)
		beatsAll := true
		for _, other := range candidates {
			if other == contender {
				continue
			}
			winner, tier := duel(id, contender, other, snap)
			if winner != contender {
				beatsAll = false
				break
			}
			losers = append(losers, Superseded{
				ChunkID:    other.ID,
				DocumentID: other.DocumentID,
				Tier:       tier,
			})
		}
		if beatsAll {
			return contender, losers, nil
		}
	}

	return nil, nil, validate.Errorf(validate.CodeMissingPCOverride,
		"clause %s is carried by %d documents with no override or precedence deciding between them",
		id, len(candidates)).WithClause(id)
}

// duel decides one pairwise contest. It returns the winning chunk and the tier
// that decided, or nil when every tier leaves the pair tied.
func duel(id clause.ID, a, b *registry.DocumentChunk, snap *registry.Snapshot) (*registry.DocumentChunk, Tier) {
	for _, typ := range []registry.OverrideType{
		registry.OverrideClauseSpecific,
		registry.OverridePartial,
		registry.OverrideFull,
	} {
		if overrideWins(id, a, b, typ, snap) {
			return a, tierFor(typ)
		}
		if overrideWins(id, b, a, typ, snap) {
			return b, tierFor(typ)
		}
	}

	docA, okA := snap.DocumentByID(a.DocumentID)
	docB, okB := snap.DocumentByID(b.DocumentID)
	if !okA || !okB {
		return nil, ""
	}

	if docA.Group != docB.Group {
		rankA, rankedA := docA.Group.PrecedenceRank()
		rankB, rankedB := docB.Group.PrecedenceRank()
		// Independent groups (bills of quantities, schedules) are not
		// ranked against anything without an explicit override.
		if !rankedA || !rankedB || rankA == rankB {
			return nil, ""
		}
		if rankA > rankB {
			return a, TierGroupPrecedence
		}
		return b, TierGroupPrecedence
	}

	if docA.Sequence != docB.Sequence {
		if docA.Sequence > docB.Sequence {
			return a, TierSequence
		}
		return b, TierSequence
	}

	return nil, ""
}

// overrideWins reports whether a declared override of the given type lets
// winner's document shadow loser's document for this clause.
func overrideWins(id clause.ID, winner, loser *registry.DocumentChunk, typ registry.OverrideType, snap *registry.Snapshot) bool {
	for _, o := range snap.OverridesBetween(winner.DocumentID, loser.DocumentID) {
		if o.Type == typ && o.Covers(id) {
			return true
		}
	}
	return false
}

func tierFor(typ registry.OverrideType) Tier {
	switch typ {
	case registry.OverrideClauseSpecific:
		return TierClauseSpecific
	case registry.OverridePartial:
		return TierPartialOverride
	default:
		return TierFullOverride
	}
}
