// Package registry stores contract documents, their clause chunks, and the
// declared reference and override edges between them. Mutation produces fresh
// immutable snapshots; readers never observe a partially updated graph.
package registry

import (
	"time"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
)

// Group is one of the six canonical contract-structure categories. It doubles
// as a precedence signal during clause resolution.
type Group string

const (
	// GroupAgreement is the contract agreement.
	GroupAgreement Group = "A"

	// GroupAcceptance is the letter of acceptance.
	GroupAcceptance Group = "B"

	// GroupConditions is the conditions of contract (general conditions).
	GroupConditions Group = "C"

	// GroupAddendum covers addendums and particular conditions.
	GroupAddendum Group = "D"

	// GroupBOQ is the bills of quantities.
	GroupBOQ Group = "I"

	// GroupSchedule covers schedules and annexes.
	GroupSchedule Group = "N"
)

// Valid reports whether g is one of the six canonical groups.
func (g Group) Valid() bool {
	switch g {
	case GroupAgreement, GroupAcceptance, GroupConditions, GroupAddendum, GroupBOQ, GroupSchedule:
		return true
	}
	return false
}

// PrecedenceRank returns the group's rank in the default precedence order,
// highest first: Addendum, Agreement, Letter of Acceptance, General
// Conditions. BOQ and Schedules are independent of that order; for them ok is
// false and clause collisions against ranked groups stay unranked unless an
// explicit override says otherwise.
func (g Group) PrecedenceRank() (int, bool) {
	switch g {
	case GroupAddendum:
		return 4, true
	case GroupAgreement:
		return 3, true
	case GroupAcceptance:
		return 2, true
	case GroupConditions:
		return 1, true
	default:
		return 0, false
	}
}

// DocumentStatus tracks a document's lifecycle from the ingestion pipeline.
type DocumentStatus string

const (
	StatusActive     DocumentStatus = "active"
	StatusSuperseded DocumentStatus = "superseded"
)

// Document is one contract document. (Group, Sequence) is unique within a
// contract.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Group    Group          `json:"group"`
	Sequence int            `json:"sequence"`
	Status   DocumentStatus `json:"status"`
}

// DocumentChunk is one clause-bearing text fragment of a document. Chunks are
// immutable once created; re-ingestion mints a new chunk that supersedes the
// old one rather than editing it in place.
type DocumentChunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	ContractID  string    `json:"contract_id"`
	ClauseNumber string   `json:"clause_number"`
	CanonicalID clause.ID `json:"canonical_id"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Confidence  float64   `json:"confidence"`
	PageNumber  int       `json:"page_number,omitempty"`

	// SupersedesID names the chunk this one replaced on re-ingestion.
	SupersedesID string    `json:"supersedes_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReferenceType classifies a clause-to-clause edge.
type ReferenceType string

const (
	ReferenceMentions       ReferenceType = "mentions"
	ReferenceOverrides      ReferenceType = "overrides"
	ReferenceSupplements    ReferenceType = "supplements"
	ReferenceCrossReference ReferenceType = "cross_reference"
	ReferenceDefines        ReferenceType = "defines"
	ReferenceAmends         ReferenceType = "amends"
)

// Valid reports whether t is a known reference type.
func (t ReferenceType) Valid() bool {
	switch t {
	case ReferenceMentions, ReferenceOverrides, ReferenceSupplements,
		ReferenceCrossReference, ReferenceDefines, ReferenceAmends:
		return true
	}
	return false
}

// ClauseReference is a directed clause-to-clause edge, declared by a user or
// inferred by the external extraction layer.
type ClauseReference struct {
	SourceClause clause.ID     `json:"source_clause"`
	TargetClause clause.ID     `json:"target_clause"`
	Type         ReferenceType `json:"reference_type"`
}

// OverrideType classifies how widely an override edge applies.
type OverrideType string

const (
	// OverrideFull shadows the entire overridden document.
	OverrideFull OverrideType = "full"

	// OverridePartial shadows the clauses covered by the override scope.
	OverridePartial OverrideType = "partial"

	// OverrideClauseSpecific shadows exactly the listed clauses.
	OverrideClauseSpecific OverrideType = "clause_specific"
)

// Valid reports whether t is a known override type.
func (t OverrideType) Valid() bool {
	switch t {
	case OverrideFull, OverridePartial, OverrideClauseSpecific:
		return true
	}
	return false
}

// DocumentOverride is a declared precedence edge between two documents of the
// same contract. The induced graph must stay acyclic within any shared scope.
type DocumentOverride struct {
	OverridingDocumentID string       `json:"overriding_document"`
	OverriddenDocumentID string       `json:"overridden_document"`
	Type                 OverrideType `json:"override_type"`

	// AffectedClauses lists the canonical IDs a clause_specific override
	// shadows. Empty for full overrides.
	AffectedClauses []clause.ID `json:"affected_clauses,omitempty"`

	// Scope is the dotted clause prefix a partial override covers, e.g.
	// "14" covers "14", "14.1" and "14.1B".
	Scope string `json:"scope,omitempty"`
}

// Covers reports whether the override shadows the given clause ID.
func (o *DocumentOverride) Covers(id clause.ID) bool {
	switch o.Type {
	case OverrideFull:
		return true
	case OverridePartial:
		return scopeCovers(o.Scope, id)
	case OverrideClauseSpecific:
		for _, affected := range o.AffectedClauses {
			if affected == id {
				return true
			}
		}
	}
	return false
}

// scopeCovers reports whether a dotted-prefix scope covers a canonical ID.
func scopeCovers(scope string, id clause.ID) bool {
	if scope == "" {
		return false
	}
	s := string(clause.Normalize(scope))
	c := string(id)
	if c == s {
		return true
	}
	return len(c) > len(s) && c[:len(s)] == s && c[len(s)] == '.'
}

// ClauseScope returns the scope string of a clause: its leading dotted
// segment. "14.1" scopes to "14".
func ClauseScope(id clause.ID) string {
	s := string(id)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}
