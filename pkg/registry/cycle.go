package registry

import (
	"sort"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
)

// findCycle checks whether adding candidate to the override graph would close
// a cycle. Callers must hold r.mu.
func (r *Registry) findCycle(candidate *DocumentOverride) []string {
	ids := make([]string, 0, len(r.documents))
	for id := range r.documents {
		ids = append(ids, id)
	}
	return detectCycle(ids, r.overrides, candidate)
}

// detectCycle reports the document path of the cycle that candidate would
// close against the existing edges, or nil. Only edges sharing an affected
// scope with the candidate participate: an addendum overriding clause 5 and a
// counter-override of clause 7 do not conflict.
func detectCycle(documentIDs []string, existing []*DocumentOverride, candidate *DocumentOverride) []string {
	// Arena of document nodes with integer indices.
	ids := append([]string(nil), documentIDs...)
	sort.Strings(ids)

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	adjacency := make([][]int, len(ids))
	addEdge := func(o *DocumentOverride) {
		from, to := index[o.OverridingDocumentID], index[o.OverriddenDocumentID]
		adjacency[from] = append(adjacency[from], to)
	}
	for _, o := range existing {
		if scopesOverlap(o, candidate) {
			addEdge(o)
		}
	}
	addEdge(candidate)

	// Iterative DFS from the candidate's source with an explicit stack and
	// in-progress marking; revisiting an in-progress node closes a cycle.
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]int, len(ids))
	parent := make([]int, len(ids))
	for i := range parent {
		parent[i] = -1
	}

	start := index[candidate.OverridingDocumentID]
	type frame struct {
		node int
		next int
	}
	stack := []frame{{node: start}}
	state[start] = inProgress

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(adjacency[top.node]) {
			state[top.node] = done
			stack = stack[:len(stack)-1]
			continue
		}

		child := adjacency[top.node][top.next]
		top.next++

		switch state[child] {
		case inProgress:
			// Walk parents back from the current node to the repeated one.
			path := []string{ids[child]}
			for n := top.node; n != -1 && n != child; n = parent[n] {
				path = append(path, ids[n])
			}
			path = append(path, ids[child])
			reverse(path)
			return path
		case unvisited:
			state[child] = inProgress
			parent[child] = top.node
			stack = append(stack, frame{node: child})
		}
	}

	return nil
}

// scopesOverlap reports whether two override edges belong to the same
// cycle-detection universe. Only edges of the same type can form an
// unresolvable cycle: a full override opposed by a clause-specific one is
// legitimate, since the narrower edge wins for its clauses and the broad edge
// everywhere else.
func scopesOverlap(a, b *DocumentOverride) bool {
	if a.Type != b.Type {
		return false
	}

	switch a.Type {
	case OverrideFull:
		return true
	case OverridePartial:
		return scopeCovers(a.Scope, clause.ID(b.Scope)) ||
			scopeCovers(b.Scope, clause.ID(a.Scope))
	default:
		for _, ca := range a.AffectedClauses {
			for _, cb := range b.AffectedClauses {
				if ca == cb {
					return true
				}
			}
		}
		return false
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
