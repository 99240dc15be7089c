// Package clause provides canonical clause-number identity for construction
// contract documents: normalization of raw clause text into canonical IDs,
// enumerated fuzzy-matching variants, and a natural-order comparator.
package clause

import (
	"regexp"
	"sort"
	"strings"
)

// ID is a canonical clause identifier: uppercase, free of whitespace,
// parentheses and brackets. Two IDs are equal iff their dotted segment
// sequences are equal.
type ID string

// trailingLetterPattern matches canonical IDs of digit/dot segments ending in
// exactly one letter, e.g. "6A" or "2.3A".
var trailingLetterPattern = regexp.MustCompile(`^\d+(\.\d+)*[A-Za-z]$`)

// Normalize reduces raw clause-number text to its canonical ID. It is a pure,
// total function: empty or whitespace-only input yields the empty ID.
//
// Processing order: trim, remove all whitespace, drop parentheses and brackets
// while keeping their enclosed alphanumerics, uppercase.
//
//	Normalize("6 A.2 (b)") == "6A.2B"
//	Normalize("1.6 (b)")   == "1.6B"
func Normalize(raw string) ID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '(', ')', '[', ']':
			continue
		default:
			b.WriteRune(r)
		}
	}

	return ID(strings.ToUpper(b.String()))
}

// VariantSet holds the canonical ID plus alternate spellings used for fuzzy
// lookup when an exact canonical match fails. Variants are a secondary index;
// they never replace the canonical ID as the primary key.
type VariantSet map[ID]struct{}

// Contains reports whether id is in the set.
func (v VariantSet) Contains(id ID) bool {
	_, ok := v[id]
	return ok
}

// List returns the variants in sorted order for deterministic iteration.
func (v VariantSet) List() []ID {
	ids := make([]ID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Variants enumerates the closed set of alternate spellings for a raw clause
// number: the canonical form, a lower-case copy, a numeric-only form with
// trailing letters stripped from the final segment ("6A" → "6"), and, for IDs
// whose final segment carries a single letter suffix, the dot-inserted
// ("6A" → "6.A") and letter-merged ("6.A" → "6A") forms.
func Variants(raw string) VariantSet {
	set := make(VariantSet)

	canonical := Normalize(raw)
	if canonical == "" {
		return set
	}
	set[canonical] = struct{}{}
	set[ID(strings.ToLower(string(canonical)))] = struct{}{}

	segs := strings.Split(string(canonical), ".")
	last := segs[len(segs)-1]

	// Numeric-only form: strip trailing letters from the final segment.
	stripped := strings.TrimRight(last, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	if stripped != "" && stripped != last {
		numeric := append(append([]string{}, segs[:len(segs)-1]...), stripped)
		set[ID(strings.Join(numeric, "."))] = struct{}{}
	}

	// Dot-inserted form: "6A" → "6.A", "2.3A" → "2.3.A".
	if trailingLetterPattern.MatchString(string(canonical)) {
		split := string(canonical[:len(canonical)-1]) + "." + string(canonical[len(canonical)-1])
		set[ID(split)] = struct{}{}
	}

	// Letter-merged form: "6.A" → "6A".
	if len(segs) >= 2 && len(last) == 1 && isLetter(last[0]) {
		merged := strings.Join(segs[:len(segs)-1], ".") + last
		set[ID(merged)] = struct{}{}
	}

	return set
}

// Anchor returns the stable fragment key for a canonical ID, suitable for use
// as an HTML anchor target.
func Anchor(id ID) string {
	return "#clause-" + string(id)
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
