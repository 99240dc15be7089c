package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
)

func knownSet(ids ...clause.ID) map[clause.ID]struct{} {
	set := make(map[clause.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestLink(t *testing.T) {
	l := NewLinker()
	known := knownSet("6A.2", "14.1")

	tests := []struct {
		name  string
		text  string
		want  string
		count int
	}{
		{
			name:  "known clause",
			text:  "See Clause 6A.2 for details.",
			want:  `See <a href="#clause-6A.2" class="clause-ref" data-clause-id="6A.2">Clause 6A.2</a> for details.`,
			count: 1,
		},
		{
			name:  "spaced spelling resolves through variants",
			text:  "Per Sub-clause 6 A.2 (b) above.",
			want:  `Per <a href="#clause-6A.2" class="clause-ref" data-clause-id="6A.2">Sub-clause 6 A.2 (b)</a> above.`,
			count: 1,
		},
		{
			name:  "unknown clause untouched",
			text:  "See Clause 99.9 for details.",
			want:  "See Clause 99.9 for details.",
			count: 0,
		},
		{
			name:  "keyword without number untouched",
			text:  "This clause is void.",
			want:  "This clause is void.",
			count: 0,
		},
		{
			name:  "following word not swallowed",
			text:  "Clause 14.1 for reference.",
			want:  `<a href="#clause-14.1" class="clause-ref" data-clause-id="14.1">Clause 14.1</a> for reference.`,
			count: 1,
		},
		{
			name:  "case-insensitive keyword",
			text:  "under ARTICLE 14.1 hereof",
			want:  `under <a href="#clause-14.1" class="clause-ref" data-clause-id="14.1">ARTICLE 14.1</a> hereof`,
			count: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := l.Link(tt.text, known)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestLink_VariantResolvesToKnownSpelling(t *testing.T) {
	l := NewLinker()

	// The contract ingested "6A.2B"; a mention spelled "6 A.2 (b)" must link
	// to that canonical ID, not to its own normalization.
	got, count := l.Link("See Clause 6 A.2 (b).", knownSet("6A.2B"))
	require.Equal(t, 1, count)
	assert.Contains(t, got, `data-clause-id="6A.2B"`)
	assert.Contains(t, got, ">Clause 6 A.2 (b)</a>")
}

func TestLink_Idempotent(t *testing.T) {
	l := NewLinker()
	known := knownSet("6A.2", "14.1", "2")

	texts := []string{
		"See Clause 6A.2 and Clause 14.1; ignore Clause 99.",
		"No references here.",
		"Clause 2 at the start.",
	}
	for _, text := range texts {
		once, n1 := l.Link(text, known)
		twice, n2 := l.Link(once, known)
		assert.Equal(t, once, twice)
		assert.Equal(t, n1, n2)
	}
}

func TestHighlight(t *testing.T) {
	l := NewLinker()

	got := l.Highlight("The Contractor shall pay liquidated damages.", []string{"contractor", "damages"})
	assert.Equal(t,
		`The <mark class="keyword-highlight">Contractor</mark> shall pay liquidated <mark class="keyword-highlight">damages</mark>.`,
		got)
}

func TestHighlight_LongestKeywordWins(t *testing.T) {
	l := NewLinker()

	got := l.Highlight("pay liquidated damages now", []string{"damages", "liquidated damages"})
	assert.Equal(t, `pay <mark class="keyword-highlight">liquidated damages</mark> now`, got)
}

func TestHighlight_SkipsTagsAndReferenceSpans(t *testing.T) {
	l := NewLinker()
	known := knownSet("6A.2")

	linked, _ := l.Link("See Clause 6A.2 for the contractor.", known)
	got := l.Highlight(linked, []string{"clause", "contractor"})

	// The mention inside the reference wrapper stays bare; the plain-text
	// occurrence after it is highlighted.
	assert.Contains(t, got, `>Clause 6A.2</a>`)
	assert.Contains(t, got, `<mark class="keyword-highlight">contractor</mark>`)
	assert.NotContains(t, got, `data-<mark`)
}

func TestHighlight_Idempotent(t *testing.T) {
	l := NewLinker()
	keywords := []string{"contractor", "engineer"}

	text := "The Contractor shall notify the Engineer."
	once := l.Highlight(text, keywords)
	twice := l.Highlight(once, keywords)
	assert.Equal(t, once, twice)
}

func TestHighlight_NoKeywords(t *testing.T) {
	l := NewLinker()
	assert.Equal(t, "unchanged", l.Highlight("unchanged", nil))
	assert.Equal(t, "unchanged", l.Highlight("unchanged", []string{"", "  "}))
}
