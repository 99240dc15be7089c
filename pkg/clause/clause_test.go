package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ID
	}{
		{"plain integer", "1", "1"},
		{"dotted multi-level", "2.3.4", "2.3.4"},
		{"alphanumeric suffix", "6A.2", "6A.2"},
		{"parenthetical sub-item", "1.6 (b)", "1.6B"},
		{"spaced letter and sub-item", "6 A.2 (b)", "6A.2B"},
		{"lowercase input", "2a.1", "2A.1"},
		{"bracketed sub-item", "3.1 [c]", "3.1C"},
		{"interior whitespace", "  22 A . 1 ", "22A.1"},
		{"empty", "", ""},
		{"whitespace only", "   \t", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"6 A.2 (b)", "1.6 (b)", "2.3.4", "Clause 22A.1", "", "10"}
	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(string(once)), "normalize(normalize(%q))", raw)
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ID
	}{
		{
			name: "letter suffix",
			raw:  "6A",
			want: []ID{"6", "6.A", "6A", "6a"},
		},
		{
			name: "dotted letter segment",
			raw:  "6.A",
			want: []ID{"6.A", "6.a", "6A"},
		},
		{
			name: "plain numeric has no extra forms",
			raw:  "14.1",
			want: []ID{"14.1"},
		},
		{
			name: "sub-item form",
			raw:  "6A.2B",
			want: []ID{"6A.2", "6A.2B", "6a.2b"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Variants(tc.raw)
			assert.ElementsMatch(t, tc.want, got.List())
		})
	}
}

func TestVariants_CrossSpellingLookup(t *testing.T) {
	// Any commonly seen spelling of the same clause must hit at least one
	// variant of any other spelling.
	spellings := []string{"6A", "6 A", "6.A", "6a"}
	for _, a := range spellings {
		va := Variants(a)
		for _, b := range spellings {
			vb := Variants(b)
			overlap := false
			for id := range vb {
				if va.Contains(id) {
					overlap = true
					break
				}
			}
			assert.True(t, overlap, "variants of %q and %q share no form", a, b)
		}
	}
}

func TestVariants_Empty(t *testing.T) {
	require.Empty(t, Variants("  "))
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "#clause-6A.2", Anchor("6A.2"))
}
