// Package linker rewrites clause mentions in contract text into stable
// reference wrappers and highlights search keywords. Both rewrites are
// idempotent: running them again over their own output changes nothing.
package linker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
)

// Linker holds the compiled patterns for reference detection and markup
// stripping. Construct it once with NewLinker and share it; it is immutable
// and safe for concurrent use.
type Linker struct {
	// Keyword-prefixed clause mentions: "Clause 6 A.2 (b)", "sub-clause 14.1".
	refPattern *regexp.Regexp

	// Previously emitted reference wrappers, for the strip pass.
	linkMarkup *regexp.Regexp

	// Previously emitted keyword highlights.
	markMarkup *regexp.Regexp

	// Any HTML tag, used to keep highlighting out of markup.
	tagPattern *regexp.Regexp
}

// NewLinker creates a linker with compiled patterns.
func NewLinker() *Linker {
	return &Linker{
		// Keyword, then a clause number: integer prefix, optional standalone
		// letter, further dotted segments, optional parenthetical sub-item.
		// The \b after each letter stops the match from eating the first
		// letter of a following word ("Clause 6 for" stays "6").
		refPattern: regexp.MustCompile(
			`(?i)\b(Clause|Sub-clause|Article|Paragraph|Sub-paragraph)s?\s+` +
				`(\d+(?:[ \t]*[A-Za-z]\b)?(?:\.\d+(?:[ \t]*[A-Za-z]\b)?)*(?:[ \t]*\([A-Za-z0-9]+\))?)`),

		linkMarkup: regexp.MustCompile(`<a href="#clause-[^"]*"[^>]*>(.*?)</a>`),
		markMarkup: regexp.MustCompile(`<mark class="keyword-highlight">(.*?)</mark>`),
		tagPattern: regexp.MustCompile(`<[^>]+>`),
	}
}

// Link rewrites every keyword-prefixed clause mention whose number resolves to
// a known canonical ID into a reference wrapper. Mentions of unknown clauses
// are left untouched, so the output never links to a clause that was not
// ingested. It returns the rewritten text and the number of wrappers emitted.
func (l *Linker) Link(text string, known map[clause.ID]struct{}) (string, int) {
	// Strip wrappers from a previous run back to plain mention text, so
	// running Link over its own output is a no-op.
	text = l.linkMarkup.ReplaceAllString(text, "$1")

	count := 0
	out := l.refPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := l.refPattern.FindStringSubmatch(match)
		canonical, ok := resolveKnown(clause.Normalize(sub[2]), known)
		if !ok {
			return match
		}
		count++
		return `<a href="` + clause.Anchor(canonical) + `" class="clause-ref" data-clause-id="` +
			string(canonical) + `">` + match + `</a>`
	})
	return out, count
}

// resolveKnown maps a normalized mention onto the known-ID set, trying the
// canonical spelling first and its variants second.
func resolveKnown(id clause.ID, known map[clause.ID]struct{}) (clause.ID, bool) {
	if id == "" {
		return "", false
	}
	if _, ok := known[id]; ok {
		return id, true
	}
	for _, variant := range clause.Variants(string(id)).List() {
		if _, ok := known[variant]; ok {
			return variant, true
		}
	}
	return "", false
}

// Highlight wraps case-insensitive keyword occurrences in highlight marks for
// search-result emphasis. Text inside HTML tags and inside reference wrappers
// is never touched, and highlights from a previous run are replaced rather
// than nested.
func (l *Linker) Highlight(text string, keywords []string) string {
	kw := compileKeywords(keywords)
	if kw == nil {
		return text
	}

	text = l.markMarkup.ReplaceAllString(text, "$1")

	var out strings.Builder
	out.Grow(len(text))

	anchorDepth := 0
	last := 0
	for _, loc := range l.tagPattern.FindAllStringIndex(text, -1) {
		segment := text[last:loc[0]]
		if anchorDepth == 0 {
			segment = kw.ReplaceAllString(segment, `<mark class="keyword-highlight">$0</mark>`)
		}
		out.WriteString(segment)

		tag := text[loc[0]:loc[1]]
		switch {
		case strings.HasPrefix(tag, "<a ") || tag == "<a>":
			anchorDepth++
		case tag == "</a>":
			if anchorDepth > 0 {
				anchorDepth--
			}
		}
		out.WriteString(tag)
		last = loc[1]
	}

	tail := text[last:]
	if anchorDepth == 0 {
		tail = kw.ReplaceAllString(tail, `<mark class="keyword-highlight">$0</mark>`)
	}
	out.WriteString(tail)

	return out.String()
}

// compileKeywords builds one alternation over the non-empty keywords, longest
// first so that "liquidated damages" wins over "damages".
func compileKeywords(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
