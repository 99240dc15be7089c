package clause

import (
	"sort"
	"strconv"
	"strings"
)

// segmentKind tags a parsed dotted segment as fully numeric or text.
type segmentKind int

const (
	segmentNumeric segmentKind = iota
	segmentText
)

// segment is the parsed form of one dotted component of a canonical ID.
// Text segments additionally record a leading integer when one is present,
// so "6A" carries leading=6.
type segment struct {
	kind       segmentKind
	number     uint64
	text       string
	leading    uint64
	hasLeading bool
}

// zeroSegment stands in for missing segments on the shorter ID, so "2"
// compares against "2.1" as if it were "2.0".
var zeroSegment = segment{kind: segmentNumeric}

// parseSegment classifies a dotted segment in a single pass.
func parseSegment(s string) segment {
	if s == "" {
		return zeroSegment
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return segment{kind: segmentNumeric, number: n}
	}

	seg := segment{kind: segmentText, text: s}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		if n, err := strconv.ParseUint(s[:i], 10, 64); err == nil {
			seg.leading = n
			seg.hasLeading = true
		}
	}
	return seg
}

// Compare imposes a total natural order over canonical IDs, returning a
// negative value when a sorts before b, zero when equal, positive otherwise.
//
// IDs are compared segment by segment. Fully numeric segment pairs compare
// numerically, so "10" sorts after "2". Mixed pairs compare by leading
// integer first ("2A" before "10"); at equal leading value the fully numeric
// segment sorts first ("2" before "2A"). A segment with a leading integer
// sorts before one without, and remaining ties fall back to a
// case-insensitive string comparison.
func Compare(a, b ID) int {
	as := strings.Split(string(a), ".")
	bs := strings.Split(string(b), ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		sa, sb := zeroSegment, zeroSegment
		if i < len(as) {
			sa = parseSegment(as[i])
		}
		if i < len(bs) {
			sb = parseSegment(bs[i])
		}
		if c := compareSegments(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegments(a, b segment) int {
	if a.kind == segmentNumeric && b.kind == segmentNumeric {
		return compareUint(a.number, b.number)
	}

	if a.kind == segmentNumeric {
		// b is text. Order by leading integer when b has one; the fully
		// numeric segment wins the residual tie.
		if b.hasLeading {
			if c := compareUint(a.number, b.leading); c != 0 {
				return c
			}
		}
		return -1
	}
	if b.kind == segmentNumeric {
		if a.hasLeading {
			if c := compareUint(a.leading, b.number); c != 0 {
				return c
			}
		}
		return 1
	}

	// Both text.
	switch {
	case a.hasLeading && b.hasLeading:
		if c := compareUint(a.leading, b.leading); c != 0 {
			return c
		}
	case a.hasLeading:
		return -1
	case b.hasLeading:
		return 1
	}
	return strings.Compare(strings.ToUpper(a.text), strings.ToUpper(b.text))
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b in natural clause order.
func Less(a, b ID) bool {
	return Compare(a, b) < 0
}

// Sort orders ids in place by natural clause order.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return Compare(ids[i], ids[j]) < 0 })
}
