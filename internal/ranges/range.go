// Package ranges implements a half-open index range over an ordered sequence
// and the change algebra that tracks a windowed view of such a sequence
// across shift, add, and remove operations.
//
// Range is a plain value type in the manner of interval types elsewhere in
// the ecosystem: freely copied, all operations O(1). A Range with Len == 0 is
// a caret (a position between items); with Len > 0 it is a span.
package ranges

import "fmt"

// Range represents the half-open interval [Index, Index+Len).
//
// Invariant: Index+Len does not overflow. All methods require this.
type Range struct {
	Index uint
	Len   uint
}

// New returns the range [index, index+len).
func New(index, length uint) Range {
	return Range{Index: index, Len: length}
}

// EndIndex returns the exclusive end of the range.
func (r Range) EndIndex() uint {
	return r.Index + r.Len
}

// IsCaret reports whether the range is empty (a position between items).
func (r Range) IsCaret() bool { return r.Len == 0 }

// IsSpan reports whether the range covers at least one item.
func (r Range) IsSpan() bool { return r.Len > 0 }

// Contains reports whether idx lies inside the range. A caret contains
// nothing.
func (r Range) Contains(idx uint) bool {
	return r.Index <= idx && idx < r.EndIndex()
}

// ContainsRange reports whether other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return r.Index <= other.Index && other.EndIndex() <= r.EndIndex()
}

// ContainedIn reports whether r lies entirely within other.
func (r Range) ContainedIn(other Range) bool {
	return other.ContainsRange(r)
}

// Follows reports whether r starts at or after the end of other.
func (r Range) Follows(other Range) bool {
	return r.Index >= other.EndIndex()
}

// Precedes reports whether r ends at or before the start of other.
func (r Range) Precedes(other Range) bool {
	return r.EndIndex() <= other.Index
}

// Adjacent reports whether the end of one range equals the start of the
// other.
func (r Range) Adjacent(other Range) bool {
	return r.EndIndex() == other.Index || other.EndIndex() == r.Index
}

// Intersection returns the overlap of r and other. Ranges that only touch at
// an endpoint have no intersection.
func (r Range) Intersection(other Range) (Range, bool) {
	lo := maxUint(r.Index, other.Index)
	hi := minUint(r.EndIndex(), other.EndIndex())
	if hi <= lo {
		return Range{}, false
	}
	return Range{Index: lo, Len: hi - lo}, true
}

// Union returns the set union of r and other as one range when they overlap
// or abut, otherwise as two ranges in ascending order.
func (r Range) Union(other Range) []Range {
	lo := maxUint(r.Index, other.Index)
	hi := minUint(r.EndIndex(), other.EndIndex())
	if hi >= lo {
		start := minUint(r.Index, other.Index)
		end := maxUint(r.EndIndex(), other.EndIndex())
		return []Range{{Index: start, Len: end - start}}
	}
	first, second := r, other
	if second.Index < first.Index {
		first, second = second, first
	}
	return []Range{first, second}
}

// Complement returns the parts of [0, totalLen) not covered by r, in
// ascending order. Zero, one, or two ranges.
func (r Range) Complement(totalLen uint) []Range {
	var out []Range
	if r.Index > 0 {
		out = append(out, Range{Index: 0, Len: minUint(r.Index, totalLen)})
	}
	if r.EndIndex() < totalLen {
		out = append(out, Range{Index: r.EndIndex(), Len: totalLen - r.EndIndex()})
	}
	return out
}

// RelativeComplement returns the parts of r not covered by other, in
// ascending order. Zero, one, or two ranges.
func (r Range) RelativeComplement(other Range) []Range {
	inter, ok := r.Intersection(other)
	if !ok {
		if r.IsSpan() {
			return []Range{r}
		}
		return nil
	}
	var out []Range
	if r.Index < inter.Index {
		out = append(out, Range{Index: r.Index, Len: inter.Index - r.Index})
	}
	if inter.EndIndex() < r.EndIndex() {
		out = append(out, Range{Index: inter.EndIndex(), Len: r.EndIndex() - inter.EndIndex()})
	}
	return out
}

// SymmetricDifference returns (r ∪ other) \ (r ∩ other), in ascending order.
// Zero, one, or two ranges.
func (r Range) SymmetricDifference(other Range) []Range {
	if _, ok := r.Intersection(other); !ok {
		// Disjoint or abutting: the symmetric difference is the union.
		out := r.Union(other)
		// Strip empty carets that a union with a caret can produce.
		kept := out[:0]
		for _, piece := range out {
			if piece.IsSpan() {
				kept = append(kept, piece)
			}
		}
		return kept
	}
	out := r.RelativeComplement(other)
	out = append(out, other.RelativeComplement(r)...)
	if len(out) == 2 && out[1].Index < out[0].Index {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

// Apart returns the open gap between two disjoint, non-adjacent ranges.
// Reports false when the ranges overlap, abut, or are carets at the same
// position.
func (r Range) Apart(other Range) (Range, bool) {
	switch {
	case r.EndIndex() < other.Index:
		return Range{Index: r.EndIndex(), Len: other.Index - r.EndIndex()}, true
	case other.EndIndex() < r.Index:
		return Range{Index: other.EndIndex(), Len: r.Index - other.EndIndex()}, true
	default:
		return Range{}, false
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Index, r.EndIndex())
}

func minUint(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
