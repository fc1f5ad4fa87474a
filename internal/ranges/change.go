package ranges

// ShiftDirection selects which way a Shift moves the window over the ambient
// sequence.
type ShiftDirection int

const (
	// TowardEnd moves the window toward higher indices.
	TowardEnd ShiftDirection = iota
	// TowardStart moves the window toward lower indices.
	TowardStart
)

// Change is one edit applied to the ambient sequence, or a movement of the
// window over it. The union is closed: Shift, Add, and Remove are the only
// variants.
type Change interface {
	isChange()
}

// Shift moves the window by Len positions without altering the ambient
// sequence.
type Shift struct {
	Len uint
	Dir ShiftDirection
}

// Add inserts Len items into the ambient sequence starting at Index.
type Add struct {
	Index uint
	Len   uint
}

// Remove deletes Len items from the ambient sequence starting at Index.
type Remove struct {
	Index uint
	Len   uint
}

func (Shift) isChange()  {}
func (Add) isChange()    {}
func (Remove) isChange() {}

// NewRemained is a sub-range that survived a single change, expressed in the
// window's indexing before and after that change. The change's shift is
// IndexAfter - IndexBefore.
type NewRemained struct {
	Length      uint
	IndexBefore uint
	IndexAfter  uint
}

// Window is the range of the ambient sequence currently observed by the
// consumer. Apply mutates it in place.
//
// The caller is responsible for never driving the window's index below zero
// or its end past the ambient sequence's length; within valid input the
// algebra is infallible.
type Window struct {
	Range
}

// NewWindow returns a window over [index, index+len).
func NewWindow(index, length uint) *Window {
	return &Window{Range: New(index, length)}
}

// Apply mutates the window per the change and records the change's effects
// in summary: the ordered event log (Add and Remove only) and the resolved
// remained ranges. A nil summary applies the window movement only.
func (w *Window) Apply(change Change, summary *SessionSummary) {
	var remained []NewRemained

	switch c := change.(type) {
	case Shift:
		remained = w.applyShift(c)
	case Add:
		remained = w.applyAdd(c)
		if summary != nil {
			summary.Events = append(summary.Events, ChangeInfo{Kind: ChangeAdd, Range: New(c.Index, c.Len)})
		}
	case Remove:
		remained = w.applyRemove(c)
		if summary != nil {
			summary.Events = append(summary.Events, ChangeInfo{Kind: ChangeRemove, Range: New(c.Index, c.Len)})
		}
	}

	if summary != nil {
		summary.Remained.resolve(remained)
	}
}

// applyShift slides the window. When the shift is shorter than the window,
// the part of the old window still visible afterwards remains with
// translation zero: the tail for a shift toward the end, the head for a
// shift toward the start.
func (w *Window) applyShift(c Shift) []NewRemained {
	old := w.Range
	if c.Dir == TowardEnd {
		w.Index += c.Len
	} else {
		w.Index -= c.Len
	}
	if old.Len <= c.Len {
		return nil
	}
	kept := old.Len - c.Len
	start := old.Index
	if c.Dir == TowardEnd {
		start = old.Index + c.Len
	}
	return []NewRemained{{Length: kept, IndexBefore: start, IndexAfter: start}}
}

// applyAdd grows or moves the window for an insertion of c.Len items at
// c.Index. An insertion strictly inside the window splits it into a head
// that keeps its position and a tail pushed right by the insertion length.
func (w *Window) applyAdd(c Add) []NewRemained {
	old := w.Range
	switch {
	case c.Index <= old.Index:
		// Insertion at or before the window's start pushes the whole window
		// right; every old item remains, translated by the insertion length.
		w.Index += c.Len
		if old.IsCaret() {
			return nil
		}
		return []NewRemained{{Length: old.Len, IndexBefore: old.Index, IndexAfter: old.Index + c.Len}}
	case c.Index < old.EndIndex():
		// Split: head keeps its position, tail is pushed right.
		w.Len += c.Len
		return []NewRemained{
			{Length: c.Index - old.Index, IndexBefore: old.Index, IndexAfter: old.Index},
			{Length: old.EndIndex() - c.Index, IndexBefore: c.Index, IndexAfter: c.Index + c.Len},
		}
	default:
		// Insertion at or past the window's end leaves it untouched.
		return nil
	}
}

// applyRemove shrinks or moves the window for a deletion of c.Len items at
// c.Index. The window's head part (before the removed range) keeps its
// position; the tail part (after it) is pulled left by the removal length.
// When the removal covers the whole window it collapses to a caret at the
// removal point.
func (w *Window) applyRemove(c Remove) []NewRemained {
	old := w.Range
	removedEnd := c.Index + c.Len

	var headLen uint
	if old.Index < c.Index {
		headLen = minUint(old.EndIndex(), c.Index) - old.Index
	}
	tailStart := maxUint(old.Index, removedEnd)
	var tailLen uint
	if old.EndIndex() > tailStart {
		tailLen = old.EndIndex() - tailStart
	}

	switch {
	case headLen > 0:
		w.Index = old.Index
	case tailLen > 0:
		w.Index = tailStart - c.Len
	default:
		// Nothing of the window survives: either the removal covers it (the
		// window collapses to a caret at the removal point) or the window was
		// already a caret outside the removed range (it keeps its position,
		// pulled left when the removal was before it).
		switch {
		case old.Index >= removedEnd:
			w.Index = old.Index - c.Len
		case old.Index >= c.Index:
			w.Index = c.Index
		default:
			w.Index = old.Index
		}
	}
	w.Len = headLen + tailLen

	var remained []NewRemained
	if headLen > 0 {
		remained = append(remained, NewRemained{Length: headLen, IndexBefore: old.Index, IndexAfter: old.Index})
	}
	if tailLen > 0 {
		remained = append(remained, NewRemained{Length: tailLen, IndexBefore: tailStart, IndexAfter: tailStart - c.Len})
	}
	return remained
}
