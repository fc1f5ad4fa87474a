package ranges

// ChangeKind discriminates the event log entries of a session.
type ChangeKind int

const (
	// ChangeAdd records an insertion into the ambient sequence.
	ChangeAdd ChangeKind = iota
	// ChangeRemove records a deletion from the ambient sequence.
	ChangeRemove
)

// ChangeInfo is one entry of the session's ordered event log, carrying the
// change's argument range. Shifts log nothing.
type ChangeInfo struct {
	Kind  ChangeKind
	Range Range
}

// ResolvedRemained is a sub-range of the window whose items have survived
// every change since the session began. IndexOriginal addresses the ambient
// sequence as it was at session start; IndexCurrent addresses it as it is
// after the latest change.
type ResolvedRemained struct {
	Length        uint
	IndexOriginal uint
	IndexCurrent  uint
}

// currentRange returns the remained range in current coordinates.
func (r ResolvedRemained) currentRange() Range {
	return New(r.IndexCurrent, r.Length)
}

// RemainedRanges maintains the maximal set of sub-ranges that have remained
// identical across the whole session, ordered by current index.
//
// Invariant: once noUnchangedRanges is set it stays set; later changes can
// never reintroduce remained ranges within the session.
type RemainedRanges struct {
	resolved          []ResolvedRemained
	noUnchangedRanges bool
}

// Ranges returns the resolved remained ranges in current-index order. The
// returned slice is owned by the receiver; callers must not mutate it.
func (rr *RemainedRanges) Ranges() []ResolvedRemained {
	return rr.resolved
}

// NoUnchangedRanges reports whether the session has established that no item
// of the original window survives.
func (rr *RemainedRanges) NoUnchangedRanges() bool {
	return rr.noUnchangedRanges
}

// resolve folds the remained output of one change into the session state.
// newRemained is ordered by the window's pre-change indexing.
func (rr *RemainedRanges) resolve(newRemained []NewRemained) {
	if rr.noUnchangedRanges {
		return
	}
	if len(newRemained) == 0 {
		rr.noUnchangedRanges = true
		rr.resolved = nil
		return
	}
	if len(rr.resolved) == 0 {
		// First change producing remained output seeds the session state.
		for _, nr := range newRemained {
			rr.resolved = append(rr.resolved, ResolvedRemained{
				Length:        nr.Length,
				IndexOriginal: nr.IndexBefore,
				IndexCurrent:  nr.IndexAfter,
			})
		}
		rr.resolved = coalesce(rr.resolved)
		return
	}

	// Intersect each previously resolved range (in current coordinates, which
	// are the new change's before coordinates) with each newly remained
	// range, translating the intersection to both endpoints' index spaces.
	var next []ResolvedRemained
	for _, prev := range rr.resolved {
		for _, nr := range newRemained {
			inter, ok := prev.currentRange().Intersection(New(nr.IndexBefore, nr.Length))
			if !ok {
				continue
			}
			next = append(next, ResolvedRemained{
				Length:        inter.Len,
				IndexOriginal: translate(inter.Index, prev.IndexCurrent, prev.IndexOriginal),
				IndexCurrent:  translate(inter.Index, nr.IndexBefore, nr.IndexAfter),
			})
		}
	}
	if len(next) == 0 {
		rr.noUnchangedRanges = true
		rr.resolved = nil
		return
	}
	rr.resolved = coalesce(next)
}

// translate moves idx from the index space anchored at from into the space
// anchored at to. Computed in signed arithmetic: the shift may be negative.
func translate(idx, from, to uint) uint {
	return uint(int(idx) + int(to) - int(from))
}

// coalesce merges consecutive resolved ranges that are adjacent or
// overlapping in the current index space. Ranges merge only when they share
// the same original-to-current shift: merging across different shifts would
// assert that items which moved differently are one contiguous surviving
// block, breaking the remained invariant. The merged range's IndexOriginal
// is the minimum of the two. Input must be ordered by current index, which
// resolve's construction guarantees.
func coalesce(resolved []ResolvedRemained) []ResolvedRemained {
	if len(resolved) < 2 {
		return resolved
	}
	out := resolved[:1]
	for _, next := range resolved[1:] {
		last := &out[len(out)-1]
		lastRange := last.currentRange()
		sameShift := int(next.IndexCurrent)-int(next.IndexOriginal) ==
			int(last.IndexCurrent)-int(last.IndexOriginal)
		if sameShift && next.IndexCurrent <= lastRange.EndIndex() {
			end := maxUint(lastRange.EndIndex(), next.currentRange().EndIndex())
			last.Length = end - last.IndexCurrent
			last.IndexOriginal = minUint(last.IndexOriginal, next.IndexOriginal)
			continue
		}
		out = append(out, next)
	}
	return out
}

// SessionSummary accumulates the effects of one change session: the resolved
// remained ranges and the ordered Add/Remove event log. Created empty at
// session start, mutated by each Window.Apply, consumed by the UI diff at
// session end.
type SessionSummary struct {
	Remained RemainedRanges
	Events   []ChangeInfo
}

// NewSessionSummary returns an empty summary for a fresh change session.
func NewSessionSummary() *SessionSummary {
	return &SessionSummary{}
}
