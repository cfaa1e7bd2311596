package resolve

import "timetable-engine/internal/domain"

// state is the compressed abstraction the Q-table is keyed on (§4.5): a
// conflict's raw context (which courses, how much room is left elsewhere)
// is lossy-binned into a handful of small integers so the table stays
// sparse and generalizes across structurally-similar conflicts.
type state struct {
	kind            domain.ConflictKind
	coursesBin      int
	freeSlotsBin    int
	freeRoomsBin    int
	softImpactBin   int
	couplingBin     int
}

// bin returns the index of the first threshold greater than or equal to v, or
// len(thresholds) if v exceeds every threshold — a small ordinal bucket
// rather than the raw count.
func bin(v int, thresholds []int) int {
	for i, t := range thresholds {
		if v <= t {
			return i
		}
	}
	return len(thresholds)
}

// hash packs every bin into a single uint64 by fixed-width shifting. Every
// component is small (kind fits in 2 bits, every bin fits in 3 bits), so
// this is a lossless, deterministic encoding rather than a true hash — it
// never collides two distinct states, which a table keyed on it requires.
func (s state) hash() uint64 {
	var h uint64
	h = h<<2 | uint64(s.kind)
	h = h<<3 | uint64(s.coursesBin)
	h = h<<3 | uint64(s.freeSlotsBin)
	h = h<<3 | uint64(s.freeRoomsBin)
	h = h<<3 | uint64(s.softImpactBin)
	h = h<<3 | uint64(s.couplingBin)
	return h
}

// newState builds a state from raw conflict context. softImpact and
// coupling are already coarse 0..3 scores (computed by the caller from the
// faculty preference at the conflict's slot and the constraint graph), so they are
// clamped rather than binned against thresholds.
func newState(kind domain.ConflictKind, coursesInvolved, freeSlots, freeRooms, softImpact, coupling int) state {
	return state{
		kind:          kind,
		coursesBin:    bin(coursesInvolved, []int{2, 5}),
		freeSlotsBin:  bin(freeSlots, []int{2, 5, 10}),
		freeRoomsBin:  bin(freeRooms, []int{2, 5}),
		softImpactBin: clamp03(softImpact),
		couplingBin:   clamp03(coupling),
	}
}

func clamp03(v int) int {
	if v < 0 {
		return 0
	}
	if v > 3 {
		return 3
	}
	return v
}
