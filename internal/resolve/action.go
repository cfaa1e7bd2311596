// Package resolve implements the global Q-learning conflict resolver (C6,
// §4.5): it runs once after every cluster has been scheduled, healing
// residual cross-cluster hard-constraint violations by nudging only the
// conflict participants and their immediate swap partners.
package resolve

import "timetable-engine/internal/domain"

// Action is one of the six moves the resolver can apply to a conflicting
// session. Kept as a small closed enum, matching the domain's ConflictKind
// style.
type Action uint8

const (
	SwapSlots Action = iota
	ShiftForward
	ShiftBackward
	ChangeRoom
	ReassignFaculty
	DeleteReinsert
)

func (a Action) String() string {
	switch a {
	case SwapSlots:
		return "SWAP_SLOTS"
	case ShiftForward:
		return "SHIFT_FORWARD"
	case ShiftBackward:
		return "SHIFT_BACKWARD"
	case ChangeRoom:
		return "CHANGE_ROOM"
	case ReassignFaculty:
		return "REASSIGN_FACULTY"
	case DeleteReinsert:
		return "DELETE_REINSERT"
	default:
		return "UNKNOWN"
	}
}

// eligibleActions prunes the action set by conflict kind, per §4.5's
// "context-aware pruning" example (ROOM -> {CHANGE_ROOM, SHIFT_FORWARD}).
func eligibleActions(kind domain.ConflictKind) []Action {
	switch kind {
	case domain.ConflictRoom:
		return []Action{ChangeRoom, ShiftForward}
	case domain.ConflictFaculty:
		return []Action{ReassignFaculty, ShiftForward, ShiftBackward}
	case domain.ConflictStudent:
		return []Action{SwapSlots, ShiftForward, ShiftBackward, DeleteReinsert}
	default: // ConflictMulti
		return []Action{SwapSlots, ShiftForward, ShiftBackward, ChangeRoom, ReassignFaculty, DeleteReinsert}
	}
}
