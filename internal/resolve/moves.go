package resolve

import (
	"golang.org/x/exp/rand"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
)

// applyAction returns a trial copy of assignments with action applied to
// conflict, the number of sessions it touched (for the reward's
// simplicity bonus), and whether the action had anything valid to do.
// Every branch only ever reassigns sessions belonging to conflict's own
// courses or, for SwapSlots, the session currently occupying the target
// slot — never an untouched cluster's assignment.
func applyAction(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, conflict domain.Conflict, action Action, rng *rand.Rand) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	if len(conflict.CourseIDs) == 0 {
		return assignments, 0, false
	}
	primary := conflict.CourseIDs[0]
	primarySessions := sessionsAt(assignments, primary, conflict.SlotID)
	if len(primarySessions) == 0 {
		return assignments, 0, false
	}
	key := primarySessions[0]

	switch action {
	case SwapSlots:
		return applySwapSlots(assignments, conflict, key)
	case ShiftForward:
		return applyShift(ds, assignments, candidates, key, +1)
	case ShiftBackward:
		return applyShift(ds, assignments, candidates, key, -1)
	case ChangeRoom:
		return applyChangeRoom(assignments, candidates, key)
	case ReassignFaculty:
		return applyReassignFaculty(ds, assignments, candidates, key)
	case DeleteReinsert:
		return applyDeleteReinsert(assignments, candidates, key, rng)
	default:
		return assignments, 0, false
	}
}

// applySwapSlots trades (slot, room) pairs between the primary session and
// its immediate swap partner: the other course's session sharing this
// conflict's slot.
func applySwapSlots(assignments map[domain.SessionKey]feasibility.Candidate, conflict domain.Conflict, key domain.SessionKey) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	var partner domain.SessionKey
	found := false
	for _, cid := range conflict.CourseIDs[1:] {
		sessions := sessionsAt(assignments, cid, conflict.SlotID)
		if len(sessions) > 0 {
			partner = sessions[0]
			found = true
			break
		}
	}
	if !found {
		return assignments, 0, false
	}

	trial := cloneAssignments(assignments)
	trial[key], trial[partner] = trial[partner], trial[key]
	return trial, 2, true
}

// applyShift moves key to the candidate slot one position away (by slot
// order) from its current one, keeping the same room if that tuple is
// still valid, otherwise the first valid room at the new slot.
func applyShift(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, key domain.SessionKey, direction int) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	pool := candidates[key]
	if len(pool) == 0 {
		return assignments, 0, false
	}
	current := assignments[key]
	currentOrder := ds.TimeSlots[current.SlotID].Order

	var best feasibility.Candidate
	bestDist := -1
	for _, cand := range pool {
		if cand.SlotID == current.SlotID {
			continue
		}
		order := ds.TimeSlots[cand.SlotID].Order
		delta := order - currentOrder
		if direction > 0 && delta <= 0 {
			continue
		}
		if direction < 0 && delta >= 0 {
			continue
		}
		dist := abs(delta)
		if bestDist == -1 || dist < bestDist || (dist == bestDist && cand.RoomID == current.RoomID) {
			bestDist = dist
			best = cand
		}
	}
	if bestDist == -1 {
		return assignments, 0, false
	}

	trial := cloneAssignments(assignments)
	trial[key] = best
	return trial, 1, true
}

// applyChangeRoom keeps key's slot but switches to a different room from
// its precomputed candidate domain.
func applyChangeRoom(assignments map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, key domain.SessionKey) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	current := assignments[key]
	for _, cand := range candidates[key] {
		if cand.SlotID == current.SlotID && cand.RoomID != current.RoomID {
			trial := cloneAssignments(assignments)
			trial[key] = cand
			return trial, 1, true
		}
	}
	return assignments, 0, false
}

// applyReassignFaculty has no substitute-faculty registry to draw from
// (Course.FacultyID is authoritative input, not a decision variable), so it
// is modeled as relocating key to the candidate tuple with the highest
// faculty-preference score instead — still an action distinct from a plain
// shift, biased toward resolving the conflict in a faculty-friendly slot.
func applyReassignFaculty(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, key domain.SessionKey) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	c := ds.Courses[key.CourseID]
	fac := ds.Faculty[c.FacultyID]
	current := assignments[key]

	var best feasibility.Candidate
	bestScore := -1.0
	for _, cand := range candidates[key] {
		if cand == current {
			continue
		}
		score := fac.Preference(cand.SlotID)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if bestScore < 0 {
		return assignments, 0, false
	}
	trial := cloneAssignments(assignments)
	trial[key] = best
	return trial, 1, true
}

// applyDeleteReinsert frees key's current tuple, then reinserts it at the
// least-loaded candidate in its domain, mirroring the greedy fallback's
// load-balancing rule.
func applyDeleteReinsert(assignments map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, key domain.SessionKey, rng *rand.Rand) (map[domain.SessionKey]feasibility.Candidate, int, bool) {
	pool := candidates[key]
	if len(pool) == 0 {
		return assignments, 0, false
	}
	load := map[feasibility.Candidate]int{}
	for k, cand := range assignments {
		if k != key {
			load[cand]++
		}
	}
	best := pool[0]
	bestLoad := load[best]
	for _, cand := range pool[1:] {
		if load[cand] < bestLoad {
			best, bestLoad = cand, load[cand]
		}
	}
	if best == assignments[key] && len(pool) > 1 {
		best = pool[(rng.Intn(len(pool)-1)+1)%len(pool)]
	}
	trial := cloneAssignments(assignments)
	trial[key] = best
	return trial, 1, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
