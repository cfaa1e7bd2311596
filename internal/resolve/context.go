package resolve

import (
	"math"
	"sort"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
	"timetable-engine/internal/graph"
)

func containsCourse(ids []domain.CourseID, target domain.CourseID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func detectConflicts(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate) []domain.Conflict {
	return ds.Conflicts(flatten(assignments))
}

func flatten(assignments map[domain.SessionKey]feasibility.Candidate) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(assignments))
	for key, cand := range assignments {
		out = append(out, domain.Assignment{
			CourseID:     key.CourseID,
			SessionIndex: key.SessionIndex,
			SlotID:       cand.SlotID,
			RoomID:       cand.RoomID,
		})
	}
	return out
}

func cloneAssignments(in map[domain.SessionKey]feasibility.Candidate) map[domain.SessionKey]feasibility.Candidate {
	out := make(map[domain.SessionKey]feasibility.Candidate, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// buildState derives the compressed state abstraction for conflict from the
// live assignment map and the constraint graph's coupling signal.
func buildState(ds *domain.Dataset, cg *graph.ConstraintGraph, assignments map[domain.SessionKey]feasibility.Candidate, conflict domain.Conflict) state {
	return newState(
		conflict.Kind,
		len(conflict.CourseIDs),
		countFreeSlots(ds, assignments, conflict),
		countFreeRooms(ds, assignments, conflict),
		softImpactScore(ds, conflict),
		couplingScore(cg, conflict),
	)
}

func countFreeSlots(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, conflict domain.Conflict) int {
	used := map[domain.SlotID]bool{}
	for key, cand := range assignments {
		if containsCourse(conflict.CourseIDs, key.CourseID) {
			used[cand.SlotID] = true
		}
	}
	free := 0
	for _, sid := range ds.SlotOrder {
		if !used[sid] {
			free++
		}
	}
	return free
}

func countFreeRooms(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, conflict domain.Conflict) int {
	occupied := map[domain.RoomID]bool{}
	for _, cand := range assignments {
		if cand.SlotID == conflict.SlotID {
			occupied[cand.RoomID] = true
		}
	}
	free := 0
	for _, rid := range ds.RoomOrder {
		if !occupied[rid] {
			free++
		}
	}
	return free
}

// softImpactScore coarsely estimates how disruptive this conflict's current
// placement is to faculty preference, the cheapest of the six soft metrics
// to evaluate without a full cluster re-scoring.
func softImpactScore(ds *domain.Dataset, conflict domain.Conflict) int {
	if len(conflict.CourseIDs) == 0 {
		return 0
	}
	var sum float64
	for _, cid := range conflict.CourseIDs {
		c := ds.Courses[cid]
		fac := ds.Faculty[c.FacultyID]
		sum += math.Abs(fac.Preference(conflict.SlotID) - 0.5)
	}
	avg := sum / float64(len(conflict.CourseIDs))
	return clamp03(int(avg * 6))
}

// couplingScore reports how tightly the conflict's courses are linked in the
// constraint graph, scaled into the same 0..3 band as softImpactScore.
func couplingScore(cg *graph.ConstraintGraph, conflict domain.Conflict) int {
	if cg == nil {
		return 0
	}
	total := cg.TotalWeight()
	if total == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(conflict.CourseIDs); i++ {
		for j := i + 1; j < len(conflict.CourseIDs); j++ {
			sum += cg.Weight(conflict.CourseIDs[i], conflict.CourseIDs[j])
		}
	}
	return clamp03(int((sum / total) * 12))
}

// softProxy averages faculty preference over conflict's live sessions,
// used only as a before/after delta signal for the reward term.
func softProxy(ds *domain.Dataset, assignments map[domain.SessionKey]feasibility.Candidate, conflict domain.Conflict) float64 {
	var sum float64
	count := 0
	for key, cand := range assignments {
		if !containsCourse(conflict.CourseIDs, key.CourseID) {
			continue
		}
		c := ds.Courses[key.CourseID]
		fac := ds.Faculty[c.FacultyID]
		sum += fac.Preference(cand.SlotID)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func sessionsAt(assignments map[domain.SessionKey]feasibility.Candidate, courseID domain.CourseID, slot domain.SlotID) []domain.SessionKey {
	var out []domain.SessionKey
	for key, cand := range assignments {
		if key.CourseID == courseID && cand.SlotID == slot {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].SessionIndex < out[j].SessionIndex
	})
	return out
}
