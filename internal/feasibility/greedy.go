package feasibility

import (
	"sort"

	"timetable-engine/internal/domain"
)

// Greedy fills every remaining (course, session) by iterating sessions in
// the same decreasing (enrollment*duration) order as the backtracking
// search and picking the least-loaded valid (slot, room) candidate. It
// generalizes the teacher's Burke-style room displacement: sessions of
// the same course prefer to reuse a "family" room once one sibling
// session has claimed it, and a session that cannot find any valid
// candidate is left unassigned rather than forced into a conflict — the
// residual gaps and any leftover hard-constraint violations become
// Stage 3's job.
func Greedy(ds *domain.Dataset, courseIDs []domain.CourseID, candidates CandidateDomain) (map[domain.SessionKey]Candidate, []domain.SessionKey) {
	sessions := orderedSessions(ds, courseIDs)
	assignment := make(map[domain.SessionKey]Candidate, len(sessions))
	load := make(map[Candidate]int)
	familyRoom := make(map[domain.CourseID]domain.RoomID)
	var unassigned []domain.SessionKey

	for _, key := range sessions {
		cands := candidates[key]
		if len(cands) == 0 {
			unassigned = append(unassigned, key)
			continue
		}

		best, found := pickFamilyRoom(cands, familyRoom[key.CourseID], load)
		if !found {
			best = pickLeastLoaded(cands, load)
		}

		assignment[key] = best
		load[best]++
		if _, ok := familyRoom[key.CourseID]; !ok {
			familyRoom[key.CourseID] = best.RoomID
		}
	}

	return assignment, unassigned
}

func pickFamilyRoom(cands []Candidate, preferred domain.RoomID, load map[Candidate]int) (Candidate, bool) {
	if preferred == "" {
		return Candidate{}, false
	}
	var best Candidate
	bestLoad := -1
	for _, c := range cands {
		if c.RoomID != preferred {
			continue
		}
		l := load[c]
		if bestLoad == -1 || l < bestLoad {
			bestLoad = l
			best = c
		}
	}
	return best, bestLoad != -1
}

func pickLeastLoaded(cands []Candidate, load map[Candidate]int) Candidate {
	sorted := append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return load[sorted[i]] < load[sorted[j]]
	})
	return sorted[0]
}
