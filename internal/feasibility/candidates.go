// Package feasibility implements the per-cluster feasibility solver (C4,
// §4.3): domain precomputation, a progressive relaxation ladder of
// backtracking searches, and a deterministic greedy fallback.
package feasibility

import (
	"sort"

	"timetable-engine/internal/domain"
)

// Candidate is one (slot, room) pair that survived domain pre-filtering
// for a given (course, session).
type Candidate struct {
	SlotID domain.SlotID
	RoomID domain.RoomID
}

// CandidateDomain maps each session key to its pre-filtered candidate list,
// ordered deterministically by (slot order, room id).
type CandidateDomain map[domain.SessionKey][]Candidate

// Precompute drops tuples that violate capacity (I5), features (I6), or
// faculty availability (I7), so those invariants are encoded in the
// domain rather than as explicit search constraints.
func Precompute(ds *domain.Dataset, courseIDs []domain.CourseID) CandidateDomain {
	out := make(CandidateDomain)
	for _, cid := range courseIDs {
		c, ok := ds.Courses[cid]
		if !ok {
			continue
		}
		fac := ds.Faculty[c.FacultyID]

		var valid []Candidate
		for _, sid := range ds.SlotOrder {
			if !fac.Available(sid) {
				continue
			}
			for _, rid := range ds.RoomOrder {
				r := ds.Rooms[rid]
				if c.Enrollment() > r.Capacity {
					continue
				}
				if !r.HasFeatures(c.RequiredFeatures) {
					continue
				}
				valid = append(valid, Candidate{SlotID: sid, RoomID: rid})
			}
		}
		sort.Slice(valid, func(i, j int) bool {
			oi, oj := ds.TimeSlots[valid[i].SlotID].Order, ds.TimeSlots[valid[j].SlotID].Order
			if oi != oj {
				return oi < oj
			}
			return valid[i].RoomID < valid[j].RoomID
		})

		for s := 0; s < c.Duration; s++ {
			out[domain.SessionKey{CourseID: cid, SessionIndex: s}] = valid
		}
	}
	return out
}
