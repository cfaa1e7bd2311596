package domain

import "sort"

// ViolationCounts tallies hard-constraint violations found in a set of
// assignments, keyed the same way Result.Quality reports them.
type ViolationCounts struct {
	DuplicateSession int // I1
	StudentConflict  int // I2
	FacultyConflict  int // I3
	RoomConflict     int // I4
	CapacityOverflow int // I5
	FeatureMismatch  int // I6
	FacultyUnavail   int // I7
}

func (v ViolationCounts) Total() int {
	return v.DuplicateSession + v.StudentConflict + v.FacultyConflict +
		v.RoomConflict + v.CapacityOverflow + v.FeatureMismatch + v.FacultyUnavail
}

// CheckAssignments recounts every hard invariant (I1-I7) from scratch over
// a finished or partial assignment set. It never trusts bookkeeping done
// during the pipeline; it is the single source of truth used both by the
// orchestrator's reported Quality.Violations and by tests asserting
// "reported violations equals a recount from the output".
func (ds *Dataset) CheckAssignments(assignments []Assignment) ViolationCounts {
	return ds.checkAssignments(assignments, ds.CourseOrder)
}

// CheckPartialAssignments recounts I1-I7 the same way CheckAssignments does,
// but scopes the I1 missing-session check to scope instead of every course
// in the dataset. Used whenever a caller (the genetic optimizer, Stage 3's
// repair loop) only holds a partial assignment for one cluster and must not
// be penalized for sessions belonging to other clusters.
func (ds *Dataset) CheckPartialAssignments(assignments []Assignment, scope []CourseID) ViolationCounts {
	return ds.checkAssignments(assignments, scope)
}

func (ds *Dataset) checkAssignments(assignments []Assignment, scope []CourseID) ViolationCounts {
	var v ViolationCounts

	seenSession := make(map[SessionKey]int)
	for _, a := range assignments {
		seenSession[SessionKey{a.CourseID, a.SessionIndex}]++
	}
	for _, n := range seenSession {
		if n > 1 {
			v.DuplicateSession += n - 1
		}
	}

	for _, cid := range scope {
		c, ok := ds.Courses[cid]
		if !ok {
			continue
		}
		for s := 0; s < c.Duration; s++ {
			if seenSession[SessionKey{c.ID, s}] == 0 {
				v.DuplicateSession++ // missing session counts as an I1 defect too
			}
		}
	}

	for _, a := range assignments {
		c, ok := ds.Courses[a.CourseID]
		if !ok {
			continue
		}
		r, ok := ds.Rooms[a.RoomID]
		if ok {
			if c.Enrollment() > r.Capacity {
				v.CapacityOverflow++
			}
			if !r.HasFeatures(c.RequiredFeatures) {
				v.FeatureMismatch++
			}
		}
		if fac, ok := ds.Faculty[c.FacultyID]; ok && !fac.Available(a.SlotID) {
			v.FacultyUnavail++
		}
	}

	bySlot := make(map[SlotID][]Assignment)
	for _, a := range assignments {
		bySlot[a.SlotID] = append(bySlot[a.SlotID], a)
	}
	for _, group := range bySlot {
		for i := 0; i < len(group); i++ {
			ci := ds.Courses[group[i].CourseID]
			for j := i + 1; j < len(group); j++ {
				cj := ds.Courses[group[j].CourseID]
				if group[i].RoomID == group[j].RoomID {
					v.RoomConflict++
				}
				if ci.FacultyID != "" && ci.FacultyID == cj.FacultyID {
					v.FacultyConflict++
				}
				if sharesStudent(ci, cj) {
					v.StudentConflict++
				}
			}
		}
	}

	return v
}

func sharesStudent(a, b Course) bool {
	small, big := a.StudentIDs, b.StudentIDs
	if len(big) < len(small) {
		small, big = big, small
	}
	for sid := range small {
		if _, ok := big[sid]; ok {
			return true
		}
	}
	return false
}

// Conflicts converts every pairwise hard-constraint violation in
// assignments into a Conflict record, merging same-slot/same-pair hits
// into a single MULTI conflict when more than one kind fires for the
// same pair. Used by Stage 3 to seed its conflict queue.
func (ds *Dataset) Conflicts(assignments []Assignment) []Conflict {
	bySlot := make(map[SlotID][]Assignment)
	for _, a := range assignments {
		bySlot[a.SlotID] = append(bySlot[a.SlotID], a)
	}
	slots := make([]SlotID, 0, len(bySlot))
	for slot := range bySlot {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var out []Conflict
	for _, slot := range slots {
		group := bySlot[slot]
		sort.Slice(group, func(i, j int) bool {
			if group[i].CourseID != group[j].CourseID {
				return group[i].CourseID < group[j].CourseID
			}
			return group[i].SessionIndex < group[j].SessionIndex
		})
		for i := 0; i < len(group); i++ {
			ci := ds.Courses[group[i].CourseID]
			for j := i + 1; j < len(group); j++ {
				cj := ds.Courses[group[j].CourseID]

				kinds := 0
				var kind ConflictKind
				if group[i].RoomID == group[j].RoomID {
					kind, kinds = ConflictRoom, kinds+1
				}
				if ci.FacultyID != "" && ci.FacultyID == cj.FacultyID {
					kind, kinds = ConflictFaculty, kinds+1
				}
				if sharesStudent(ci, cj) {
					kind, kinds = ConflictStudent, kinds+1
				}
				if kinds == 0 {
					continue
				}
				if kinds > 1 {
					kind = ConflictMulti
				}
				out = append(out, Conflict{
					Kind:      kind,
					SlotID:    slot,
					CourseIDs: []CourseID{ci.ID, cj.ID},
				})
			}
		}
	}
	return out
}
