package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Dataset is the full read-only input to one generation run: every entity
// the pipeline needs, indexed for O(1) lookup. Dataset is immutable once
// returned by NewDataset; no stage mutates it.
type Dataset struct {
	Courses   map[CourseID]Course
	Faculty   map[FacultyID]Faculty
	Rooms     map[RoomID]Room
	TimeSlots map[SlotID]TimeSlot
	Students  map[StudentID]Student

	// CourseOrder is Courses' keys in a stable, deterministic order
	// (by Code then ID) so every stage that iterates courses does so
	// identically across runs.
	CourseOrder []CourseID
	RoomOrder   []RoomID
	SlotOrder   []SlotID
}

// NewDataset builds a Dataset from flat slices, indexing everything and
// fixing deterministic iteration orders.
func NewDataset(courses []Course, faculty []Faculty, rooms []Room, slots []TimeSlot, students []Student) *Dataset {
	ds := &Dataset{
		Courses:   make(map[CourseID]Course, len(courses)),
		Faculty:   make(map[FacultyID]Faculty, len(faculty)),
		Rooms:     make(map[RoomID]Room, len(rooms)),
		TimeSlots: make(map[SlotID]TimeSlot, len(slots)),
		Students:  make(map[StudentID]Student, len(students)),
	}
	for _, c := range courses {
		ds.Courses[c.ID] = c
		ds.CourseOrder = append(ds.CourseOrder, c.ID)
	}
	for _, f := range faculty {
		ds.Faculty[f.ID] = f
	}
	for _, r := range rooms {
		ds.Rooms[r.ID] = r
		ds.RoomOrder = append(ds.RoomOrder, r.ID)
	}
	for _, s := range slots {
		ds.TimeSlots[s.ID] = s
		ds.SlotOrder = append(ds.SlotOrder, s.ID)
	}
	for _, s := range students {
		ds.Students[s.ID] = s
	}

	sort.Slice(ds.CourseOrder, func(i, j int) bool {
		ci, cj := ds.Courses[ds.CourseOrder[i]], ds.Courses[ds.CourseOrder[j]]
		if ci.Code != cj.Code {
			return ci.Code < cj.Code
		}
		return ci.ID < cj.ID
	})
	sort.Strings(ds.RoomOrder)
	sort.Slice(ds.SlotOrder, func(i, j int) bool {
		si, sj := ds.TimeSlots[ds.SlotOrder[i]], ds.TimeSlots[ds.SlotOrder[j]]
		if si.Order != sj.Order {
			return si.Order < sj.Order
		}
		return si.ID < sj.ID
	})

	return ds
}

// ValidationError aggregates every invariant violation found while
// validating a Dataset, so a caller fixes them all at once instead of
// one round-trip per error.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input invariant violation (%d): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// Validate checks I5 (capacity), I6 (features) and I7 (faculty availability)
// at load time: for each course, at least one room must be able to host it,
// and if the course's faculty has a restricted availability window, at
// least one slot must be in that window. These are the only invariants
// that can be violated by the input itself rather than by a bad
// assignment, so they are the only ones checked here.
func (ds *Dataset) Validate() error {
	var violations []string

	for _, cid := range ds.CourseOrder {
		c := ds.Courses[cid]

		hostable := false
		for _, rid := range ds.RoomOrder {
			r := ds.Rooms[rid]
			if c.Enrollment() <= r.Capacity && r.HasFeatures(c.RequiredFeatures) {
				hostable = true
				break
			}
		}
		if !hostable {
			violations = append(violations, fmt.Sprintf(
				"course %s (enrollment=%d, features=%v) has no room satisfying capacity and features",
				c.ID, c.Enrollment(), keys(c.RequiredFeatures)))
		}

		if fac, ok := ds.Faculty[c.FacultyID]; ok && !fac.Unrestricted() {
			available := false
			for _, sid := range ds.SlotOrder {
				if fac.Available(sid) {
					available = true
					break
				}
			}
			if !available {
				violations = append(violations, fmt.Sprintf(
					"course %s faculty %s has an empty intersection of available slots with the slot catalog",
					c.ID, c.FacultyID))
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StudentCourses inverts Course.StudentIDs into student -> courses they are
// enrolled in, used by the constraint graph builder and the feasibility
// solver's student non-conflict constraint.
func (ds *Dataset) StudentCourses() map[StudentID][]CourseID {
	out := make(map[StudentID][]CourseID)
	for _, cid := range ds.CourseOrder {
		c := ds.Courses[cid]
		for sid := range c.StudentIDs {
			out[sid] = append(out[sid], cid)
		}
	}
	for sid := range out {
		sort.Strings(out[sid])
	}
	return out
}
