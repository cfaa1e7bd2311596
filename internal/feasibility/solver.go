package feasibility

import (
	"context"
	"sort"

	"k8s.io/klog/v2"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
)

// Result is one cluster's feasibility outcome.
type Result struct {
	Assignments map[domain.SessionKey]Candidate
	Strategy    string
	Feasible    bool
	Cancelled   bool
}

// Solve tries the relaxation ladder in order, returning the first
// feasible assignment. ctx is checked at every strategy boundary per
// §4.6/§5; a rung that only exceeds its own Timeout is treated as failed
// and the next rung is tried.
func Solve(ctx context.Context, ds *domain.Dataset, courseIDs []domain.CourseID, candidates CandidateDomain, ladder []config.RelaxationStrategy, criticalMinCourses int) Result {
	studentCourses := ds.StudentCourses()
	inCluster := make(map[domain.CourseID]bool, len(courseIDs))
	for _, c := range courseIDs {
		inCluster[c] = true
	}

	for _, strategy := range ladder {
		if err := ctx.Err(); err != nil {
			return Result{Cancelled: true, Strategy: strategy.Name}
		}

		strategyCtx, cancel := context.WithTimeout(ctx, strategy.Timeout)
		assignment, ok, cancelled := search(strategyCtx, ds, courseIDs, candidates, strategy, studentCourses, inCluster, criticalMinCourses)
		cancel()

		if cancelled {
			if ctx.Err() != nil {
				return Result{Cancelled: true, Strategy: strategy.Name}
			}
			klog.V(2).Infof("feasibility: rung %q timed out for cluster of %d courses, relaxing", strategy.Name, len(courseIDs))
			continue
		}
		if ok {
			klog.V(2).Infof("feasibility: cluster solved at rung %q (%d courses)", strategy.Name, len(courseIDs))
			return Result{Assignments: assignment, Strategy: strategy.Name, Feasible: true}
		}
		klog.V(2).Infof("feasibility: rung %q failed for cluster of %d courses, relaxing", strategy.Name, len(courseIDs))
	}
	return Result{Feasible: false}
}

type searchState struct {
	assignment map[domain.SessionKey]Candidate
	// occupancy trackers, keyed by (t) for faculty/room/student uniqueness.
	facultyAtSlot map[domain.SlotID]map[domain.FacultyID]bool
	roomAtSlot    map[domain.SlotID]map[domain.RoomID]bool
	studentAtSlot map[domain.SlotID]map[domain.StudentID]bool
}

// search performs deterministic backtracking over the session order
// (decreasing enrollment*duration, tie-break course_id then session
// index), enforcing the constraints named by strategy. It returns
// cancelled=true if the context deadline/cancellation fires mid-search.
func search(ctx context.Context, ds *domain.Dataset, courseIDs []domain.CourseID, candidates CandidateDomain, strategy config.RelaxationStrategy, studentCourses map[domain.StudentID][]domain.CourseID, inCluster map[domain.CourseID]bool, criticalMinCourses int) (map[domain.SessionKey]Candidate, bool, bool) {
	sessions := orderedSessions(ds, courseIDs)

	criticalStudents := criticalStudentSet(studentCourses, inCluster, criticalMinCourses)

	st := &searchState{
		assignment:    make(map[domain.SessionKey]Candidate),
		facultyAtSlot: make(map[domain.SlotID]map[domain.FacultyID]bool),
		roomAtSlot:    make(map[domain.SlotID]map[domain.RoomID]bool),
		studentAtSlot: make(map[domain.SlotID]map[domain.StudentID]bool),
	}

	ok, cancelled := backtrack(ctx, 0, sessions, ds, candidates, strategy, st, criticalStudents)
	if cancelled {
		return nil, false, true
	}
	if !ok {
		return nil, false, false
	}
	return st.assignment, true, false
}

func backtrack(ctx context.Context, idx int, sessions []domain.SessionKey, ds *domain.Dataset, candidates CandidateDomain, strategy config.RelaxationStrategy, st *searchState, criticalStudents map[domain.StudentID]bool) (bool, bool) {
	if idx == len(sessions) {
		return true, false
	}
	if err := ctx.Err(); err != nil {
		return false, true
	}

	key := sessions[idx]
	course := ds.Courses[key.CourseID]

	for _, cand := range candidates[key] {
		if !compatible(ds, course, key, cand, strategy, st, criticalStudents) {
			continue
		}
		commit(ds, course, key, cand, st)

		ok, cancelled := backtrack(ctx, idx+1, sessions, ds, candidates, strategy, st, criticalStudents)
		if cancelled {
			return false, true
		}
		if ok {
			return true, false
		}
		rollback(ds, course, key, cand, st)
	}
	return false, false
}

func compatible(ds *domain.Dataset, course domain.Course, key domain.SessionKey, cand Candidate, strategy config.RelaxationStrategy, st *searchState, criticalStudents map[domain.StudentID]bool) bool {
	if course.FacultyID != "" {
		if st.facultyAtSlot[cand.SlotID][course.FacultyID] {
			return false
		}
	}
	if strategy.EnforceRoomUniqueness && st.roomAtSlot[cand.SlotID][cand.RoomID] {
		return false
	}

	if strategy.StudentConflictScope == config.StudentConflictNone {
		return true
	}
	for sid := range course.StudentIDs {
		if strategy.StudentConflictScope == config.StudentConflictCritical && !criticalStudents[sid] {
			continue
		}
		if st.studentAtSlot[cand.SlotID][sid] {
			return false
		}
	}
	return true
}

func commit(ds *domain.Dataset, course domain.Course, key domain.SessionKey, cand Candidate, st *searchState) {
	st.assignment[key] = cand
	ensureFaculty(st, cand.SlotID)[course.FacultyID] = true
	ensureRoom(st, cand.SlotID)[cand.RoomID] = true
	students := ensureStudent(st, cand.SlotID)
	for sid := range course.StudentIDs {
		students[sid] = true
	}
}

func rollback(ds *domain.Dataset, course domain.Course, key domain.SessionKey, cand Candidate, st *searchState) {
	delete(st.assignment, key)
	delete(st.facultyAtSlot[cand.SlotID], course.FacultyID)
	delete(st.roomAtSlot[cand.SlotID], cand.RoomID)
	for sid := range course.StudentIDs {
		delete(st.studentAtSlot[cand.SlotID], sid)
	}
}

func ensureFaculty(st *searchState, slot domain.SlotID) map[domain.FacultyID]bool {
	if st.facultyAtSlot[slot] == nil {
		st.facultyAtSlot[slot] = make(map[domain.FacultyID]bool)
	}
	return st.facultyAtSlot[slot]
}

func ensureRoom(st *searchState, slot domain.SlotID) map[domain.RoomID]bool {
	if st.roomAtSlot[slot] == nil {
		st.roomAtSlot[slot] = make(map[domain.RoomID]bool)
	}
	return st.roomAtSlot[slot]
}

func ensureStudent(st *searchState, slot domain.SlotID) map[domain.StudentID]bool {
	if st.studentAtSlot[slot] == nil {
		st.studentAtSlot[slot] = make(map[domain.StudentID]bool)
	}
	return st.studentAtSlot[slot]
}

// orderedSessions lists every (course,session) in the cluster in
// decreasing (enrollment*duration) order, tie-broken by course_id then
// session index, matching the deterministic ordering required by §5 and
// reused by the greedy fallback.
func orderedSessions(ds *domain.Dataset, courseIDs []domain.CourseID) []domain.SessionKey {
	type weighted struct {
		key    domain.SessionKey
		weight int
	}
	var all []weighted
	for _, cid := range courseIDs {
		c := ds.Courses[cid]
		for s := 0; s < c.Duration; s++ {
			all = append(all, weighted{domain.SessionKey{CourseID: cid, SessionIndex: s}, c.Enrollment() * c.Duration})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].weight != all[j].weight {
			return all[i].weight > all[j].weight
		}
		if all[i].key.CourseID != all[j].key.CourseID {
			return all[i].key.CourseID < all[j].key.CourseID
		}
		return all[i].key.SessionIndex < all[j].key.SessionIndex
	})
	out := make([]domain.SessionKey, len(all))
	for i, w := range all {
		out[i] = w.key
	}
	return out
}

func criticalStudentSet(studentCourses map[domain.StudentID][]domain.CourseID, inCluster map[domain.CourseID]bool, minCourses int) map[domain.StudentID]bool {
	out := make(map[domain.StudentID]bool)
	for sid, courses := range studentCourses {
		count := 0
		for _, cid := range courses {
			if inCluster[cid] {
				count++
			}
		}
		if count >= minCourses {
			out[sid] = true
		}
	}
	return out
}
