package feasibility_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
)

func set(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestSolve_TwoCourseNoConflictScenario(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", FacultyID: "F1", StudentIDs: set("s1", "s2"), Duration: 1},
			{ID: "C2", Code: "C2", FacultyID: "F2", StudentIDs: set("s3"), Duration: 1},
		},
		[]domain.Faculty{{ID: "F1"}, {ID: "F2"}},
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}, {ID: "T2", Order: 1}},
		nil,
	)
	courseIDs := []domain.CourseID{"C1", "C2"}
	candidates := feasibility.Precompute(ds, courseIDs)
	cfg := config.Default()

	result := feasibility.Solve(context.Background(), ds, courseIDs, candidates, cfg.RelaxationLadder, cfg.CriticalStudentMinCourses)
	require.True(t, result.Feasible)
	require.Len(t, result.Assignments, 2)

	var assignments []domain.Assignment
	for key, cand := range result.Assignments {
		assignments = append(assignments, domain.Assignment{CourseID: key.CourseID, SessionIndex: key.SessionIndex, SlotID: cand.SlotID, RoomID: cand.RoomID})
	}
	violations := ds.CheckAssignments(assignments)
	require.Equal(t, 0, violations.Total())
}

func TestSolve_ForcedStudentConflictUsesDifferentSlots(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", StudentIDs: set("s1"), Duration: 1},
			{ID: "C2", Code: "C2", StudentIDs: set("s1"), Duration: 1},
		},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}, {ID: "T2", Order: 1}},
		nil,
	)
	courseIDs := []domain.CourseID{"C1", "C2"}
	candidates := feasibility.Precompute(ds, courseIDs)
	cfg := config.Default()

	result := feasibility.Solve(context.Background(), ds, courseIDs, candidates, cfg.RelaxationLadder, cfg.CriticalStudentMinCourses)
	require.True(t, result.Feasible)

	slots := map[domain.SlotID]bool{}
	for _, cand := range result.Assignments {
		slots[cand.SlotID] = true
	}
	require.Len(t, slots, 2, "expected the two conflicting courses to land on different slots")
}

func TestSolve_FacultyAvailabilityForcesTheAvailableSlot(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", FacultyID: "F1", Duration: 1}},
		[]domain.Faculty{{ID: "F1", AvailableSlotIDs: map[domain.SlotID]struct{}{"T2": {}}}},
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}, {ID: "T2", Order: 1}},
		nil,
	)
	courseIDs := []domain.CourseID{"C1"}
	candidates := feasibility.Precompute(ds, courseIDs)
	cfg := config.Default()

	result := feasibility.Solve(context.Background(), ds, courseIDs, candidates, cfg.RelaxationLadder, cfg.CriticalStudentMinCourses)
	require.True(t, result.Feasible)
	for key, cand := range result.Assignments {
		require.Equal(t, "C1", string(key.CourseID))
		require.Equal(t, domain.SlotID("T2"), cand.SlotID)
	}
}

func TestGreedy_LeavesUnassignedRatherThanForcingAConflict(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", Duration: 1}},
		nil,
		nil, // no rooms at all
		[]domain.TimeSlot{{ID: "T1", Order: 0}},
		nil,
	)
	courseIDs := []domain.CourseID{"C1"}
	candidates := feasibility.Precompute(ds, courseIDs)

	_, unassigned := feasibility.Greedy(ds, courseIDs, candidates)
	require.Len(t, unassigned, 1)
}
