package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
	"timetable-engine/internal/resolve"
)

func set(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestResolve_HealsAStudentConflictLeftByClusterMerge(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", StudentIDs: set("s1"), Duration: 1},
			{ID: "C2", Code: "C2", StudentIDs: set("s1"), Duration: 1},
		},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50}, {ID: "R2", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}, {ID: "T2", Order: 1}},
		nil,
	)
	courseIDs := []domain.CourseID{"C1", "C2"}
	candidates := feasibility.Precompute(ds, courseIDs)

	initial := map[domain.SessionKey]feasibility.Candidate{
		{CourseID: "C1", SessionIndex: 0}: {SlotID: "T1", RoomID: "R1"},
		{CourseID: "C2", SessionIndex: 0}: {SlotID: "T1", RoomID: "R2"},
	}

	cfg := config.Default()
	qt := resolve.NewQTable()
	outcome := resolve.Resolve(context.Background(), ds, initial, candidates, nil, qt, cfg.QLearning, 42)

	require.Empty(t, outcome.Remaining)
	require.GreaterOrEqual(t, outcome.Resolved, 1)

	violations := ds.CheckAssignments(flattenForTest(outcome.Assignments))
	require.Equal(t, 0, violations.Total())
}

func TestResolve_NoConflictsReturnsImmediately(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", Duration: 1}},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}},
		nil,
	)
	initial := map[domain.SessionKey]feasibility.Candidate{
		{CourseID: "C1", SessionIndex: 0}: {SlotID: "T1", RoomID: "R1"},
	}
	cfg := config.Default()
	outcome := resolve.Resolve(context.Background(), ds, initial, feasibility.CandidateDomain{}, nil, resolve.NewQTable(), cfg.QLearning, 1)
	require.Equal(t, 0, outcome.Iterations)
	require.Empty(t, outcome.Remaining)
}

func flattenForTest(assignments map[domain.SessionKey]feasibility.Candidate) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(assignments))
	for key, cand := range assignments {
		out = append(out, domain.Assignment{CourseID: key.CourseID, SessionIndex: key.SessionIndex, SlotID: cand.SlotID, RoomID: cand.RoomID})
	}
	return out
}
