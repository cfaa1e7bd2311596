package optimize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
	"timetable-engine/internal/optimize"
)

func set(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func buildSmallDataset() *domain.Dataset {
	return domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", FacultyID: "F1", StudentIDs: set("s1"), Duration: 1},
			{ID: "C2", Code: "C2", FacultyID: "F2", StudentIDs: set("s2"), Duration: 1},
		},
		[]domain.Faculty{
			{ID: "F1", PreferredSlots: map[domain.SlotID]float64{"T1": 1.0, "T2": 0.2}},
			{ID: "F2", PreferredSlots: map[domain.SlotID]float64{"T1": 0.3, "T2": 0.9}},
		},
		[]domain.Room{{ID: "R1", Capacity: 50}, {ID: "R2", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1", Day: 0, Order: 0}, {ID: "T2", Day: 0, Order: 1}},
		nil,
	)
}

func TestRun_NeverIntroducesAHardViolationRelativeToSeed(t *testing.T) {
	ds := buildSmallDataset()
	courseIDs := []domain.CourseID{"C1", "C2"}
	candidates := feasibility.Precompute(ds, courseIDs)
	cfg := config.Default()

	solved := feasibility.Solve(context.Background(), ds, courseIDs, candidates, cfg.RelaxationLadder, cfg.CriticalStudentMinCourses)
	require.True(t, solved.Feasible)

	seed := optimize.Genome(solved.Assignments)
	result := optimize.Run(context.Background(), ds, 0, seed, candidates, cfg.GA, 42, len(courseIDs))

	violations := ds.CheckAssignments(result.Best.ToAssignments())
	require.Equal(t, 0, violations.Total())
}

func TestRun_EmptySeedReturnsEmptyResult(t *testing.T) {
	ds := buildSmallDataset()
	cfg := config.Default()
	result := optimize.Run(context.Background(), ds, 0, optimize.Genome{}, feasibility.CandidateDomain{}, cfg.GA, 7, 0)
	require.Empty(t, result.Best)
}
