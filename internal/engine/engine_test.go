package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/engine"
	"timetable-engine/internal/progress"
	"timetable-engine/internal/resolve"
)

func set(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func smallInput() engine.Input {
	return engine.Input{
		Courses: []domain.Course{
			{ID: "C1", Code: "C1", FacultyID: "F1", StudentIDs: set("s1"), Duration: 1},
			{ID: "C2", Code: "C2", FacultyID: "F2", StudentIDs: set("s1"), Duration: 1},
			{ID: "C3", Code: "C3", FacultyID: "F1", StudentIDs: set("s2"), Duration: 1},
		},
		Faculty: []domain.Faculty{
			{ID: "F1", PreferredSlots: map[domain.SlotID]float64{"T1": 0.9, "T2": 0.4}},
			{ID: "F2", PreferredSlots: map[domain.SlotID]float64{"T1": 0.3, "T2": 0.8}},
		},
		Rooms: []domain.Room{
			{ID: "R1", Capacity: 50},
			{ID: "R2", Capacity: 50},
		},
		TimeSlots: []domain.TimeSlot{
			{ID: "T1", Day: 0, Order: 0},
			{ID: "T2", Day: 0, Order: 1},
		},
		Seed:      42,
		QTableKey: &domain.QTableKey{OrgID: "univ", SemesterID: "2026-1"},
		JobID:     "test-run",
	}
}

func TestGenerateTimetable_SmallDatasetProducesACompleteAssignment(t *testing.T) {
	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	result, err := engine.GenerateTimetable(context.Background(), smallInput(), sink, resolve.NewMemStore())
	require.NoError(t, err)
	require.False(t, result.Cancelled)
	require.Len(t, result.Assignments, 3)
	require.Equal(t, 0, result.Quality.Violations.Total())
	require.NotEmpty(t, events)
	require.GreaterOrEqual(t, result.Statistics.ClusterCount, 1)
}

func TestGenerateTimetable_InvalidInputReturnsErrInputInvariantViolation(t *testing.T) {
	input := engine.Input{
		Courses: []domain.Course{
			{ID: "C1", Code: "C1", StudentIDs: set("s1", "s2", "s3"), Duration: 1},
		},
		Rooms:     []domain.Room{{ID: "R1", Capacity: 1}},
		TimeSlots: []domain.TimeSlot{{ID: "T1", Order: 0}},
	}

	_, err := engine.GenerateTimetable(context.Background(), input, nil, resolve.NewMemStore())
	require.ErrorIs(t, err, engine.ErrInputInvariantViolation)
}

func TestGenerateTimetable_EmptyInputReturnsEmptyResult(t *testing.T) {
	result, err := engine.GenerateTimetable(context.Background(), engine.Input{}, nil, resolve.NewMemStore())
	require.NoError(t, err)
	require.Empty(t, result.Assignments)
	require.False(t, result.Cancelled)
}

func TestGenerateTimetable_CancelledContextSurfacesAsResultCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.GenerateTimetable(ctx, smallInput(), nil, resolve.NewMemStore())
	require.NoError(t, err)
	require.True(t, result.Cancelled)
}

func TestGenerateTimetable_SameSeedIsDeterministic(t *testing.T) {
	first, err := engine.GenerateTimetable(context.Background(), smallInput(), nil, resolve.NewMemStore())
	require.NoError(t, err)

	second, err := engine.GenerateTimetable(context.Background(), smallInput(), nil, resolve.NewMemStore())
	require.NoError(t, err)

	if diff := cmp.Diff(first.Assignments, second.Assignments); diff != "" {
		t.Errorf("same seed produced different assignments (-first +second):\n%s", diff)
	}
	require.Equal(t, first.Quality, second.Quality)
}

func TestGenerateTimetable_DeadlineIsHonoredAsCancellation(t *testing.T) {
	input := smallInput()
	input.Deadline = time.Nanosecond

	result, err := engine.GenerateTimetable(context.Background(), input, nil, resolve.NewMemStore())
	require.NoError(t, err)
	require.True(t, result.Cancelled)
}
