package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/domain"
)

func studentSet(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestValidate_CapacityViolationIsReported(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", StudentIDs: studentSet("s1", "s2", "s3"), Duration: 1}},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 2}},
		[]domain.TimeSlot{{ID: "T1", Order: 0}},
		nil,
	)

	err := ds.Validate()
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Violations, 1)
}

func TestValidate_FeatureGatingRequiresAMatchingRoom(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", RequiredFeatures: map[string]struct{}{"PROJECTOR": {}}, Duration: 1}},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1"}},
		nil,
	)
	require.Error(t, ds.Validate())

	ds2 := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", RequiredFeatures: map[string]struct{}{"PROJECTOR": {}}, Duration: 1}},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50, Features: map[string]struct{}{"PROJECTOR": {}}}},
		[]domain.TimeSlot{{ID: "T1"}},
		nil,
	)
	require.NoError(t, ds2.Validate())
}

func TestCheckAssignments_DetectsRoomFacultyAndStudentConflicts(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", FacultyID: "F1", StudentIDs: studentSet("s1"), Duration: 1},
			{ID: "C2", Code: "C2", FacultyID: "F1", StudentIDs: studentSet("s1"), Duration: 1},
		},
		[]domain.Faculty{{ID: "F1"}},
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1"}},
		nil,
	)

	violations := ds.CheckAssignments([]domain.Assignment{
		{CourseID: "C1", SessionIndex: 0, SlotID: "T1", RoomID: "R1"},
		{CourseID: "C2", SessionIndex: 0, SlotID: "T1", RoomID: "R1"},
	})

	require.Equal(t, 1, violations.RoomConflict)
	require.Equal(t, 1, violations.FacultyConflict)
	require.Equal(t, 1, violations.StudentConflict)
	require.Equal(t, 0, violations.DuplicateSession)
}

func TestCheckAssignments_MissingSessionCountsAsI1(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{{ID: "C1", Code: "C1", Duration: 2}},
		nil,
		[]domain.Room{{ID: "R1", Capacity: 50}},
		[]domain.TimeSlot{{ID: "T1"}},
		nil,
	)
	violations := ds.CheckAssignments([]domain.Assignment{
		{CourseID: "C1", SessionIndex: 0, SlotID: "T1", RoomID: "R1"},
	})
	require.Equal(t, 1, violations.DuplicateSession)
}
