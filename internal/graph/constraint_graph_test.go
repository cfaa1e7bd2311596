package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/graph"
)

func TestBuild_SharedFacultyProducesAnEdge(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", FacultyID: "F1"},
			{ID: "C2", Code: "C2", FacultyID: "F1"},
			{ID: "C3", Code: "C3", FacultyID: "F2"},
		},
		nil, nil, nil, nil,
	)

	cg, err := graph.Build(ds, config.GraphWeights{Faculty: 10, Student: 10, Feature: 3})
	require.NoError(t, err)
	require.Equal(t, 10.0, cg.Weight("C1", "C2"))
	require.Equal(t, 0.0, cg.Weight("C1", "C3"))
}

func TestBuild_StudentOverlapIsNormalizedByMaxEnrollment(t *testing.T) {
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1", StudentIDs: studentSet("s1", "s2")},
			{ID: "C2", Code: "C2", StudentIDs: studentSet("s1", "s2", "s3", "s4")},
		},
		nil, nil, nil, nil,
	)

	cg, err := graph.Build(ds, config.GraphWeights{Student: 10})
	require.NoError(t, err)
	// 2 shared students / max(2,4) = 0.5 -> weight 5
	require.InDelta(t, 5.0, cg.Weight("C1", "C2"), 1e-9)
}

func TestBuild_BatchOverlapIsNotAnEdgeSignal(t *testing.T) {
	// Two courses share no faculty, no students, no features: must not be
	// connected even if a caller-side notion of "batch" would group them.
	ds := domain.NewDataset(
		[]domain.Course{
			{ID: "C1", Code: "C1"},
			{ID: "C2", Code: "C2"},
		},
		nil, nil, nil, nil,
	)
	cg, err := graph.Build(ds, config.GraphWeights{Faculty: 10, Student: 10, Feature: 3})
	require.NoError(t, err)
	require.Equal(t, 0.0, cg.Weight("C1", "C2"))
	require.Empty(t, cg.Edges())
}

func studentSet(ids ...string) map[domain.StudentID]struct{} {
	out := make(map[domain.StudentID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
