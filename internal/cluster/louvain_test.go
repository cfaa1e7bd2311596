package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"timetable-engine/internal/cluster"
	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/graph"
)

func TestDetect_TwoDisjointCliquesBecomeTwoClusters(t *testing.T) {
	courses := []domain.Course{
		{ID: "A1", Code: "A1", FacultyID: "FA"},
		{ID: "A2", Code: "A2", FacultyID: "FA"},
		{ID: "A3", Code: "A3", FacultyID: "FA"},
		{ID: "B1", Code: "B1", FacultyID: "FB"},
		{ID: "B2", Code: "B2", FacultyID: "FB"},
		{ID: "B3", Code: "B3", FacultyID: "FB"},
	}
	ds := domain.NewDataset(courses, nil, nil, nil, nil)
	cg, err := graph.Build(ds, config.GraphWeights{Faculty: 10})
	require.NoError(t, err)

	clusters, _ := cluster.Detect(cg, config.ClusterBounds{MinSize: 1, MaxSize: 50})

	require.Len(t, clusters, 2)
	found := map[string]int{}
	for _, c := range clusters {
		for _, cid := range c.CourseIDs {
			found[cid] = c.ID
		}
	}
	require.Equal(t, found["A1"], found["A2"])
	require.Equal(t, found["A2"], found["A3"])
	require.Equal(t, found["B1"], found["B2"])
	require.NotEqual(t, found["A1"], found["B1"])
}

func TestDetect_EmptyGraphYieldsNoClusters(t *testing.T) {
	ds := domain.NewDataset(nil, nil, nil, nil, nil)
	cg, err := graph.Build(ds, config.GraphWeights{Faculty: 10})
	require.NoError(t, err)
	clusters, report := cluster.Detect(cg, config.ClusterBounds{MinSize: 5, MaxSize: 50})
	require.Empty(t, clusters)
	require.True(t, report.MeetsThresholds)
}
