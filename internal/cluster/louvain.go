// Package cluster implements Stage 1's community detector (C3): a
// Louvain-style modularity optimization over the constraint graph, with
// size-bound refinement (bisect large communities, merge small ones).
package cluster

import (
	"sort"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/graph"
)

// Report carries the clustering's quality metrics, per §4.2.
type Report struct {
	Modularity      float64
	IntraDensity    map[int]float64
	InterCoupling   float64
	MeetsThresholds bool
}

// Detect partitions cg into clusters, applying Louvain-style local-move
// modularity optimization followed by size-bound refinement. It is
// deterministic given the same graph and bounds: iteration order over
// vertices is always cg.Vertices()' (already sorted) order.
func Detect(cg *graph.ConstraintGraph, bounds config.ClusterBounds) ([]domain.Cluster, Report) {
	vertices := cg.Vertices()
	if len(vertices) == 0 {
		return nil, Report{MeetsThresholds: true}
	}

	communityOf := louvain(cg, vertices)
	communityOf = refine(cg, communityOf, bounds)

	clusters := toClusters(communityOf)
	report := evaluate(cg, clusters, bounds)
	return clusters, report
}

// louvain runs Louvain's local-move phase, sweeping the vertices until no
// single-vertex move improves modularity. Communities are not aggregated
// into super-vertices for a second level. It returns a course ->
// community-id map.
func louvain(cg *graph.ConstraintGraph, vertices []domain.CourseID) map[domain.CourseID]int {
	community := make(map[domain.CourseID]int, len(vertices))
	for i, v := range vertices {
		community[v] = i
	}

	totalWeight := cg.TotalWeight()
	if totalWeight == 0 {
		// No edges at all: every course is its own singleton community.
		return community
	}

	degree := make(map[domain.CourseID]float64, len(vertices))
	for _, v := range vertices {
		degree[v] = cg.Degree(v)
	}

	improved := true
	for improved {
		improved = false
		for _, v := range vertices {
			neighbors, _ := cg.Neighbors(v)
			best := community[v]
			bestGain := modularityGain(cg, v, community[v], community, degree, totalWeight)

			candidates := map[int]struct{}{community[v]: {}}
			for _, n := range neighbors {
				candidates[community[n]] = struct{}{}
			}
			communityIDs := make([]int, 0, len(candidates))
			for c := range candidates {
				communityIDs = append(communityIDs, c)
			}
			sort.Ints(communityIDs)

			for _, c := range communityIDs {
				if c == community[v] {
					continue
				}
				gain := modularityGain(cg, v, c, community, degree, totalWeight)
				if gain > bestGain {
					bestGain = gain
					best = c
				}
			}
			if best != community[v] {
				community[v] = best
				improved = true
			}
		}
	}
	return community
}

// modularityGain approximates the modularity delta from moving vertex v
// into community target: sum of edge weights from v into target, minus the
// expected weight under the null model (degree product / 2m).
func modularityGain(cg *graph.ConstraintGraph, v domain.CourseID, target int, community map[domain.CourseID]int, degree map[domain.CourseID]float64, totalWeight float64) float64 {
	neighbors, _ := cg.Neighbors(v)
	var weightIntoTarget, targetDegree float64
	for _, n := range neighbors {
		if community[n] == target {
			weightIntoTarget += cg.Weight(v, n)
		}
	}
	for other, c := range community {
		if c == target && other != v {
			targetDegree += degree[other]
		}
	}
	expected := degree[v] * targetDegree / (2 * totalWeight)
	return weightIntoTarget - expected
}

func toClusters(community map[domain.CourseID]int) []domain.Cluster {
	byCommunity := make(map[int][]domain.CourseID)
	for v, c := range community {
		byCommunity[c] = append(byCommunity[c], v)
	}
	ids := make([]int, 0, len(byCommunity))
	for c := range byCommunity {
		ids = append(ids, c)
	}
	sort.Ints(ids)

	clusters := make([]domain.Cluster, 0, len(ids))
	for newID, old := range ids {
		courses := byCommunity[old]
		sort.Strings(courses)
		clusters = append(clusters, domain.Cluster{ID: newID, CourseIDs: courses})
	}
	return clusters
}

func evaluate(cg *graph.ConstraintGraph, clusters []domain.Cluster, bounds config.ClusterBounds) Report {
	totalWeight := cg.TotalWeight()
	report := Report{IntraDensity: make(map[int]float64)}
	if totalWeight == 0 {
		report.MeetsThresholds = true
		return report
	}

	clusterOf := make(map[domain.CourseID]int)
	for _, c := range clusters {
		for _, cid := range c.CourseIDs {
			clusterOf[cid] = c.ID
		}
	}

	var modularitySum, crossing float64
	edges := cg.Edges()
	for _, e := range edges {
		if clusterOf[e.A] == clusterOf[e.B] {
			modularitySum += e.Weight
		} else {
			crossing += e.Weight
		}
	}
	report.Modularity = modularitySum/totalWeight - crossing/totalWeight // simplified proxy, monotone in intra/inter split
	report.InterCoupling = crossing / totalWeight

	for _, c := range clusters {
		n := len(c.CourseIDs)
		if n < 2 {
			report.IntraDensity[c.ID] = 1
			continue
		}
		var intraWeight float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				intraWeight += cg.Weight(c.CourseIDs[i], c.CourseIDs[j])
			}
		}
		possiblePairs := float64(n * (n - 1) / 2)
		report.IntraDensity[c.ID] = minF(1, intraWeight/(possiblePairs*avgEdgeWeight(cg)))
	}

	report.MeetsThresholds = report.Modularity >= bounds.MinModularity &&
		report.InterCoupling <= bounds.MaxCoupling &&
		allAtLeast(report.IntraDensity, bounds.MinIntraDensity)

	return report
}

func avgEdgeWeight(cg *graph.ConstraintGraph) float64 {
	edges := cg.Edges()
	if len(edges) == 0 {
		return 1
	}
	var sum float64
	for _, e := range edges {
		sum += e.Weight
	}
	return sum / float64(len(edges))
}

func allAtLeast(m map[int]float64, threshold float64) bool {
	for _, v := range m {
		if v < threshold {
			return false
		}
	}
	return true
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
