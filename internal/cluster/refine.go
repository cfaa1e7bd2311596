package cluster

import (
	"sort"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/graph"
)

// refine enforces the cluster size bounds: clusters above MaxSize are
// bisected by greedy min-cut, clusters below MinSize are merged into the
// community they are most tightly coupled to. One pass is applied on every
// run (SPEC_FULL.md §4.2); a cluster still out of bounds afterwards is not
// an error.
func refine(cg *graph.ConstraintGraph, community map[domain.CourseID]int, bounds config.ClusterBounds) map[domain.CourseID]int {
	if bounds.MaxSize > 0 {
		community = bisectOversized(cg, community, bounds.MaxSize)
	}
	if bounds.MinSize > 0 {
		community = mergeUndersized(cg, community, bounds.MinSize)
	}
	return community
}

func bisectOversized(cg *graph.ConstraintGraph, community map[domain.CourseID]int, maxSize int) map[domain.CourseID]int {
	byCommunity := groupBy(community)
	nextID := nextCommunityID(byCommunity)

	ids := sortedKeys(byCommunity)
	for _, cid := range ids {
		members := byCommunity[cid]
		if len(members) <= maxSize {
			continue
		}
		sideA, sideB := greedyBisect(cg, members)
		for _, v := range sideB {
			community[v] = nextID
		}
		nextID++
		// sideA keeps the original id; if still oversized, the same loop
		// body does not revisit it (single pass). A residual oversize is
		// left as is; Report does not check cluster sizes.
		_ = sideA
	}
	return community
}

// greedyBisect seeds two sides from the lowest-degree vertex pair, then
// places every other member, in increasing degree order (ties by id), on
// the side it has more edge weight to, ties going to the smaller side. It
// is a single deterministic greedy pass; members are not moved again once
// placed.
func greedyBisect(cg *graph.ConstraintGraph, members []domain.CourseID) (sideA, sideB []domain.CourseID) {
	sorted := append([]domain.CourseID(nil), members...)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := cg.Degree(sorted[i]), cg.Degree(sorted[j])
		if di != dj {
			return di < dj
		}
		return sorted[i] < sorted[j]
	})
	if len(sorted) < 2 {
		return sorted, nil
	}

	seedA, seedB := sorted[0], sorted[1]
	sideA = []domain.CourseID{seedA}
	sideB = []domain.CourseID{seedB}
	placed := map[domain.CourseID]bool{seedA: true, seedB: true}

	rest := sorted[2:]
	for _, v := range rest {
		_ = placed
		wa, wb := 0.0, 0.0
		for _, a := range sideA {
			wa += cg.Weight(v, a)
		}
		for _, b := range sideB {
			wb += cg.Weight(v, b)
		}
		switch {
		case wa > wb, wa == wb && len(sideA) <= len(sideB):
			sideA = append(sideA, v)
		default:
			sideB = append(sideB, v)
		}
	}
	sort.Strings(sideA)
	sort.Strings(sideB)
	return sideA, sideB
}

func mergeUndersized(cg *graph.ConstraintGraph, community map[domain.CourseID]int, minSize int) map[domain.CourseID]int {
	byCommunity := groupBy(community)
	ids := sortedKeys(byCommunity)

	for _, cid := range ids {
		members := byCommunity[cid]
		if len(members) >= minSize || len(members) == 0 {
			continue
		}
		target := mostCoupledCommunity(cg, members, cid, byCommunity)
		if target == cid {
			continue
		}
		for _, v := range members {
			community[v] = target
		}
		byCommunity[target] = append(byCommunity[target], members...)
		byCommunity[cid] = nil
	}
	return community
}

func mostCoupledCommunity(cg *graph.ConstraintGraph, members []domain.CourseID, self int, byCommunity map[int][]domain.CourseID) int {
	weightTo := make(map[int]float64)
	for _, v := range members {
		neighbors, _ := cg.Neighbors(v)
		for _, n := range neighbors {
			for other, group := range byCommunity {
				if other == self {
					continue
				}
				for _, m := range group {
					if m == n {
						weightTo[other] += cg.Weight(v, n)
					}
				}
			}
		}
	}
	best, bestWeight := self, 0.0
	ids := make([]int, 0, len(weightTo))
	for id := range weightTo {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if weightTo[id] > bestWeight {
			bestWeight = weightTo[id]
			best = id
		}
	}
	return best
}

func groupBy(community map[domain.CourseID]int) map[int][]domain.CourseID {
	out := make(map[int][]domain.CourseID)
	for v, c := range community {
		out[c] = append(out[c], v)
	}
	return out
}

func sortedKeys(m map[int][]domain.CourseID) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func nextCommunityID(byCommunity map[int][]domain.CourseID) int {
	max := -1
	for id := range byCommunity {
		if id > max {
			max = id
		}
	}
	return max + 1
}
