// Package graph builds the weighted constraint graph (C2) that Stage 1's
// community detector partitions. Vertex/adjacency bookkeeping is delegated
// to lvlath's generic graph core; the domain-specific float edge weight
// (lvlath's Edge.Weight is an integer) is kept alongside it in a float
// overlay, per the scaling note in SPEC_FULL.md §4.1.
package graph

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/core"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
)

// ConstraintGraph is an undirected weighted graph over course ids.
type ConstraintGraph struct {
	core *core.Graph

	// weight holds the true float64 edge weight; core's integer Weight
	// field is a 1000x fixed-point scaling of the same value, kept only so
	// core's own adjacency/degree bookkeeping stays meaningful.
	weight map[edgeKey]float64
}

type edgeKey struct{ a, b domain.CourseID }

func makeEdgeKey(a, b domain.CourseID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

const weightScale = 1000

// NewConstraintGraph creates an empty constraint graph with vertex ids
// registered for every course.
func NewConstraintGraph(courseIDs []domain.CourseID) (*ConstraintGraph, error) {
	g := core.NewGraph(core.WithWeighted())
	for _, id := range courseIDs {
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("constraint graph: add vertex %s: %w", id, err)
		}
	}
	return &ConstraintGraph{core: g, weight: make(map[edgeKey]float64)}, nil
}

// AddEdge adds or strengthens the edge between a and b with weight w. A
// zero or negative weight is a no-op, matching the "edges with zero weight
// are omitted" rule from §4.1.
func (cg *ConstraintGraph) AddEdge(a, b domain.CourseID, w float64) error {
	if a == b || w <= 0 {
		return nil
	}
	key := makeEdgeKey(a, b)
	if _, exists := cg.weight[key]; exists {
		cg.weight[key] += w
		return nil
	}
	cg.weight[key] = w
	if !cg.core.HasEdge(a, b) {
		if _, err := cg.core.AddEdge(a, b, int64(w*weightScale)); err != nil {
			return fmt.Errorf("constraint graph: add edge %s-%s: %w", a, b, err)
		}
	}
	return nil
}

// Weight returns the accumulated float weight between a and b, or 0 if
// they are not connected.
func (cg *ConstraintGraph) Weight(a, b domain.CourseID) float64 {
	return cg.weight[makeEdgeKey(a, b)]
}

// Vertices returns every course id registered in the graph, in lvlath's
// insertion-stable order.
func (cg *ConstraintGraph) Vertices() []domain.CourseID {
	return cg.core.Vertices()
}

// Neighbors returns the course ids adjacent to id, sorted for determinism.
func (cg *ConstraintGraph) Neighbors(id domain.CourseID) ([]domain.CourseID, error) {
	ids, err := cg.core.NeighborIDs(id)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Degree returns the weighted degree (sum of incident edge weights) of id.
func (cg *ConstraintGraph) Degree(id domain.CourseID) float64 {
	neighbors, err := cg.Neighbors(id)
	if err != nil {
		return 0
	}
	var d float64
	for _, n := range neighbors {
		d += cg.Weight(id, n)
	}
	return d
}

// TotalWeight returns the sum of all edge weights (m in the modularity
// formula, not 2m).
func (cg *ConstraintGraph) TotalWeight() float64 {
	var total float64
	for _, w := range cg.weight {
		total += w
	}
	return total
}

// Edges returns every (a, b, weight) triple, with a < b, sorted
// deterministically by (a, b).
func (cg *ConstraintGraph) Edges() []struct {
	A, B   domain.CourseID
	Weight float64
} {
	out := make([]struct {
		A, B   domain.CourseID
		Weight float64
	}, 0, len(cg.weight))
	for k, w := range cg.weight {
		out = append(out, struct {
			A, B   domain.CourseID
			Weight float64
		}{k.a, k.b, w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Build constructs the constraint graph from a dataset per the edge-weight
// formula in §4.1: w(ci,cj) = alpha_f*same-faculty + alpha_s*student
// Jaccard-like overlap + alpha_r*feature overlap. Pairs are only scored
// when they co-occur in the faculty or student inverted index, so the
// common case avoids a full O(N^2) scan.
func Build(ds *domain.Dataset, weights config.GraphWeights) (*ConstraintGraph, error) {
	cg, err := NewConstraintGraph(ds.CourseOrder)
	if err != nil {
		return nil, err
	}

	byFaculty := make(map[domain.FacultyID][]domain.CourseID)
	for _, cid := range ds.CourseOrder {
		c := ds.Courses[cid]
		if c.FacultyID != "" {
			byFaculty[c.FacultyID] = append(byFaculty[c.FacultyID], cid)
		}
	}

	byStudent := ds.StudentCourses()
	coStudent := make(map[edgeKey]int) // shared-student count per course pair

	for _, courses := range byStudent {
		for i := 0; i < len(courses); i++ {
			for j := i + 1; j < len(courses); j++ {
				coStudent[makeEdgeKey(courses[i], courses[j])]++
			}
		}
	}

	scored := make(map[edgeKey]struct{})

	scorePair := func(a, b domain.CourseID) error {
		key := makeEdgeKey(a, b)
		if _, done := scored[key]; done {
			return nil
		}
		scored[key] = struct{}{}

		ca, cb := ds.Courses[a], ds.Courses[b]
		var w float64
		if ca.FacultyID != "" && ca.FacultyID == cb.FacultyID {
			w += weights.Faculty
		}
		if shared := coStudent[key]; shared > 0 {
			maxEnroll := ca.Enrollment()
			if cb.Enrollment() > maxEnroll {
				maxEnroll = cb.Enrollment()
			}
			if maxEnroll > 0 {
				w += weights.Student * float64(shared) / float64(maxEnroll)
			}
		}
		if overlap := featureOverlap(ca.RequiredFeatures, cb.RequiredFeatures); overlap > 0 {
			w += weights.Feature * overlap
		}
		return cg.AddEdge(a, b, w)
	}

	for _, courses := range byFaculty {
		for i := 0; i < len(courses); i++ {
			for j := i + 1; j < len(courses); j++ {
				if err := scorePair(courses[i], courses[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	for key := range coStudent {
		if err := scorePair(key.a, key.b); err != nil {
			return nil, err
		}
	}

	return cg, nil
}

func featureOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	inter := 0
	for f := range small {
		if _, ok := big[f]; ok {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return float64(inter) / float64(max)
}
