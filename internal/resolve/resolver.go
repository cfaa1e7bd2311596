package resolve

import (
	"context"

	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
	"timetable-engine/internal/graph"
)

// Outcome is Stage 3's result: the healed (or partially healed) global
// assignment, how many conflicts it resolved, and whatever is left.
type Outcome struct {
	Assignments map[domain.SessionKey]feasibility.Candidate
	Resolved    int
	Remaining   []domain.Conflict
	Iterations  int
	Cancelled   bool
}

// Resolve merges every cluster's assignment (the caller does the union) and
// iteratively applies ε-greedy Q-learning moves to eliminate residual hard
// conflicts, per §4.5. Cancellation is polled once per iteration.
func Resolve(ctx context.Context, ds *domain.Dataset, initial map[domain.SessionKey]feasibility.Candidate, candidates feasibility.CandidateDomain, cg *graph.ConstraintGraph, qt *QTable, params config.QLearningParams, seedValue uint64) Outcome {
	assignments := cloneAssignments(initial)
	rng := rand.New(rand.NewSource(seedValue))

	conflicts := detectConflicts(ds, assignments)
	if len(conflicts) == 0 {
		return Outcome{Assignments: assignments}
	}

	maxIter := iterationCap(len(conflicts), params)
	resolvedTotal := 0
	iter := 0

	for ; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Assignments: assignments, Resolved: resolvedTotal, Remaining: conflicts, Iterations: iter, Cancelled: true}
		}

		conflicts = detectConflicts(ds, assignments)
		if len(conflicts) == 0 {
			break
		}
		conflict := conflicts[0]

		st := buildState(ds, cg, assignments, conflict)
		h := st.hash()
		actions := eligibleActions(conflict.Kind)
		action := choosePolicy(qt, h, actions, params.Epsilon, rng)

		beforeSoft := softProxy(ds, assignments, conflict)
		trial, touched, ok := applyAction(ds, assignments, candidates, conflict, action, rng)
		if !ok {
			qt.update(h, action, -1, qt.maxQ(h, actions), params)
			continue
		}

		afterConflicts := detectConflicts(ds, trial)
		resolved := countResolved(conflict, afterConflicts)
		remaining := len(afterConflicts)
		afterSoft := softProxy(ds, trial, conflict)
		deltaSoft := afterSoft - beforeSoft
		simplicity := 0.0
		if touched <= 1 {
			simplicity = 1
		}
		reward := 5*float64(resolved) - 10*float64(remaining) - 2*deltaSoft + simplicity

		var nextActions []Action
		var nextHash uint64
		if len(afterConflicts) > 0 {
			nextState := buildState(ds, cg, trial, afterConflicts[0])
			nextHash = nextState.hash()
			nextActions = eligibleActions(afterConflicts[0].Kind)
		}
		maxNext := qt.maxQ(nextHash, nextActions)
		qt.update(h, action, reward, maxNext, params)

		if reward > 0 {
			assignments = trial
			resolvedTotal += resolved
		}
	}

	final := detectConflicts(ds, assignments)
	if len(final) > 0 {
		klog.V(2).Infof("resolve: %d conflicts remain after %d iterations", len(final), iter)
	}
	return Outcome{Assignments: assignments, Resolved: resolvedTotal, Remaining: final, Iterations: iter}
}

// choosePolicy is epsilon-greedy: explore uniformly with probability
// epsilon, otherwise argmax Q[state,.] ties broken by lowest action
// ordinal.
func choosePolicy(qt *QTable, h uint64, actions []Action, epsilon float64, rng *rand.Rand) Action {
	if len(actions) == 0 {
		return SwapSlots
	}
	if rng.Float64() < epsilon {
		return actions[rng.Intn(len(actions))]
	}
	best := actions[0]
	bestQ := qt.get(h, best)
	for _, a := range actions[1:] {
		q := qt.get(h, a)
		if q > bestQ || (q == bestQ && a < best) {
			bestQ = q
			best = a
		}
	}
	return best
}

// countResolved reports how many of the conflicting pairs touching
// conflict's slot and courses disappeared after applying an action.
func countResolved(conflict domain.Conflict, after []domain.Conflict) int {
	for _, c := range after {
		if c.SlotID == conflict.SlotID && sameCourseSet(c.CourseIDs, conflict.CourseIDs) {
			return 0
		}
	}
	return 1
}

func sameCourseSet(a, b []domain.CourseID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[domain.CourseID]bool{}
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}

// iterationCap is proportional to the initial conflict count, clamped to
// [MinIterationCap, MaxIterationCap] per §4.5.
func iterationCap(initialConflicts int, params config.QLearningParams) int {
	n := initialConflicts * 10
	if n < params.MinIterationCap {
		n = params.MinIterationCap
	}
	if n > params.MaxIterationCap {
		n = params.MaxIterationCap
	}
	return n
}
