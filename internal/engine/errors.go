package engine

import (
	"errors"
	"fmt"

	"timetable-engine/internal/domain"
)

// ErrInputInvariantViolation is the only hard-stop error GenerateTimetable
// returns: the input itself breaks I5/I6/I7 before any stage runs. Every
// other failure mode is folded into Result.Statistics/Result.Quality
// instead, per the error taxonomy.
var ErrInputInvariantViolation = errors.New("input invariant violation")

// InfeasibleClusterError reports that a cluster exhausted every rung of the
// relaxation ladder and had to be filled by the greedy fallback. It never
// stops the pipeline; the orchestrator logs one per affected cluster and
// records the cluster's id in Statistics.InfeasibleClusterIDs.
type InfeasibleClusterError struct {
	ClusterID int
	CourseIDs []domain.CourseID
}

func (e *InfeasibleClusterError) Error() string {
	return fmt.Sprintf("cluster %d (%d courses) could not be made feasible on any relaxation rung; filled by greedy fallback", e.ClusterID, len(e.CourseIDs))
}

// ResidualConflictsWarning reports that the Q-learning resolver's iteration
// cap was reached with hard conflicts still outstanding. The output is
// still returned; Statistics.ConflictsRemaining carries the count.
type ResidualConflictsWarning struct {
	Count int
}

func (e *ResidualConflictsWarning) Error() string {
	return fmt.Sprintf("%d hard-constraint conflicts remain after resolution", e.Count)
}

// TransientInfraError wraps a progress-sink or Q-table-store failure. It is
// always logged and never returned from GenerateTimetable; its Error method
// exists only so the logged value satisfies the error interface uniformly.
type TransientInfraError struct {
	Op    string
	Cause error
}

func (e *TransientInfraError) Error() string {
	return fmt.Sprintf("transient infra failure during %s: %v", e.Op, e.Cause)
}

func (e *TransientInfraError) Unwrap() error { return e.Cause }
