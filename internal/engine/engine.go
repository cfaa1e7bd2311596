// Package engine implements the orchestrator (C8): it wires the constraint
// graph builder, community detector, feasibility solver, genetic optimizer
// and Q-learning resolver into the single external entry point,
// GenerateTimetable.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"k8s.io/klog/v2"

	"timetable-engine/internal/cluster"
	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
	"timetable-engine/internal/graph"
	"timetable-engine/internal/hardware"
	"timetable-engine/internal/optimize"
	"timetable-engine/internal/progress"
	"timetable-engine/internal/resolve"
)

var tracer = otel.Tracer("timetable-engine")

// clusterPlan is one cluster's work item as it moves through the two
// per-cluster stages (feasibility then optimization).
type clusterPlan struct {
	cluster    domain.Cluster
	candidates feasibility.CandidateDomain
	seed       optimize.Genome
}

// GenerateTimetable runs the full pipeline for one input and returns the
// best assignment it could produce, plus statistics and a quality report.
// Only ErrInputInvariantViolation is ever returned as a non-nil error;
// every other degradation (infeasible clusters, residual conflicts,
// cancellation, sink/store failures) is folded into Result.
func GenerateTimetable(ctx context.Context, input Input, sink progress.Sink, qStore resolve.Store, opts ...config.Option) (Result, error) {
	cfg := config.Default(opts...)
	if input.Weights != nil {
		cfg.GA.Weights = input.Weights
	}
	if qStore == nil {
		qStore = resolve.NewMemStore()
	}

	if input.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, input.Deadline)
		defer cancel()
	}

	key := domain.QTableKey{}
	if input.QTableKey != nil {
		key = *input.QTableKey
	}
	jobID := input.JobID
	if jobID == "" {
		jobID = fmt.Sprintf("%s__%s", key.OrgID, key.SemesterID)
	}

	var bus *progress.Bus
	if sink != nil {
		bus = progress.NewBus(jobID, sink)
	} else {
		bus = progress.NewBus(jobID)
	}

	ctx, span := tracer.Start(ctx, "GenerateTimetable")
	defer span.End()

	stats := Statistics{StageSeconds: make(map[string]float64)}

	bus.SetPhase("initialization", 1)
	stageStart := time.Now()
	ds := domain.NewDataset(input.Courses, input.Faculty, input.Rooms, input.TimeSlots, input.Students)
	if err := ds.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInputInvariantViolation, err)
	}
	profile := hardware.Probe()
	plan := hardware.Plan(profile)
	recordStage(stats, "initialization", stageStart)
	bus.UpdatePhaseProgress(1, "dataset validated, hardware profile probed")

	if len(ds.CourseOrder) == 0 {
		bus.Complete(true, "empty input, nothing to schedule")
		return Result{Statistics: stats}, nil
	}

	bus.SetPhase("clustering", 2)
	stageStart = time.Now()
	_, clusterSpan := tracer.Start(ctx, "stage1.cluster")
	cg, err := graph.Build(ds, cfg.GraphWeights)
	if err != nil {
		clusterSpan.End()
		return Result{}, fmt.Errorf("%w: %v", ErrInputInvariantViolation, err)
	}
	bus.UpdatePhaseProgress(1, "constraint graph built")
	clusters, report := cluster.Detect(cg, cfg.ClusterBounds)
	clusterSpan.End()
	klog.V(2).Infof("engine: %d clusters detected (modularity=%.3f, meets thresholds=%v)", len(clusters), report.Modularity, report.MeetsThresholds)
	recordStage(stats, "clustering", stageStart)
	bus.UpdatePhaseProgress(2, fmt.Sprintf("%d clusters detected", len(clusters)))
	stats.ClusterCount = len(clusters)

	if ctx.Err() != nil {
		return cancelledResult(stats, bus), nil
	}

	bus.SetPhase("constraint_solving", len(clusters))
	stageStart = time.Now()
	plans, infeasible, cancelled := runFeasibilityStage(ctx, ds, clusters, cfg, plan, bus)
	recordStage(stats, "constraint_solving", stageStart)
	stats.InfeasibleClusterIDs = infeasible
	stats.FallbackClusters = len(infeasible)
	stats.FeasibleClusters = len(clusters) - len(infeasible)
	clustersInfeasible.Add(float64(len(infeasible)))
	if cancelled {
		return cancelledResult(stats, bus), nil
	}

	bus.SetPhase("optimization", len(plans))
	stageStart = time.Now()
	merged, cancelled := runOptimizationStage(ctx, ds, plans, cfg, input.Seed, bus)
	recordStage(stats, "optimization", stageStart)
	if cancelled {
		return cancelledResult(stats, bus), nil
	}

	bus.SetPhase("finalization", 3)
	stageStart = time.Now()
	qt, loadErr := qStore.Load(key)
	if loadErr != nil {
		logTransient("q-table load", loadErr)
		qt = resolve.NewQTable()
	}
	bus.UpdatePhaseProgress(1, "q-table loaded")

	mergedCandidates := feasibility.Precompute(ds, ds.CourseOrder)
	resolveCtx, resolveSpan := tracer.Start(ctx, "stage3.resolve")
	outcome := resolve.Resolve(resolveCtx, ds, merged, mergedCandidates, cg, qt, cfg.QLearning, input.Seed)
	resolveSpan.End()
	bus.UpdatePhaseProgress(2, fmt.Sprintf("%d conflicts resolved, %d remaining", outcome.Resolved, len(outcome.Remaining)))

	if saveErr := qStore.Save(key, qt); saveErr != nil {
		logTransient("q-table save", saveErr)
	}

	stats.ConflictsResolved = outcome.Resolved
	stats.ConflictsRemaining = len(outcome.Remaining)
	stats.QLearningIterations = outcome.Iterations
	conflictsRemaining.Set(float64(len(outcome.Remaining)))
	recordStage(stats, "finalization", stageStart)

	finalGenome := optimize.Genome(outcome.Assignments)
	assignments := finalGenome.ToAssignments()
	violations := ds.CheckAssignments(assignments)
	metrics := optimize.ComputeMetrics(ds, finalGenome)
	fitness := optimize.Evaluate(ds, finalGenome, cfg.GA.Weights)

	quality := QualityReport{
		Violations:        violations,
		Fitness:           fitness,
		FacultyPreference: metrics.FacultyPreference,
		Compactness:       metrics.Compactness,
		RoomUtilization:   metrics.RoomUtilization,
		WorkloadBalance:   metrics.WorkloadBalance,
		PeakSpreading:     metrics.PeakSpreading,
		Continuity:        metrics.Continuity,
	}

	cancelledRun := outcome.Cancelled || ctx.Err() != nil
	bus.Complete(!cancelledRun, fmt.Sprintf("done: %d assignments, %d remaining conflicts", len(assignments), len(outcome.Remaining)))

	if len(infeasible) > 0 {
		klog.Warningf("engine: %d clusters used the greedy fallback: %v", len(infeasible), infeasible)
	}
	if len(outcome.Remaining) > 0 {
		klog.Warningf("engine: %v", &ResidualConflictsWarning{Count: len(outcome.Remaining)})
	}

	sortAssignments(assignments)
	return Result{
		Assignments: assignments,
		Statistics:  stats,
		Quality:     quality,
		Cancelled:   cancelledRun,
	}, nil
}

// runFeasibilityStage runs C4 (solve, falling back to greedy) for every
// cluster over a bounded worker pool, returning each cluster's candidate
// domain and seed genome for the optimization stage.
func runFeasibilityStage(ctx context.Context, ds *domain.Dataset, clusters []domain.Cluster, cfg *config.EngineConfig, plan hardware.ExecutionPlan, bus *progress.Bus) ([]clusterPlan, []int, bool) {
	workers := plan.ClusterConcurrency
	if plan.ForceSequential || workers < 1 {
		workers = 1
	}
	if workers > len(clusters) {
		workers = len(clusters)
	}

	plans := make([]clusterPlan, len(clusters))
	var infeasibleMu sync.Mutex
	var infeasible []int
	var cancelled bool

	jobs := make(chan int)
	var wg sync.WaitGroup
	var progressMu sync.Mutex
	done := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					infeasibleMu.Lock()
					cancelled = true
					infeasibleMu.Unlock()
					continue
				}
				c := clusters[idx]
				_, span := tracer.Start(ctx, "stage2.feasibility")
				candidates := feasibility.Precompute(ds, c.CourseIDs)
				solved := feasibility.Solve(ctx, ds, c.CourseIDs, candidates, cfg.RelaxationLadder, cfg.CriticalStudentMinCourses)
				var seed optimize.Genome
				if solved.Cancelled {
					infeasibleMu.Lock()
					cancelled = true
					infeasibleMu.Unlock()
				} else if solved.Feasible {
					seed = optimize.Genome(solved.Assignments)
				} else {
					assignment, _ := feasibility.Greedy(ds, c.CourseIDs, candidates)
					seed = optimize.Genome(assignment)
					infeasibleMu.Lock()
					infeasible = append(infeasible, c.ID)
					infeasibleMu.Unlock()
					klog.Warningf("engine: %v", &InfeasibleClusterError{ClusterID: c.ID, CourseIDs: c.CourseIDs})
				}
				span.End()
				plans[idx] = clusterPlan{cluster: c, candidates: candidates, seed: seed}

				progressMu.Lock()
				done++
				bus.UpdatePhaseProgress(done, fmt.Sprintf("cluster %d solved", c.ID))
				progressMu.Unlock()
			}
		}()
	}
	for idx := range clusters {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	sort.Ints(infeasible)
	return plans, infeasible, cancelled
}

// runOptimizationStage runs C5 for every cluster's seed genome, then merges
// every cluster's best genome into one global assignment map.
func runOptimizationStage(ctx context.Context, ds *domain.Dataset, plans []clusterPlan, cfg *config.EngineConfig, seedValue uint64, bus *progress.Bus) (map[domain.SessionKey]feasibility.Candidate, bool) {
	merged := make(map[domain.SessionKey]feasibility.Candidate)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var cancelled bool
	var progressMu sync.Mutex
	done := 0

	for _, p := range plans {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				mu.Lock()
				cancelled = true
				mu.Unlock()
				return
			}
			_, span := tracer.Start(ctx, "stage2.optimize")
			result := optimize.Run(ctx, ds, p.cluster.ID, p.seed, p.candidates, cfg.GA, seedValue, len(p.cluster.CourseIDs))
			span.End()

			mu.Lock()
			for key, cand := range result.Best {
				merged[key] = cand
			}
			mu.Unlock()

			progressMu.Lock()
			done++
			bus.UpdatePhaseProgress(done, fmt.Sprintf("cluster %d optimized", p.cluster.ID))
			progressMu.Unlock()
		}()
	}
	wg.Wait()

	return merged, cancelled
}

func cancelledResult(stats Statistics, bus *progress.Bus) Result {
	bus.Complete(false, "cancelled")
	return Result{Statistics: stats, Cancelled: true}
}

func recordStage(stats Statistics, name string, start time.Time) {
	d := time.Since(start)
	stats.StageSeconds[name] = d.Seconds()
	stageDuration.WithLabelValues(name).Observe(d.Seconds())
}

func logTransient(op string, err error) {
	klog.Errorf("engine: %v", &TransientInfraError{Op: op, Cause: err})
}

func sortAssignments(a []domain.Assignment) {
	sort.Slice(a, func(i, j int) bool {
		if a[i].CourseID != a[j].CourseID {
			return a[i].CourseID < a[j].CourseID
		}
		return a[i].SessionIndex < a[j].SessionIndex
	})
}
