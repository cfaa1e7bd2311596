package hardware

// ExecutionPlan is the set of concurrency/sizing decisions derived from a
// Profile. The orchestrator reads ClusterConcurrency and ForceSequential to
// size its feasibility worker pool; FeasibilitySolverWorkers, GAIslands and
// QLearningCacheSize are computed but not read by any stage.
type ExecutionPlan struct {
	FeasibilitySolverWorkers int
	ClusterConcurrency       int
	GAIslands                int
	QLearningCacheSize       int
	ForceSequential          bool
}

// memoryConstrainedGB is the available-RAM threshold below which the
// plan forces sequential execution (§4.8). No extra garbage collection is
// requested between phases.
const memoryConstrainedGB = 2.0

// Plan derives an ExecutionPlan from a Profile.
func Plan(p Profile) ExecutionPlan {
	if p.AvailableRAMGB < memoryConstrainedGB {
		return ExecutionPlan{
			FeasibilitySolverWorkers: 1,
			ClusterConcurrency:       1,
			GAIslands:                1,
			QLearningCacheSize:       1024,
			ForceSequential:          true,
		}
	}

	solverWorkers := p.LogicalCores
	if solverWorkers > 8 {
		solverWorkers = 8
	}
	if solverWorkers < 1 {
		solverWorkers = 1
	}

	islands := p.LogicalCores
	if islands > 4 {
		islands = 4
	}
	if islands < 1 {
		islands = 1
	}

	clusterConcurrency := p.LogicalCores
	if clusterConcurrency < 1 {
		clusterConcurrency = 1
	}

	cacheSize := int(8192 * p.MemoryMultiplier)

	return ExecutionPlan{
		FeasibilitySolverWorkers: solverWorkers,
		ClusterConcurrency:       clusterConcurrency,
		GAIslands:                islands,
		QLearningCacheSize:       cacheSize,
	}
}
