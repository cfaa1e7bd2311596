package optimize

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"

	"timetable-engine/internal/config"
	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
)

// individual pairs a genome with its cached fitness so sorting and
// tournament selection never re-evaluate it.
type individual struct {
	genome  Genome
	fitness float64
}

// Result is the optimizer's outcome for one cluster.
type Result struct {
	Best       Genome
	Fitness    float64
	Generation int
}

// Run evolves seed (the feasibility stage's assignment for this cluster)
// for up to params.MaxGenerations generations, or until params.Patience
// generations pass with no improvement. Clusters at or below
// params.IslandThreshold courses run as a single population; larger
// clusters split into min(params.MaxIslands, cores) islands that evolve
// independently and exchange their best individual every
// params.MigrationInterval generations (ring migration), grounded on the
// worker-pool-over-channel generational loop used for parallel offspring
// generation in NSGA-II.
func Run(ctx context.Context, ds *domain.Dataset, clusterID int, seed Genome, candidates feasibility.CandidateDomain, params config.GAParams, seedValue uint64, numCourses int) Result {
	if len(seed) == 0 {
		return Result{Best: seed, Fitness: Evaluate(ds, seed, params.Weights)}
	}

	// Every cluster derives its own seed from the run's root seed and its
	// own id, so two clusters never draw from the same random stream.
	clusterSeed := seedValue ^ (uint64(clusterID+1) * 0x9E3779B97F4A7C15)

	islands := 1
	if numCourses > params.IslandThreshold {
		islands = params.MaxIslands
		if cores := runtime.NumCPU(); islands > cores {
			islands = cores
		}
		if islands < 1 {
			islands = 1
		}
	}

	klog.V(2).Infof("optimize: cluster %d starting GA over %d courses (%d islands)", clusterID, numCourses, islands)

	if islands == 1 {
		return runIsland(ctx, ds, seed, candidates, params, rand.NewSource(clusterSeed))
	}
	return runIslandModel(ctx, ds, seed, candidates, params, clusterSeed, islands)
}

func runIslandModel(ctx context.Context, ds *domain.Dataset, seed Genome, candidates feasibility.CandidateDomain, params config.GAParams, seedValue uint64, islands int) Result {
	popSize := adaptivePopulationSize(len(seed.CourseIDs()))
	order := sessionOrder(candidates)

	pops := make([][]individual, islands)
	rngs := make([]*rand.Rand, islands)
	for i := 0; i < islands; i++ {
		rngs[i] = rand.New(rand.NewSource(seedValue + uint64(i)*1_000_003))
		pops[i] = evaluatePopulation(ds, seedPopulation(seed, candidates, popSize, rngs[i]), params.Weights)
	}

	best := bestOf(pops[0])
	noImprove := 0
	generation := 0

	for gen := 1; gen <= params.MaxGenerations; gen++ {
		if ctx.Err() != nil {
			klog.V(2).Infof("optimize: island run cancelled at generation %d", gen)
			break
		}
		generation = gen
		var wg sync.WaitGroup
		for i := 0; i < islands; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pops[i] = nextGeneration(ds, pops[i], order, candidates, params, rngs[i])
			}(i)
		}
		wg.Wait()

		if params.MigrationInterval > 0 && gen%params.MigrationInterval == 0 {
			migrate(pops)
		}

		genBest := bestOf(pops[0])
		for i := 1; i < islands; i++ {
			if c := bestOf(pops[i]); c.fitness > genBest.fitness {
				genBest = c
			}
		}
		if genBest.fitness > best.fitness {
			best = genBest
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove >= params.Patience {
			klog.V(2).Infof("optimize: islands converged at generation %d (patience %d)", gen, params.Patience)
			break
		}
	}

	return Result{Best: best.genome, Fitness: best.fitness, Generation: generation}
}

// migrate sends each island's best individual to the next island in the
// ring, replacing that island's worst individual.
func migrate(pops [][]individual) {
	n := len(pops)
	if n < 2 {
		return
	}
	migrants := make([]individual, n)
	for i, pop := range pops {
		migrants[i] = bestOf(pop)
	}
	for i := 0; i < n; i++ {
		target := (i + 1) % n
		worstIdx := worstIndex(pops[target])
		pops[target][worstIdx] = individual{genome: migrants[i].genome.Clone(), fitness: migrants[i].fitness}
	}
}

func runIsland(ctx context.Context, ds *domain.Dataset, seed Genome, candidates feasibility.CandidateDomain, params config.GAParams, source rand.Source) Result {
	rng := rand.New(source)
	order := sessionOrder(candidates)
	popSize := adaptivePopulationSize(len(seed.CourseIDs()))
	pop := evaluatePopulation(ds, seedPopulation(seed, candidates, popSize, rng), params.Weights)

	best := bestOf(pop)
	noImprove := 0
	generation := 0

	for gen := 1; gen <= params.MaxGenerations; gen++ {
		if ctx.Err() != nil {
			break
		}
		generation = gen
		pop = nextGeneration(ds, pop, order, candidates, params, rng)
		genBest := bestOf(pop)
		if genBest.fitness > best.fitness {
			best = genBest
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove >= params.Patience {
			break
		}
	}

	return Result{Best: best.genome, Fitness: best.fitness, Generation: generation}
}

// nextGeneration produces one offspring population via tournament
// selection, smart crossover and smart mutation: the top ElitismRate
// fraction of the parents (at least one) is carried over unchanged, and
// the rest of the new population is filled with offspring.
func nextGeneration(ds *domain.Dataset, pop []individual, order []domain.SessionKey, candidates feasibility.CandidateDomain, params config.GAParams, rng *rand.Rand) []individual {
	sorted := append([]individual(nil), pop...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].fitness > sorted[j].fitness })

	eliteCount := int(float64(len(pop)) * params.ElitismRate)
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount > len(pop) {
		eliteCount = len(pop)
	}

	next := make([]individual, 0, len(pop))
	for _, elite := range sorted[:eliteCount] {
		next = append(next, individual{genome: elite.genome.Clone(), fitness: elite.fitness})
	}

	for len(next) < len(pop) {
		p1 := tournamentSelect(pop, params.TournamentSize, rng)
		p2 := tournamentSelect(pop, params.TournamentSize, rng)
		c1, c2 := crossover(ds, p1.genome, p2.genome, order, rng)
		mutate(ds, c1, order, candidates, params.MutationRate, params.RepairBudget, rng)
		mutate(ds, c2, order, candidates, params.MutationRate, params.RepairBudget, rng)
		next = append(next, individual{genome: c1, fitness: Evaluate(ds, c1, params.Weights)})
		if len(next) < len(pop) {
			next = append(next, individual{genome: c2, fitness: Evaluate(ds, c2, params.Weights)})
		}
	}
	return next
}

func tournamentSelect(pop []individual, size int, rng *rand.Rand) individual {
	if size < 2 {
		size = 2
	}
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		challenger := pop[rng.Intn(len(pop))]
		if challenger.fitness > best.fitness {
			best = challenger
		}
	}
	return best
}

func evaluatePopulation(ds *domain.Dataset, genomes []Genome, weights map[string]float64) []individual {
	out := make([]individual, len(genomes))
	for i, g := range genomes {
		out[i] = individual{genome: g, fitness: Evaluate(ds, g, weights)}
	}
	return out
}

func bestOf(pop []individual) individual {
	best := pop[0]
	for _, ind := range pop[1:] {
		if ind.fitness > best.fitness {
			best = ind
		}
	}
	return best
}

func worstIndex(pop []individual) int {
	idx := 0
	for i, ind := range pop {
		if ind.fitness < pop[idx].fitness {
			idx = i
		}
	}
	return idx
}
