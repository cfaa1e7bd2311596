package optimize

import (
	"golang.org/x/exp/rand"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
)

// crossover performs smart uniform crossover: each gene is a 50/50 candidate
// to swap between the two children, but the swap is kept only if it does not
// increase the two children's combined hard-violation count.
func crossover(ds *domain.Dataset, parent1, parent2 Genome, order []domain.SessionKey, rng *rand.Rand) (Genome, Genome) {
	child1, child2 := parent1.Clone(), parent2.Clone()

	for _, key := range order {
		if rng.Float64() >= 0.5 {
			continue
		}
		g1, g2 := child1[key], child2[key]
		if g1 == g2 {
			continue
		}
		before := hardCount(ds, child1) + hardCount(ds, child2)
		child1[key], child2[key] = g2, g1
		after := hardCount(ds, child1) + hardCount(ds, child2)
		if after > before {
			child1[key], child2[key] = g1, g2
		}
	}
	return child1, child2
}

// mutate reassigns each gene to a random candidate with probability rate,
// keeping the change only if it does not add net hard violations. It makes
// up to repairBudget random draws (at least one) for that gene in total
// before giving up and reverting to the pre-mutation value.
func mutate(ds *domain.Dataset, g Genome, order []domain.SessionKey, candidates feasibility.CandidateDomain, rate float64, repairBudget int, rng *rand.Rand) {
	for _, key := range order {
		if rng.Float64() >= rate {
			continue
		}
		pool := candidates[key]
		if len(pool) < 2 {
			continue
		}
		original := g[key]
		baseline := hardCount(ds, g)

		attempts := repairBudget
		if attempts < 1 {
			attempts = 1
		}
		found := false
		for a := 0; a < attempts; a++ {
			candidate := pool[rng.Intn(len(pool))]
			if candidate == original {
				continue
			}
			g[key] = candidate
			if hardCount(ds, g) <= baseline {
				found = true
				break
			}
		}
		if !found {
			g[key] = original
		}
	}
}

func hardCount(ds *domain.Dataset, g Genome) int {
	return ds.CheckPartialAssignments(g.ToAssignments(), g.CourseIDs()).Total()
}
