package optimize

import (
	"sort"

	"golang.org/x/exp/rand"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/feasibility"
)

// sessionOrder returns every session key present in candidates, sorted
// deterministically so genome operators iterate it identically run to run.
func sessionOrder(candidates feasibility.CandidateDomain) []domain.SessionKey {
	out := make([]domain.SessionKey, 0, len(candidates))
	for key := range candidates {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].SessionIndex < out[j].SessionIndex
	})
	return out
}

// seedPopulation builds size-1 randomized variants of seed plus seed itself
// (always kept as individual 0, guaranteeing the population never regresses
// below the feasibility stage's result).
func seedPopulation(seed Genome, candidates feasibility.CandidateDomain, size int, rng *rand.Rand) []Genome {
	order := sessionOrder(candidates)
	population := make([]Genome, size)
	population[0] = seed.Clone()

	for i := 1; i < size; i++ {
		g := seed.Clone()
		for _, key := range order {
			if rng.Float64() >= 0.3 {
				continue
			}
			pool := candidates[key]
			if len(pool) == 0 {
				continue
			}
			g[key] = pool[rng.Intn(len(pool))]
		}
		population[i] = g
	}
	return population
}
