package optimize

import (
	"timetable-engine/internal/domain"
)

// Metrics holds the six soft-constraint scores, each normalized to [0,1]
// with 1 being best, before weighting.
type Metrics struct {
	FacultyPreference float64
	Compactness       float64
	RoomUtilization   float64
	WorkloadBalance   float64
	PeakSpreading     float64
	Continuity        float64
}

func (m Metrics) weighted(weights map[string]float64) float64 {
	return m.FacultyPreference*weights["faculty_preference"] +
		m.Compactness*weights["compactness"] +
		m.RoomUtilization*weights["room_utilization"] +
		m.WorkloadBalance*weights["workload_balance"] +
		m.PeakSpreading*weights["peak_spreading"] +
		m.Continuity*weights["continuity"]
}

// hardPenalty is the coefficient applied to the hard-violation count in
// F(sigma) = sum(w_k * SC_k) - hardPenalty*H(sigma), chosen so a single hard
// violation always outweighs any achievable soft-metric gain.
const hardPenalty = 1000.0

// Evaluate computes F(genome) per §4.4: the weighted sum of soft metrics
// minus a steep penalty for every residual hard-constraint violation.
func Evaluate(ds *domain.Dataset, g Genome, weights map[string]float64) float64 {
	m := computeMetrics(ds, g)
	violations := ds.CheckPartialAssignments(g.ToAssignments(), g.CourseIDs())
	return m.weighted(weights) - hardPenalty*float64(violations.Total())
}

// ComputeMetrics exposes computeMetrics for callers (the orchestrator's
// final quality report) that only need the soft-metric breakdown, not a
// weighted fitness scalar.
func ComputeMetrics(ds *domain.Dataset, g Genome) Metrics {
	return computeMetrics(ds, g)
}

func computeMetrics(ds *domain.Dataset, g Genome) Metrics {
	return Metrics{
		FacultyPreference: facultyPreference(ds, g),
		Compactness:       compactness(ds, g),
		RoomUtilization:   roomUtilization(ds, g),
		WorkloadBalance:   workloadBalance(ds, g),
		PeakSpreading:     peakSpreading(ds, g),
		Continuity:        continuity(ds, g),
	}
}

func facultyPreference(ds *domain.Dataset, g Genome) float64 {
	if len(g) == 0 {
		return 1
	}
	var sum float64
	for key, cand := range g {
		c := ds.Courses[key.CourseID]
		fac := ds.Faculty[c.FacultyID]
		sum += fac.Preference(cand.SlotID)
	}
	return sum / float64(len(g))
}

// compactness rewards faculty schedules with few idle gaps between
// same-day sessions: for each faculty, sessions are bucketed by day and the
// score is 1/(1+avgGap), where avgGap is the mean number of empty slot
// positions between consecutive sessions. Student schedules are not
// considered.
func compactness(ds *domain.Dataset, g Genome) float64 {
	byFaculty := map[domain.FacultyID]map[int][]int{}
	for key, cand := range g {
		c := ds.Courses[key.CourseID]
		if c.FacultyID == "" {
			continue
		}
		slot := ds.TimeSlots[cand.SlotID]
		if byFaculty[c.FacultyID] == nil {
			byFaculty[c.FacultyID] = map[int][]int{}
		}
		byFaculty[c.FacultyID][slot.Day] = append(byFaculty[c.FacultyID][slot.Day], slot.Order)
	}
	if len(byFaculty) == 0 {
		return 1
	}
	var totalGap, totalPairs float64
	for _, days := range byFaculty {
		for _, orders := range days {
			if len(orders) < 2 {
				continue
			}
			sorted := append([]int(nil), orders...)
			insertionSort(sorted)
			for i := 1; i < len(sorted); i++ {
				gap := sorted[i] - sorted[i-1] - 1
				if gap < 0 {
					gap = 0
				}
				totalGap += float64(gap)
				totalPairs++
			}
		}
	}
	if totalPairs == 0 {
		return 1
	}
	avgGap := totalGap / totalPairs
	return 1 / (1 + avgGap)
}

func roomUtilization(ds *domain.Dataset, g Genome) float64 {
	if len(g) == 0 {
		return 1
	}
	var sum float64
	for key, cand := range g {
		c := ds.Courses[key.CourseID]
		r := ds.Rooms[cand.RoomID]
		if r.Capacity == 0 {
			continue
		}
		ratio := float64(c.Enrollment()) / float64(r.Capacity)
		if ratio > 1 {
			ratio = 1
		}
		sum += ratio
	}
	return sum / float64(len(g))
}

// workloadBalance rewards an even session count across faculty: score is
// 1/(1+Var(per-faculty session counts)).
func workloadBalance(ds *domain.Dataset, g Genome) float64 {
	counts := map[domain.FacultyID]int{}
	for key := range g {
		c := ds.Courses[key.CourseID]
		if c.FacultyID != "" {
			counts[c.FacultyID]++
		}
	}
	if len(counts) < 2 {
		return 1
	}
	return 1 / (1 + varianceInt(counts))
}

// peakSpreading rewards an even session count across slots: score is
// 1 - max_slot_load/N, where N is the total number of sessions placed.
func peakSpreading(ds *domain.Dataset, g Genome) float64 {
	if len(g) == 0 {
		return 1
	}
	counts := map[domain.SlotID]int{}
	for _, cand := range g {
		counts[cand.SlotID]++
	}
	maxLoad := 0
	for _, c := range counts {
		if c > maxLoad {
			maxLoad = c
		}
	}
	score := 1 - float64(maxLoad)/float64(len(g))
	if score < 0 {
		return 0
	}
	return score
}

// continuity rewards multi-session courses whose sessions land on distinct
// days, avoiding same-day back-to-back duplication of one course.
func continuity(ds *domain.Dataset, g Genome) float64 {
	byCourse := map[domain.CourseID]map[int]bool{}
	total, spread := 0, 0
	for key, cand := range g {
		c := ds.Courses[key.CourseID]
		if c.Duration < 2 {
			continue
		}
		if byCourse[key.CourseID] == nil {
			byCourse[key.CourseID] = map[int]bool{}
			total++
		}
		day := ds.TimeSlots[cand.SlotID].Day
		if !byCourse[key.CourseID][day] {
			byCourse[key.CourseID][day] = true
		}
	}
	for cid, days := range byCourse {
		c := ds.Courses[cid]
		if len(days) == c.Duration {
			spread++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(spread) / float64(total)
}

func insertionSort(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func varianceInt(counts map[domain.FacultyID]int) float64 {
	n := float64(len(counts))
	var mean float64
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= n
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return variance / n
}
