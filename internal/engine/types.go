package engine

import (
	"time"

	"timetable-engine/internal/domain"
)

// Input is everything one GenerateTimetable run needs: the raw dataset,
// the soft-metric weights, and the knobs that scope a run to one
// organization/semester's persisted Q-table.
type Input struct {
	Courses   []domain.Course
	Faculty   []domain.Faculty
	Rooms     []domain.Room
	TimeSlots []domain.TimeSlot
	Students  []domain.Student

	Weights  map[string]float64 // soft-metric -> weight; nil uses config.DefaultSoftWeights
	Seed     uint64
	Deadline time.Duration // zero means no deadline beyond ctx's own

	QTableKey *domain.QTableKey // nil uses the zero key, loaded and saved like any other key
	JobID     string            // empty derives one from the Q-table key
}

// Statistics reports what the pipeline did, independent of how good the
// result is (that's QualityReport's job).
type Statistics struct {
	StageSeconds map[string]float64

	ClusterCount        int
	FeasibleClusters     int
	FallbackClusters     int
	InfeasibleClusterIDs []int

	ConflictsResolved   int
	ConflictsRemaining  int
	QLearningIterations int
}

// QualityReport is the final assignment's measured quality: hard-invariant
// recount plus the six soft metrics and their weighted fitness.
type QualityReport struct {
	Violations domain.ViolationCounts
	Fitness    float64

	FacultyPreference float64
	Compactness       float64
	RoomUtilization   float64
	WorkloadBalance   float64
	PeakSpreading     float64
	Continuity        float64
}

// Result is GenerateTimetable's return value.
type Result struct {
	Assignments []domain.Assignment
	Statistics  Statistics
	Quality     QualityReport
	Cancelled   bool
}
