// Package config collects every tunable of the engine into one struct with
// sane defaults, following the teacher's preference for plain Go structs
// over a configuration-file framework (see DESIGN.md).
package config

import "time"

// GraphWeights are the constraint-graph edge-weight coefficients (C2, §4.1).
type GraphWeights struct {
	Faculty float64 // alpha_f
	Student float64 // alpha_s
	Feature float64 // alpha_r
}

// ClusterBounds bound community sizes after Louvain refinement (C3, §4.2).
type ClusterBounds struct {
	MinSize int
	MaxSize int

	MinModularity   float64
	MinIntraDensity float64
	MaxCoupling     float64
}

// RelaxationStrategy is one rung of the feasibility solver's progressive
// relaxation ladder (C4, §4.3).
type RelaxationStrategy struct {
	Name                  string
	StudentConflictScope  StudentConflictScope
	EnforceRoomUniqueness bool
	Timeout               time.Duration
}

// StudentConflictScope controls which students' schedules the student
// non-conflict constraint covers at a given relaxation rung.
type StudentConflictScope int

const (
	// StudentConflictAll enforces I2 for every student.
	StudentConflictAll StudentConflictScope = iota
	// StudentConflictCritical enforces I2 only for students enrolled in at
	// least CriticalStudentMinCourses courses within the cluster.
	StudentConflictCritical
	// StudentConflictNone drops I2 entirely at this rung.
	StudentConflictNone
)

// GAParams tunes the genetic optimizer (C5, §4.4).
type GAParams struct {
	Weights             map[string]float64 // soft-metric -> weight, sums to 1
	ElitismRate         float64
	MutationRate        float64
	TournamentSize      int
	RepairBudget        int
	MaxGenerations      int
	Patience            int
	IslandThreshold     int // cluster size above which islands activate
	MaxIslands          int
	MigrationInterval   int
}

// QLearningParams tunes the Q-learning resolver (C6, §4.5).
type QLearningParams struct {
	Epsilon          float64
	Gamma            float64
	AlphaTransferred float64
	AlphaNew         float64
	MinIterationCap  int
	MaxIterationCap  int
}

// EngineConfig is the full set of tunables for one GenerateTimetable run.
type EngineConfig struct {
	CriticalStudentMinCourses int
	GraphWeights              GraphWeights
	ClusterBounds             ClusterBounds
	RelaxationLadder          []RelaxationStrategy
	GA                        GAParams
	QLearning                 QLearningParams
}

// Option customizes a default EngineConfig.
type Option func(*EngineConfig)

// WithGraphWeights overrides the constraint-graph edge weights.
func WithGraphWeights(w GraphWeights) Option {
	return func(c *EngineConfig) { c.GraphWeights = w }
}

// WithClusterBounds overrides the community-detector size bounds.
func WithClusterBounds(b ClusterBounds) Option {
	return func(c *EngineConfig) { c.ClusterBounds = b }
}

// WithGAParams overrides the genetic optimizer's parameters.
func WithGAParams(p GAParams) Option {
	return func(c *EngineConfig) { c.GA = p }
}

// WithQLearningParams overrides the Q-learning resolver's parameters.
func WithQLearningParams(p QLearningParams) Option {
	return func(c *EngineConfig) { c.QLearning = p }
}

// DefaultSoftWeights is the default soft-constraint weighting, summing to 1.
func DefaultSoftWeights() map[string]float64 {
	return map[string]float64{
		"faculty_preference": 1.0 / 6,
		"compactness":        1.0 / 6,
		"room_utilization":   1.0 / 6,
		"workload_balance":   1.0 / 6,
		"peak_spreading":     1.0 / 6,
		"continuity":         1.0 / 6,
	}
}

// Default builds the default EngineConfig and applies opts over it.
func Default(opts ...Option) *EngineConfig {
	cfg := &EngineConfig{
		CriticalStudentMinCourses: 5,
		GraphWeights:              GraphWeights{Faculty: 10, Student: 10, Feature: 3},
		ClusterBounds: ClusterBounds{
			MinSize: 5, MaxSize: 50,
			MinModularity: 0.7, MinIntraDensity: 0.6, MaxCoupling: 0.15,
		},
		RelaxationLadder: []RelaxationStrategy{
			{Name: "full", StudentConflictScope: StudentConflictAll, EnforceRoomUniqueness: true, Timeout: 60 * time.Second},
			{Name: "critical-students-only", StudentConflictScope: StudentConflictCritical, EnforceRoomUniqueness: true, Timeout: 45 * time.Second},
			{Name: "faculty-and-room-only", StudentConflictScope: StudentConflictNone, EnforceRoomUniqueness: true, Timeout: 30 * time.Second},
			{Name: "faculty-only", StudentConflictScope: StudentConflictNone, EnforceRoomUniqueness: false, Timeout: 20 * time.Second},
		},
		GA: GAParams{
			Weights:           DefaultSoftWeights(),
			ElitismRate:       0.1,
			MutationRate:      0.1,
			TournamentSize:    5,
			RepairBudget:      20,
			MaxGenerations:    100,
			Patience:          15,
			IslandThreshold:   50,
			MaxIslands:        4,
			MigrationInterval: 10,
		},
		QLearning: QLearningParams{
			Epsilon:          0.1,
			Gamma:            0.9,
			AlphaTransferred: 0.1,
			AlphaNew:         0.5,
			MinIterationCap:  100,
			MaxIterationCap:  1000,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
