package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"timetable-engine/internal/domain"
	"timetable-engine/internal/engine"
	"timetable-engine/internal/fixtures"
	"timetable-engine/internal/progress"
	"timetable-engine/internal/resolve"
)

func newRunCommand() *cobra.Command {
	var (
		fixturePath string
		seed        uint64
		deadline    time.Duration
		orgID       string
		semesterID  string
		qtableDir   string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one timetable from a JSON fixture and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fixtures.Load(fixturePath)
			if err != nil {
				return err
			}

			store, err := resolve.NewFileStore(qtableDir)
			if err != nil {
				return err
			}

			input := engine.Input{
				Courses:   doc.ToCourses(),
				Faculty:   doc.ToFaculty(),
				Rooms:     doc.ToRooms(),
				TimeSlots: doc.ToTimeSlots(),
				Students:  doc.ToStudents(),
				Weights:   doc.Weights,
				Seed:      seed,
				Deadline:  deadline,
				QTableKey: &domain.QTableKey{OrgID: orgID, SemesterID: semesterID},
				JobID:     fmt.Sprintf("%s-%s-%d", orgID, semesterID, seed),
			}

			var sink progress.Sink
			if !quiet {
				sink = progress.SinkFunc(func(e progress.Event) {
					klog.Infof("phase=%s progress=%.0f%% %s", e.Phase, e.ProgressPercent, e.Message)
				})
			}

			result, err := engine.GenerateTimetable(cmd.Context(), input, sink, store)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to a JSON fixture (courses/faculty/rooms/time_slots/students)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "deterministic RNG seed")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "soft wall-clock budget for the whole run (0 = no deadline)")
	cmd.Flags().StringVar(&orgID, "org", "default", "organization id scoping the persisted Q-table")
	cmd.Flags().StringVar(&semesterID, "semester", "current", "semester id scoping the persisted Q-table")
	cmd.Flags().StringVar(&qtableDir, "qtable-dir", "./qtables", "directory holding persisted Q-tables")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress events")
	cmd.MarkFlagRequired("fixture")

	return cmd
}

func printReport(out io.Writer, result engine.Result) {
	if result.Cancelled {
		fmt.Fprintln(os.Stderr, "run cancelled before completion")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "course\tsession\tslot\troom")
	assignments := append([]domain.Assignment(nil), result.Assignments...)
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CourseID != assignments[j].CourseID {
			return assignments[i].CourseID < assignments[j].CourseID
		}
		return assignments[i].SessionIndex < assignments[j].SessionIndex
	})
	for _, a := range assignments {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", a.CourseID, a.SessionIndex, a.SlotID, a.RoomID)
	}
	w.Flush()

	fmt.Fprintln(out)
	s := result.Statistics
	q := result.Quality
	fmt.Fprintf(out, "clusters: %d (feasible %d, fallback %d)\n", s.ClusterCount, s.FeasibleClusters, s.FallbackClusters)
	fmt.Fprintf(out, "conflicts: resolved %d, remaining %d, q-learning iterations %d\n", s.ConflictsResolved, s.ConflictsRemaining, s.QLearningIterations)
	fmt.Fprintf(out, "violations: %d, fitness: %.4f\n", q.Violations.Total(), q.Fitness)
	fmt.Fprintf(out, "faculty_preference=%.3f compactness=%.3f room_utilization=%.3f workload_balance=%.3f peak_spreading=%.3f continuity=%.3f\n",
		q.FacultyPreference, q.Compactness, q.RoomUtilization, q.WorkloadBalance, q.PeakSpreading, q.Continuity)
}
